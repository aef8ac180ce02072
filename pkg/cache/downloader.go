package cache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"podmix/pkg/fetch"
	"podmix/pkg/media"
	"podmix/pkg/model"
)

// Downloader streams one episode's enclosure to its place in the cache
// directory. The target path is a pure function of the item, repeated
// downloads find the existing file and return without touching the network.
type Downloader struct {
	client *fetch.Client
	item   *model.Item
	dir    string
}

func NewDownloader(client *fetch.Client, item *model.Item, dir string) *Downloader {
	return &Downloader{client: client, item: item, dir: dir}
}

// FileName is the sanitized title plus the extension derived from the
// enclosure MIME hint
func (d *Downloader) FileName() string {
	return fmt.Sprintf("%s.%s", media.SafeFileName(d.item.Title), media.AudioExtension(d.item.MediaType))
}

// Path is where the episode lives (or will live) on disk
func (d *Downloader) Path() string {
	return filepath.Join(d.dir, d.FileName())
}

// Download fetches the episode unless it is already on disk. The file is
// staged under a partial name and moved into place only when the stream
// completed, a crash mid-download leaves no half-written episode behind.
// The second return value reports whether the network was hit.
func (d *Downloader) Download(ctx context.Context) (string, bool, error) {
	path := d.Path()

	if _, err := os.Stat(path); err == nil {
		log.Debugf("%q already on disk, skipping download", d.item.Title)
		return path, false, nil
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", false, errors.Wrapf(err, "failed to create %q", d.dir)
	}

	log.Infof("downloading %q from %s", d.item.Title, d.item.URL)

	resp, err := d.client.Get(ctx, d.item.URL)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	partial := path + ".part"
	f, err := os.Create(partial)
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to create %q", partial)
	}

	written, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partial)
		return "", false, errors.Wrapf(err, "download of %q failed", d.item.Title)
	}

	if err := os.Rename(partial, path); err != nil {
		os.Remove(partial)
		return "", false, errors.Wrapf(err, "failed to move %q into place", partial)
	}

	log.Debugf("downloaded %d byte(s) to %q", written, path)
	return path, true, nil
}
