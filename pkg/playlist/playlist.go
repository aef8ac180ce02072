package playlist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"podmix/pkg/media"
	"podmix/pkg/model"
)

// Downloader is the cache-backed download path used for local
// materialization. Download must be idempotent, Copy must refuse items the
// catalog does not mark as cached.
type Downloader interface {
	Download(ctx context.Context, item *model.Item) (string, error)
	Copy(item *model.Item, destDir string) (string, error)
}

// Playlist is a resolved, ordered selection of episodes
type Playlist struct {
	Title string
	Items []*model.Item

	workingDir string
}

func New(title string, items []*model.Item, workingDir string) *Playlist {
	return &Playlist{Title: title, Items: items, workingDir: workingDir}
}

// Dir is the playlist's private directory under the working dir
func (p *Playlist) Dir() string {
	return filepath.Join(p.workingDir, media.SafeFileName(p.Title))
}

func (p *Playlist) filePath() string {
	return filepath.Join(p.Dir(), media.SafeFileName(p.Title)+".m3u")
}

// OnDisk reports whether a playlist of this title was already written.
// Callers must treat a collision as a hard stop, playlists are never
// regenerated over an existing one.
func (p *Playlist) OnDisk() bool {
	_, err := os.Stat(p.filePath())
	return err == nil
}

// WriteStreaming writes a playlist whose entries point at the original
// source URLs. No I/O happens beyond the final file write.
func (p *Playlist) WriteStreaming() (string, error) {
	if p.OnDisk() {
		return "", errors.Errorf("playlist %q already exists at %q", p.Title, p.filePath())
	}

	entries := make([]entry, 0, len(p.Items))
	for _, item := range p.Items {
		entries = append(entries, entry{location: item.URL, name: item.Title, artist: item.Author})
	}

	return p.write(entries)
}

// WriteLocal downloads every episode through the cache, copies the cached
// files into the playlist directory namespaced by author, and writes entries
// with device-relative paths. Any per-item failure aborts the playlist write
// entirely, the collected failures are reported in full and no playlist
// artifact is left behind.
func (p *Playlist) WriteLocal(ctx context.Context, dl Downloader) (string, error) {
	if p.OnDisk() {
		return "", errors.Errorf("playlist %q already exists at %q", p.Title, p.filePath())
	}

	var (
		entries  []entry
		failures *multierror.Error
	)

	// Sequential on purpose: each download commits to the catalog before
	// the next starts
	for _, item := range p.Items {
		if _, err := dl.Download(ctx, item); err != nil {
			failures = multierror.Append(failures, errors.Wrapf(err, "failed to download %q (%s)", item.Title, item.Author))
			continue
		}

		author := media.SafeFileName(item.Author)
		destDir := filepath.Join(p.Dir(), author)

		local, err := dl.Copy(item, destDir)
		if err != nil {
			failures = multierror.Append(failures, errors.Wrapf(err, "failed to copy %q (%s)", item.Title, item.Author))
			continue
		}

		entries = append(entries, entry{
			location: fmt.Sprintf("/Podcasts/%s/%s", author, filepath.Base(local)),
			name:     item.Title,
			artist:   item.Author,
		})
	}

	if err := failures.ErrorOrNil(); err != nil {
		// No partial playlists: remove everything staged so far
		if rmErr := os.RemoveAll(p.Dir()); rmErr != nil {
			log.WithError(rmErr).Warnf("failed to remove partial playlist dir %q", p.Dir())
		}
		return "", err
	}

	return p.write(entries)
}

type entry struct {
	location string
	name     string
	artist   string
}

// write renders the M3U document and writes it in one go
func (p *Playlist) write(entries []entry) (string, error) {
	if err := os.MkdirAll(p.Dir(), 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create playlist dir %q", p.Dir())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#EXTM3U\n#PLAYLIST:%s\n", p.Title)
	for _, e := range entries {
		fmt.Fprintf(&b, "#EXTINF:-1,%s - %s\n%s\n", e.artist, e.name, e.location)
	}

	path := p.filePath()
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write playlist %q", path)
	}

	log.Infof("wrote playlist %q with %d entries", path, len(entries))
	return path, nil
}
