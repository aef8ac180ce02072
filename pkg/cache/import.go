package cache

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"podmix/pkg/media"
	"podmix/pkg/model"
)

// Import reconciles pre-existing audio files against the catalog. Each
// file's embedded title is matched against feed item titles (exact after
// trim and case fold), with the candidate feeds narrowed by the embedded
// artist unless ignoreArtist is set. A file registers as cached only when it
// matches exactly one item of exactly one feed: any ambiguity is logged and
// skipped, never guessed. Matched files are copied to their cache location.
// Returns the number of files registered.
func (c *Cache) Import(ctx context.Context, dir string, recursive, ignoreArtist bool) (int, error) {
	feeds, err := c.LoadFeeds()
	if err != nil {
		return 0, err
	}

	files, err := audioFiles(dir, recursive)
	if err != nil {
		return 0, err
	}

	log.Infof("importing %d audio file(s) from %q", len(files), dir)

	imported := 0
	for _, path := range files {
		tags, err := c.ReadTags(ctx, path)
		if err != nil {
			log.WithError(err).Warnf("could not read tags of %q, skipping", path)
			continue
		}

		title := strings.TrimSpace(tags.Title)
		if title == "" {
			log.Warnf("%q has no embedded title, skipping", path)
			continue
		}

		matches := matchItems(feeds, title, strings.TrimSpace(tags.Artist), ignoreArtist)
		if len(matches) != 1 {
			log.Warnf("%q (title %q) matches %d catalog item(s), skipping", path, title, len(matches))
			continue
		}

		item := matches[0]
		if c.CachedOrSkipped(item) {
			log.Debugf("%q is already catalogued, skipping", item.Title)
			continue
		}

		if err := c.placeImported(path, item); err != nil {
			log.WithError(err).Warnf("failed to copy %q into the cache, skipping", path)
			continue
		}

		c.MarkCachedUnsafe(item)
		imported++
		log.Infof("imported %q as %q (%s)", path, item.Title, item.Author)
	}

	if imported > 0 {
		if err := c.Save(); err != nil {
			return imported, err
		}
	}

	return imported, nil
}

// placeImported copies an external file to the item's expected cache path,
// which is what makes the subsequent cached mark truthful
func (c *Cache) placeImported(src string, item *model.Item) error {
	dest := NewDownloader(c.client, item, c.feedDir(item.Author)).Path()
	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.Wrapf(err, "failed to create %q", filepath.Dir(dest))
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q", src)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", dest)
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return errors.Wrapf(err, "failed to copy %q", src)
}

// matchItems finds feed items whose title equals the given one. With a
// non-empty artist the search is narrowed to feeds with that name first.
func matchItems(feeds []*model.Feed, title, artist string, ignoreArtist bool) []*model.Item {
	var matches []*model.Item

	for _, f := range feeds {
		if !ignoreArtist && artist != "" && !strings.EqualFold(strings.TrimSpace(f.Name), artist) {
			continue
		}

		for _, item := range f.Items {
			if strings.EqualFold(strings.TrimSpace(item.Title), title) {
				matches = append(matches, item)
			}
		}
	}

	return matches
}

func audioFiles(dir string, recursive bool) ([]string, error) {
	var files []string

	if recursive {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && media.IsAudioFile(path) {
				files = append(files, path)
			}
			return nil
		})
		return files, errors.Wrapf(err, "failed to walk %q", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %q", dir)
	}

	for _, e := range entries {
		if !e.IsDir() && media.IsAudioFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}

	return files, nil
}
