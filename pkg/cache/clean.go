package cache

import (
	"os"
	"strings"

	"github.com/agnivade/levenshtein"
	log "github.com/sirupsen/logrus"

	"podmix/pkg/media"
	"podmix/pkg/model"
)

// Clean reconciles the catalog against the disk. Every cached entry whose
// backing file no longer exists is reverted to unknown, so "cached" stays a
// promise that holds. When a stale title no longer matches any feed item
// (usually a rename upstream) the closest known title is reported as a hint,
// never applied automatically. Returns the number of entries removed.
func (c *Cache) Clean() (int, error) {
	feeds, err := c.LoadFeeds()
	if err != nil {
		return 0, err
	}

	itemsByFeed := map[string]*model.Feed{}
	for _, f := range feeds {
		itemsByFeed[f.Name] = f
	}

	removed := 0
	for author, titles := range c.catalog.Cached {
		bases, err := c.fileBases(author)
		if err != nil {
			return removed, err
		}

		var stale []string
		for _, title := range titles {
			if item := findItem(itemsByFeed[author], title); item != nil {
				path := NewDownloader(c.client, item, c.feedDir(author)).Path()
				if _, err := os.Stat(path); err == nil {
					continue
				}
			} else {
				// The extension is unknown without a feed item, accept
				// any file with the sanitized title as its base name
				if bases[media.SafeFileName(title)] {
					continue
				}

				if hint := closestTitle(itemsByFeed[author], title); hint != "" {
					log.Warnf("cached entry %q (%s) matches no feed item, closest known title is %q", title, author, hint)
				}
			}

			log.Infof("cached entry %q (%s) has no backing file, removing", title, author)
			stale = append(stale, title)
		}

		for _, title := range stale {
			c.catalog.RemoveCached(author, title)
			removed++
		}
	}

	if removed > 0 {
		if err := c.Save(); err != nil {
			return removed, err
		}
	}

	log.Infof("clean removed %d catalog entries", removed)
	return removed, nil
}

// fileBases lists the feed directory's file names with extensions stripped
func (c *Cache) fileBases(author string) (map[string]bool, error) {
	bases := map[string]bool{}

	entries, err := os.ReadDir(c.feedDir(author))
	if err != nil {
		if os.IsNotExist(err) {
			return bases, nil
		}
		return nil, err
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		bases[baseName(e.Name())] = true
	}

	return bases, nil
}

func baseName(fileName string) string {
	if idx := strings.LastIndexByte(fileName, '.'); idx >= 0 {
		return fileName[:idx]
	}
	return fileName
}

func findItem(f *model.Feed, title string) *model.Item {
	if f == nil {
		return nil
	}

	for _, item := range f.Items {
		if item.Title == title {
			return item
		}
	}

	return nil
}

// closestTitle picks the feed item title with the smallest edit distance
func closestTitle(f *model.Feed, title string) string {
	if f == nil {
		return ""
	}

	best, bestDist := "", -1
	for _, item := range f.Items {
		dist := levenshtein.ComputeDistance(title, item.Title)
		if bestDist < 0 || dist < bestDist {
			best, bestDist = item.Title, dist
		}
	}

	return best
}
