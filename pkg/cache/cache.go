package cache

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"podmix/pkg/feed"
	"podmix/pkg/fetch"
	"podmix/pkg/history"
	"podmix/pkg/media"
	"podmix/pkg/model"
	"podmix/pkg/playlist"
)

const catalogFileName = "cache.json"

// TagReader extracts embedded metadata from an audio file. Swappable so the
// import path can be tested without ffprobe.
type TagReader func(ctx context.Context, path string) (*media.Tags, error)

// Cache owns the download directory and the catalog that records which
// episodes are cached or skipped. All downloads go through it, which is what
// keeps the catalog and the filesystem consistent: an episode is marked
// cached only after its file is fully on disk, and the catalog is persisted
// before the next download starts.
//
// A single process at a time, there is no cross-process locking.
type Cache struct {
	dir     string
	client  *fetch.Client
	rss     *feed.RSSImporter
	catalog *Catalog

	// ReadTags is used by Import, defaults to the ffprobe wrapper
	ReadTags TagReader
	// ApplyTags re-tags freshly downloaded files with title/artist/album
	ApplyTags bool
}

func New(dir string, client *fetch.Client) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create cache directory %q", dir)
	}

	c := &Cache{
		dir:      dir,
		client:   client,
		rss:      feed.NewRSSImporter(client),
		catalog:  NewCatalog(),
		ReadTags: media.ReadTags,
	}

	path := c.catalogPath()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Fresh cache
	case err != nil:
		return nil, errors.Wrapf(err, "failed to read catalog %q", path)
	default:
		if err := json.Unmarshal(data, c.catalog); err != nil {
			return nil, errors.Wrapf(err, "failed to parse catalog %q", path)
		}
	}

	return c, nil
}

func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) catalogPath() string {
	return filepath.Join(c.dir, catalogFileName)
}

func (c *Cache) feedDir(name string) string {
	return filepath.Join(c.dir, media.SafeFileName(name))
}

// Save rewrites the whole catalog document, replacing the file atomically
func (c *Cache) Save() error {
	data, err := json.MarshalIndent(c.catalog, "", "\t")
	if err != nil {
		return errors.Wrap(err, "failed to serialize catalog")
	}

	tmp := c.catalogPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write catalog %q", tmp)
	}

	return errors.Wrap(os.Rename(tmp, c.catalogPath()), "failed to replace catalog")
}

func (c *Cache) Cached(item *model.Item) bool {
	return c.catalog.ContainsCached(item)
}

func (c *Cache) Skipped(item *model.Item) bool {
	return c.catalog.ContainsSkipped(item)
}

func (c *Cache) CachedOrSkipped(item *model.Item) bool {
	return c.catalog.ContainsAny(item)
}

// MarkCachedUnsafe records the item as cached without verifying a file exists
// at the expected path. Using this outside the download path can leave the
// catalog out of sync with the disk until the next clean, be careful.
func (c *Cache) MarkCachedUnsafe(item *model.Item) {
	c.catalog.AddCached(item)
}

// SkipItem marks one episode as deliberately excluded from downloading
func (c *Cache) SkipItem(item *model.Item) bool {
	return c.catalog.AddSkipped(item)
}

// SkipFeed marks every not-yet-cached episode of the feed as skipped and
// returns the number of episodes affected
func (c *Cache) SkipFeed(f *model.Feed) int {
	count := 0
	for _, item := range f.Items {
		if c.catalog.AddSkipped(item) {
			count++
		}
	}

	log.Infof("%d of %d item(s) in %q skipped", count, len(f.Items), f.Name)
	return count
}

// SkipAll skips every episode of every catalogued feed
func (c *Cache) SkipAll() error {
	feeds, err := c.LoadFeeds()
	if err != nil {
		return err
	}

	for _, f := range feeds {
		c.SkipFeed(f)
	}

	return nil
}

// RegisterFeed adds the feed to the catalog, creates its directory and
// writes (or replaces) its feed.json record
func (c *Cache) RegisterFeed(f *model.Feed) error {
	c.catalog.AddFeed(f.Name)

	dir := c.feedDir(f.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create feed directory %q", dir)
	}

	data, err := json.MarshalIndent(f, "", "\t")
	if err != nil {
		return errors.Wrapf(err, "failed to serialize feed %q", f.Name)
	}

	path := filepath.Join(dir, "feed.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write feed record %q", tmp)
	}

	return errors.Wrapf(os.Rename(tmp, path), "failed to replace feed record %q", path)
}

// LoadFeeds reads every feed.json under the cache directory
func (c *Cache) LoadFeeds() ([]*model.Feed, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read cache directory %q", c.dir)
	}

	var feeds []*model.Feed
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		path := filepath.Join(c.dir, e.Name(), "feed.json")
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "failed to read feed record %q", path)
		}

		f := model.Feed{}
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, errors.Wrapf(err, "failed to parse feed record %q", path)
		}

		feeds = append(feeds, &f)
	}

	return feeds, nil
}

// Feed loads a single catalogued feed by name
func (c *Cache) Feed(name string) (*model.Feed, error) {
	feeds, err := c.LoadFeeds()
	if err != nil {
		return nil, err
	}

	for _, f := range feeds {
		if f.Name == name {
			return f, nil
		}
	}

	return nil, errors.Wrapf(model.ErrNotFound, "feed %q", name)
}

// Download fetches one episode into the cache (at most once) and commits the
// catalog entry before returning. The returned path is the cached file.
func (c *Cache) Download(ctx context.Context, item *model.Item) (string, error) {
	dl := NewDownloader(c.client, item, c.feedDir(item.Author))

	path, fetched, err := dl.Download(ctx)
	if err != nil {
		return "", err
	}

	if fetched && c.ApplyTags {
		tags := media.Tags{Title: item.Title, Artist: item.Author, Album: item.Author}
		if err := media.WriteTags(ctx, path, tags); err != nil {
			// Tagging is cosmetic, the download still counts
			log.WithError(err).Warnf("failed to tag %q", path)
		}
	}

	if c.catalog.AddCached(item) {
		if err := c.Save(); err != nil {
			return "", err
		}
		log.Infof("%q cached", item.Title)
	}

	return path, nil
}

// Copy places the cached file for the item into destDir. Copying an item the
// catalog does not mark as cached is a programmer error and fails
// immediately.
func (c *Cache) Copy(item *model.Item, destDir string) (string, error) {
	if !c.Cached(item) {
		return "", errors.Wrapf(model.ErrNotCached, "%q (%s)", item.Title, item.Author)
	}

	src := NewDownloader(c.client, item, c.feedDir(item.Author)).Path()

	in, err := os.Open(src)
	if err != nil {
		return "", errors.Wrapf(err, "cached file for %q is unreadable, run clean", item.Title)
	}
	defer in.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create %q", destDir)
	}

	dest := filepath.Join(destDir, filepath.Base(src))
	out, err := os.Create(dest)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %q", dest)
	}
	defer out.Close()

	log.Debugf("copying %q to %q", src, dest)
	if _, err := io.Copy(out, in); err != nil {
		return "", errors.Wrapf(err, "failed to copy %q", src)
	}

	return dest, nil
}

// CacheFeed downloads the feed's episodes sequentially, oldest first. With
// latest set only the single most recent not-yet-handled episode is fetched.
// Episodes already cached or skipped are left alone unless forced, and an
// optional title filter narrows the run. Per-episode failures are collected,
// they never stop the remaining downloads.
func (c *Cache) CacheFeed(ctx context.Context, f *model.Feed, latest, forced bool, filter *regexp.Regexp) error {
	log.Infof("caching feed %q", f.Name)

	// An always-pass playhead gives us the chronological ordering
	ph := playlist.NewPlayheadFeed(f, history.New(nil), nil)

	if latest {
		item := ph.Latest()
		if item == nil {
			log.Infof("feed %q has no episodes", f.Name)
			return nil
		}

		if !forced && c.CachedOrSkipped(item) {
			log.Infof("%q is already cached or skipped, not downloading", item.Title)
			return nil
		}

		_, err := c.Download(ctx, item)
		return err
	}

	var failures *multierror.Error
	for !ph.Finished() {
		item := ph.Current()
		ph.Progress()

		if !forced && c.CachedOrSkipped(item) {
			log.Debugf("%q is already cached or skipped, not downloading", item.Title)
			continue
		}

		if filter != nil && !filter.MatchString(item.Title) {
			continue
		}

		if _, err := c.Download(ctx, item); err != nil {
			log.WithError(err).Errorf("failed to cache %q (%s)", item.Title, f.Name)
			failures = multierror.Append(failures, err)
		}
	}

	return failures.ErrorOrNil()
}

// Refresh re-fetches feed XML for all (or the named subset of) catalogued
// feeds concurrently. A fetch failure leaves the stored feed untouched and is
// reported without failing the batch.
func (c *Cache) Refresh(ctx context.Context, names []string) error {
	feeds, err := c.LoadFeeds()
	if err != nil {
		return err
	}

	if len(names) > 0 {
		feeds = filterByName(feeds, names)
	}

	log.Infof("fetching %d feed(s)", len(feeds))

	var (
		fresh    = make([]*model.Feed, len(feeds))
		failures *multierror.Error
	)

	group, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		i, f := i, f
		group.Go(func() error {
			updated, err := c.rss.Fetch(ctx, f.URL)
			if err != nil {
				log.WithError(err).Warnf("RSS source %q failed", f.URL)
				return nil
			}
			fresh[i] = updated
			return nil
		})
	}
	_ = group.Wait()

	// Catalog and feed records are single-writer, register sequentially
	for i, updated := range fresh {
		if updated == nil {
			failures = multierror.Append(failures, errors.Errorf("feed %q could not be refreshed", feeds[i].Name))
			continue
		}

		if err := c.RegisterFeed(updated); err != nil {
			failures = multierror.Append(failures, err)
			continue
		}

		log.Infof("%q updated (%d item(s))", updated.Name, len(updated.Items))
	}

	if err := c.Save(); err != nil {
		return err
	}

	return failures.ErrorOrNil()
}

func filterByName(feeds []*model.Feed, names []string) []*model.Feed {
	byName := make(map[string]*model.Feed, len(feeds))
	for _, f := range feeds {
		byName[f.Name] = f
	}

	selected := make([]*model.Feed, 0, len(names))
	for _, name := range names {
		f, ok := byName[name]
		if !ok {
			log.Warnf("feed %q is not in the catalog, skipping", name)
			continue
		}
		selected = append(selected, f)
	}

	return selected
}
