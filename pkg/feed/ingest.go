package feed

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"podmix/pkg/model"
)

// IngestConfig lists the feed sources to subscribe to
type IngestConfig struct {
	OPML []string `json:"opml"`
	RSS  []string `json:"rss"`
}

// LoadIngestConfig reads the ingest configuration from a JSON file
func LoadIngestConfig(path string) (*IngestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read ingest config %q", path)
	}

	config := IngestConfig{}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse ingest config %q", path)
	}

	return &config, nil
}

// Resolve fetches every configured source concurrently and returns the feeds
// that could be resolved. A single source failing is logged and skipped, it
// never fails the batch.
func (c *IngestConfig) Resolve(ctx context.Context, importer *RSSImporter) []*model.Feed {
	sources := make([]Source, 0, len(c.RSS))
	for _, url := range c.RSS {
		sources = append(sources, Source{URL: url})
	}

	for _, path := range c.OPML {
		found, err := ParseOPML(path)
		if err != nil {
			log.WithError(err).Warnf("OPML source %q failed", path)
			continue
		}
		log.Infof("OPML source %q lists %d feed(s)", path, len(found))
		sources = append(sources, found...)
	}

	var (
		mu    sync.Mutex
		feeds []*model.Feed
	)

	group, ctx := errgroup.WithContext(ctx)
	for _, source := range sources {
		source := source
		group.Go(func() error {
			feed, err := importer.Fetch(ctx, source.URL)
			if err != nil {
				log.WithError(err).Warnf("RSS source %q failed", source.URL)
				return nil
			}

			mu.Lock()
			feeds = append(feeds, feed)
			mu.Unlock()
			return nil
		})
	}

	// Goroutines swallow per-source errors, so this can't fail
	_ = group.Wait()

	return feeds
}
