package feed

import (
	"context"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"podmix/pkg/fetch"
	"podmix/pkg/model"
)

// RSSImporter resolves a remote RSS document into a model.Feed
type RSSImporter struct {
	client *fetch.Client
}

func NewRSSImporter(client *fetch.Client) *RSSImporter {
	return &RSSImporter{client: client}
}

// Fetch downloads and parses the feed at the given URL. Items without an
// enclosure have nothing to play or download and are dropped with a warning.
func (im *RSSImporter) Fetch(ctx context.Context, url string) (*model.Feed, error) {
	resp, err := im.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse feed %q", url)
	}

	name := parsed.Title
	if name == "" {
		name = url
	}

	feed := &model.Feed{
		Name:    name,
		URL:     url,
		WebPage: parsed.Link,
	}

	if parsed.Image != nil {
		feed.ImageURL = parsed.Image.URL
	}

	for _, item := range parsed.Items {
		if len(item.Enclosures) == 0 || item.Enclosures[0].URL == "" {
			log.Warnf("feed %q: item %q has no enclosure, dropping", name, item.Title)
			continue
		}

		enclosure := item.Enclosures[0]

		episode := &model.Item{
			Title:     item.Title,
			URL:       enclosure.URL,
			PubDate:   item.Published,
			Author:    name,
			Type:      model.EpisodeFull,
			MediaType: enclosure.Type,
		}

		if item.ITunesExt != nil && item.ITunesExt.EpisodeType != "" {
			episode.Type = model.EpisodeType(item.ITunesExt.EpisodeType)
		}

		feed.Items = append(feed.Items, episode)
	}

	log.Debugf("parsed feed %q with %d item(s)", feed.Name, len(feed.Items))
	return feed, nil
}
