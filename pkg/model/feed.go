package model

import (
	"fmt"
	"time"
)

// EpisodeType mirrors the itunes:episodeType tag values
type EpisodeType string

const (
	EpisodeFull    = EpisodeType("full")
	EpisodeBonus   = EpisodeType("bonus")
	EpisodeTrailer = EpisodeType("trailer")
)

// Item is a single episode of a feed. Identity within the catalog is
// (Author, Title), not URL: enclosure URLs rotate between CDNs, titles mostly
// don't, and the title is the only join key available when reconciling files
// imported from other players.
type Item struct {
	Title string `json:"title"`
	// URL is the source enclosure location
	URL string `json:"url"`
	// PubDate is kept as the raw feed value and parsed on demand
	PubDate string `json:"pubdate"`
	// Author is the name of the owning feed
	Author string      `json:"author"`
	Type   EpisodeType `json:"type,omitempty"`
	// MediaType is the MIME hint from the enclosure, if any
	MediaType string `json:"media_type,omitempty"`
}

// pubDateLayouts are the date formats found in podcast feeds in the wild
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02",
}

// Published parses the raw publication date. The second return value is false
// when the date can't be interpreted, the item remains valid either way.
func (i *Item) Published() (time.Time, bool) {
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, i.PubDate); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func (i *Item) String() string {
	return fmt.Sprintf("%s/%s (published: %s)", i.Author, i.Title, i.PubDate)
}

// Feed is a podcast plus its episode list. Name is the unique catalog key.
// A feed is immutable once ingested, refresh replaces it wholesale.
type Feed struct {
	Name     string  `json:"name"`
	URL      string  `json:"url"`
	WebPage  string  `json:"web_page,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
	Items    []*Item `json:"items"`
}

func (f *Feed) String() string {
	return fmt.Sprintf("%s (%s)", f.Name, f.URL)
}
