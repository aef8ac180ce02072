package cache

import (
	"podmix/pkg/model"
)

// Catalog is the persistent record of which episodes are downloaded or
// deliberately excluded, keyed by (feed name, episode title). The JSON field
// names are the on-disk cache.json format.
type Catalog struct {
	Cached  map[string][]string `json:"_cache"`
	Skipped map[string][]string `json:"_skipped"`
}

func NewCatalog() *Catalog {
	return &Catalog{
		Cached:  map[string][]string{},
		Skipped: map[string][]string{},
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (c *Catalog) ContainsCached(item *model.Item) bool {
	return contains(c.Cached[item.Author], item.Title)
}

func (c *Catalog) ContainsSkipped(item *model.Item) bool {
	return contains(c.Skipped[item.Author], item.Title)
}

func (c *Catalog) ContainsAny(item *model.Item) bool {
	return c.ContainsCached(item) || c.ContainsSkipped(item)
}

// AddCached records the item as downloaded. Skip takes precedence: marking a
// skipped item cached is a no-op. Returns whether the entry was added.
func (c *Catalog) AddCached(item *model.Item) bool {
	if c.ContainsSkipped(item) || c.ContainsCached(item) {
		return false
	}

	c.AddFeed(item.Author)
	c.Cached[item.Author] = append(c.Cached[item.Author], item.Title)
	return true
}

// AddSkipped records the item as deliberately excluded from downloading
func (c *Catalog) AddSkipped(item *model.Item) bool {
	if c.ContainsAny(item) {
		return false
	}

	c.AddFeed(item.Author)
	c.Skipped[item.Author] = append(c.Skipped[item.Author], item.Title)
	return true
}

// AddFeed makes sure both mappings carry a key for the feed
func (c *Catalog) AddFeed(name string) {
	if _, ok := c.Cached[name]; !ok {
		c.Cached[name] = []string{}
	}
	if _, ok := c.Skipped[name]; !ok {
		c.Skipped[name] = []string{}
	}
}

// RemoveCached reverts a cached entry back to unknown. Used by the clean
// reconciliation pass when the backing file has gone missing.
func (c *Catalog) RemoveCached(author, title string) {
	titles := c.Cached[author]
	for i, t := range titles {
		if t == title {
			c.Cached[author] = append(titles[:i], titles[i+1:]...)
			return
		}
	}
}
