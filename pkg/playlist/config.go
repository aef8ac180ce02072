package playlist

import (
	"encoding/json"
	"math/rand"
	"os"
	"regexp"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"podmix/pkg/history"
	"podmix/pkg/model"
)

// FeedConfig is one feed's selection rules inside a playlist configuration
type FeedConfig struct {
	Name string `json:"name"`
	// Exclude drops items whose title matches any of these patterns
	Exclude []string `json:"exclude,omitempty"`
	// Include overrides Exclude: a title matching any include pattern is
	// accepted no matter what
	Include []string `json:"include,omitempty"`
	// SkipTypes drops items of the given episode types
	SkipTypes []model.EpisodeType `json:"skipTypes,omitempty"`
}

// Configuration is a declarative description of how to build a playlist.
// Immutable after load.
type Configuration struct {
	Include []FeedConfig `json:"include"`
	Count   int          `json:"count"`
}

type configFile struct {
	Playlist Configuration `json:"playlist"`
}

// LoadConfiguration reads a playlist configuration from a JSON file
func LoadConfiguration(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read playlist config %q", path)
	}

	file := configFile{}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "failed to parse playlist config %q", path)
	}

	return &file.Playlist, nil
}

// predicate compiles the feed's rules into a pure item filter. A malformed
// pattern is a configuration error and aborts before any selection happens.
func (fc *FeedConfig) predicate() (func(*model.Item) bool, error) {
	compile := func(patterns []string) ([]*regexp.Regexp, error) {
		res := make([]*regexp.Regexp, 0, len(patterns))
		for _, pattern := range patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, errors.Wrapf(err, "feed %q: invalid pattern %q", fc.Name, pattern)
			}
			res = append(res, re)
		}
		return res, nil
	}

	includes, err := compile(fc.Include)
	if err != nil {
		return nil, err
	}

	excludes, err := compile(fc.Exclude)
	if err != nil {
		return nil, err
	}

	return func(item *model.Item) bool {
		for _, re := range includes {
			if re.MatchString(item.Title) {
				return true
			}
		}

		for _, re := range excludes {
			if re.MatchString(item.Title) {
				return false
			}
		}

		for _, t := range fc.SkipTypes {
			if item.Type == t {
				return false
			}
		}

		return true
	}, nil
}

// Generate draws up to Count episodes across the configured feeds. Repeated
// random draws with a one-step look-back keep consecutive picks off the same
// feed whenever an alternative exists. Running short of episodes is a notice,
// not an error.
func (c *Configuration) Generate(title string, feeds []*model.Feed, hist *history.History, workingDir string) (*Playlist, error) {
	byName := make(map[string]*model.Feed, len(feeds))
	for _, feed := range feeds {
		byName[feed.Name] = feed
	}

	candidates := make([]*PlayheadFeed, 0, len(c.Include))
	for i := range c.Include {
		fc := &c.Include[i]

		feed, ok := byName[fc.Name]
		if !ok {
			log.Warnf("playlist config references unknown feed %q, dropping", fc.Name)
			continue
		}

		passes, err := fc.predicate()
		if err != nil {
			return nil, err
		}

		ph := NewPlayheadFeed(feed, hist, passes)
		if ph.Finished() {
			log.Debugf("feed %q has no eligible episodes", fc.Name)
			continue
		}

		candidates = append(candidates, ph)
	}

	var (
		list []*model.Item
		prev *PlayheadFeed
	)

	for len(candidates) > 0 && len(list) < c.Count {
		shuffle(candidates)
		chosen := candidates[0]

		// Avoid drawing the same feed twice in a row while another
		// feed can still serve
		for chosen == prev && len(candidates) > 1 {
			shuffle(candidates)
			chosen = candidates[0]
		}

		list = append(list, chosen.Current())
		chosen.Progress()

		if chosen.Finished() {
			// Swap-and-pop, order doesn't matter between shuffles
			for i, ph := range candidates {
				if ph == chosen {
					candidates[i] = candidates[len(candidates)-1]
					candidates = candidates[:len(candidates)-1]
					break
				}
			}
		}

		prev = chosen
	}

	if c.Count > 0 && len(list) < c.Count {
		log.Infof("playlist %q: only %d of %d requested episode(s) available", title, len(list), c.Count)
	}

	return New(title, list, workingDir), nil
}

// shuffle is an in-place Fisher-Yates permutation
func shuffle(feeds []*PlayheadFeed) {
	for i := len(feeds) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		feeds[i], feeds[j] = feeds[j], feeds[i]
	}
}
