package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"podmix/pkg/model"
)

// Item is one consumed episode. PodcastID is only set for entries imported
// from a player backup, zero means unknown.
type Item struct {
	EpisodeName string    `json:"_episodeName"`
	EpisodeURL  string    `json:"_episodeURL,omitempty"`
	PodcastName string    `json:"_podcastName,omitempty"`
	ListenDate  time.Time `json:"_listenDate"`
	PodcastID   int64     `json:"_podcastId,omitempty"`
}

// History is the ordered record of episodes already consumed
type History struct {
	items []Item
}

type historyFile struct {
	Items []Item `json:"_items"`
}

func New(items []Item) *History {
	return &History{items: items}
}

// Load reads a history file. A missing file is not an error, it yields an
// empty history.
func Load(path string) (*History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(nil), nil
		}
		return nil, errors.Wrapf(err, "failed to read history %q", path)
	}

	file := historyFile{}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "failed to parse history %q", path)
	}

	return New(file.Items), nil
}

// Save writes the history as a whole document, replacing the previous file
func (h *History) Save(path string) error {
	data, err := json.MarshalIndent(historyFile{Items: h.items}, "", "\t")
	if err != nil {
		return errors.Wrap(err, "failed to serialize history")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create history directory")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write history %q", tmp)
	}

	return errors.Wrap(os.Rename(tmp, path), "failed to replace history file")
}

func (h *History) Items() []Item {
	return h.items
}

func (h *History) Len() int {
	return len(h.items)
}

func (h *History) Add(item Item) {
	h.items = append(h.items, item)
}

// Merge appends the other history's entries, dropping entries already present
// under the same (podcast, episode, listen date) key. Returns the number of
// entries added.
func (h *History) Merge(other *History) int {
	type key struct {
		podcast, episode string
		date             time.Time
	}

	seen := make(map[key]struct{}, len(h.items))
	for _, item := range h.items {
		seen[key{item.PodcastName, item.EpisodeName, item.ListenDate}] = struct{}{}
	}

	added := 0
	for _, item := range other.items {
		k := key{item.PodcastName, item.EpisodeName, item.ListenDate}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		h.items = append(h.items, item)
		added++
	}

	if skipped := other.Len() - added; skipped > 0 {
		log.Debugf("merge skipped %d duplicate history entries", skipped)
	}

	return added
}

// ListenedToByURL reports whether an episode with this exact URL was consumed
func (h *History) ListenedToByURL(url string) bool {
	if url == "" {
		return false
	}

	for _, item := range h.items {
		if item.EpisodeURL == url {
			return true
		}
	}

	return false
}

// ListenedToByName does a case-insensitive substring match against consumed
// episode names
func (h *History) ListenedToByName(name string) bool {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return false
	}

	for _, item := range h.items {
		if strings.Contains(strings.ToLower(item.EpisodeName), needle) {
			return true
		}
	}

	return false
}

// ListenedToByNameStrict requires an exact episode name match after trimming
func (h *History) ListenedToByNameStrict(name string) bool {
	needle := strings.TrimSpace(name)

	for _, item := range h.items {
		if strings.TrimSpace(item.EpisodeName) == needle {
			return true
		}
	}

	return false
}

// ListenedTo reports whether the feed item was consumed, matching by URL
// first and falling back to the strict name match
func (h *History) ListenedTo(item *model.Item) bool {
	return h.ListenedToByURL(item.URL) || h.ListenedToByNameStrict(item.Title)
}
