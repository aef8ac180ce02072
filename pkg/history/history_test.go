package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podmix/pkg/model"
)

func testHistory() *History {
	return New([]Item{
		{EpisodeName: "Foo Bar", EpisodeURL: "https://cdn.example.com/foo.mp3", PodcastName: "Test Cast", ListenDate: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
		{EpisodeName: " Spaced Out ", PodcastName: "Test Cast", ListenDate: time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)},
	})
}

func TestHistory_ListenedToByName(t *testing.T) {
	h := testHistory()

	assert.True(t, h.ListenedToByName("foo"))
	assert.True(t, h.ListenedToByName("FOO BAR"))
	assert.False(t, h.ListenedToByName("baz"))
	assert.False(t, h.ListenedToByName(""))
}

func TestHistory_ListenedToByNameStrict(t *testing.T) {
	h := testHistory()

	assert.False(t, h.ListenedToByNameStrict("Foo"))
	assert.True(t, h.ListenedToByNameStrict("Foo Bar"))
	assert.True(t, h.ListenedToByNameStrict("Spaced Out"))
}

func TestHistory_ListenedToByURL(t *testing.T) {
	h := testHistory()

	assert.True(t, h.ListenedToByURL("https://cdn.example.com/foo.mp3"))
	assert.False(t, h.ListenedToByURL("https://cdn.example.com/other.mp3"))
	assert.False(t, h.ListenedToByURL(""))
}

func TestHistory_ListenedTo(t *testing.T) {
	h := testHistory()

	// URL match, different title
	assert.True(t, h.ListenedTo(&model.Item{Title: "Renamed", URL: "https://cdn.example.com/foo.mp3"}))
	// Title match, rotated URL
	assert.True(t, h.ListenedTo(&model.Item{Title: "Foo Bar", URL: "https://cdn2.example.com/foo.mp3"}))
	// Substring is not enough for feed item matching
	assert.False(t, h.ListenedTo(&model.Item{Title: "Foo", URL: "https://cdn.example.com/x.mp3"}))
}

func TestHistory_Merge(t *testing.T) {
	h := testHistory()
	date := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	other := New([]Item{
		{EpisodeName: "Foo Bar", EpisodeURL: "https://cdn.example.com/foo.mp3", PodcastName: "Test Cast", ListenDate: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
		{EpisodeName: "New One", PodcastName: "Test Cast", ListenDate: date},
	})

	added := h.Merge(other)
	assert.Equal(t, 1, added)
	assert.Equal(t, 3, h.Len())

	// Merging again adds nothing
	assert.Equal(t, 0, h.Merge(other))
	assert.Equal(t, 3, h.Len())
}

func TestHistory_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	h := testHistory()
	require.NoError(t, h.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, h.Len(), loaded.Len())
	assert.True(t, loaded.ListenedToByNameStrict("Foo Bar"))
}

func TestLoad_Missing(t *testing.T) {
	h, err := Load(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, h.Len())
}
