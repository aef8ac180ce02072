package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podmix/pkg/media"
	"podmix/pkg/model"
)

// tagsByPath fakes the ffprobe reader with canned metadata
func tagsByPath(tags map[string]media.Tags) TagReader {
	return func(_ context.Context, path string) (*media.Tags, error) {
		t := tags[filepath.Base(path)]
		return &t, nil
	}
}

func writeAudioFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0644))
	return path
}

func importFixture(t *testing.T) (*Cache, *model.Item) {
	c := testCache(t)
	item := &model.Item{Title: "Episode One", URL: "https://cdn.example.com/1.mp3", Author: "Test Cast", MediaType: "audio/mpeg"}
	require.NoError(t, c.RegisterFeed(&model.Feed{Name: "Test Cast", Items: []*model.Item{item}}))
	return c, item
}

func TestCache_Import(t *testing.T) {
	c, item := importFixture(t)

	dir := t.TempDir()
	writeAudioFile(t, dir, "track01.mp3")
	c.ReadTags = tagsByPath(map[string]media.Tags{
		"track01.mp3": {Title: "Episode One", Artist: "Test Cast"},
	})

	imported, err := c.Import(testCtx, dir, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.True(t, c.Cached(item))

	// The file was placed at the expected cache path
	_, err = os.Stat(filepath.Join(c.Dir(), "TestCast", "EpisodeOne.mp3"))
	assert.NoError(t, err)

	// Importing again registers nothing new
	imported, err = c.Import(testCtx, dir, false, false)
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
}

func TestCache_ImportArtistMismatch(t *testing.T) {
	c, item := importFixture(t)

	dir := t.TempDir()
	writeAudioFile(t, dir, "track01.mp3")
	c.ReadTags = tagsByPath(map[string]media.Tags{
		"track01.mp3": {Title: "Episode One", Artist: "Somebody Else"},
	})

	imported, err := c.Import(testCtx, dir, false, false)
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.False(t, c.Cached(item))

	// With the artist ignored the title match is enough
	imported, err = c.Import(testCtx, dir, false, true)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.True(t, c.Cached(item))
}

func TestCache_ImportAmbiguousSkipped(t *testing.T) {
	c := testCache(t)

	// The same title exists in two feeds, matching the artist to neither
	shared := "Crossover Special"
	require.NoError(t, c.RegisterFeed(&model.Feed{Name: "Cast A", Items: []*model.Item{
		{Title: shared, Author: "Cast A"},
	}}))
	require.NoError(t, c.RegisterFeed(&model.Feed{Name: "Cast B", Items: []*model.Item{
		{Title: shared, Author: "Cast B"},
	}}))

	dir := t.TempDir()
	writeAudioFile(t, dir, "track01.mp3")
	c.ReadTags = tagsByPath(map[string]media.Tags{
		"track01.mp3": {Title: shared},
	})

	// Ambiguity is never guessed
	imported, err := c.Import(testCtx, dir, false, false)
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
}

func TestCache_ImportRecursive(t *testing.T) {
	c, item := importFixture(t)

	dir := t.TempDir()
	nested := filepath.Join(dir, "old-phone", "podcasts")
	require.NoError(t, os.MkdirAll(nested, 0755))
	writeAudioFile(t, nested, "track01.mp3")
	writeAudioFile(t, nested, "notes.txt")

	c.ReadTags = tagsByPath(map[string]media.Tags{
		"track01.mp3": {Title: "episode one ", Artist: " test cast"},
	})

	// Flat import misses the nested file
	imported, err := c.Import(testCtx, dir, false, false)
	require.NoError(t, err)
	assert.Equal(t, 0, imported)

	// Recursive finds it, matching trims and case-folds
	imported, err = c.Import(testCtx, dir, true, false)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.True(t, c.Cached(item))
}
