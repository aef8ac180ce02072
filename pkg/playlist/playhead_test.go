package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podmix/pkg/history"
	"podmix/pkg/model"
)

func makeFeed(name string, titles ...string) *model.Feed {
	feed := &model.Feed{Name: name, URL: "https://example.com/" + name}
	for i, title := range titles {
		feed.Items = append(feed.Items, &model.Item{
			Title:   title,
			URL:     "https://cdn.example.com/" + name + "/" + title,
			PubDate: "Mon, 0" + string(rune('1'+i)) + " Feb 2021 10:00:00 +0000",
			Author:  name,
			Type:    model.EpisodeFull,
		})
	}
	return feed
}

func emptyHistory() *history.History {
	return history.New(nil)
}

func TestPlayheadFeed_Ordering(t *testing.T) {
	feed := &model.Feed{Name: "A"}
	for _, pubdate := range []string{
		"Fri, 01 Jan 2021 10:00:00 +0000",
		"Mon, 01 Mar 2021 10:00:00 +0000",
		"Mon, 01 Feb 2021 10:00:00 +0000",
	} {
		feed.Items = append(feed.Items, &model.Item{Title: pubdate, PubDate: pubdate, Author: "A", URL: "u" + pubdate})
	}

	ph := NewPlayheadFeed(feed, emptyHistory(), nil)

	var months []int
	for !ph.Finished() {
		published, ok := ph.Current().Published()
		require.True(t, ok)
		months = append(months, int(published.Month()))
		ph.Progress()
	}

	assert.Equal(t, []int{1, 2, 3}, months)
}

func TestPlayheadFeed_UnparsableDatesKept(t *testing.T) {
	feed := &model.Feed{Name: "A", Items: []*model.Item{
		{Title: "first", PubDate: "not a date", Author: "A", URL: "u1"},
		{Title: "second", PubDate: "also not a date", Author: "A", URL: "u2"},
	}}

	ph := NewPlayheadFeed(feed, emptyHistory(), nil)

	// Never dropped, stable order preserved
	assert.Equal(t, "first", ph.Current().Title)
	ph.Progress()
	assert.Equal(t, "second", ph.Current().Title)
	ph.Progress()
	assert.True(t, ph.Finished())
}

func TestPlayheadFeed_HistoryExcluded(t *testing.T) {
	feed := makeFeed("A", "one", "two", "three")
	hist := history.New([]history.Item{{EpisodeName: "two", PodcastName: "A"}})

	ph := NewPlayheadFeed(feed, hist, nil)

	assert.Equal(t, "one", ph.Current().Title)
	ph.Progress()
	assert.Equal(t, "three", ph.Current().Title)
	ph.Progress()
	assert.True(t, ph.Finished())
}

func TestPlayheadFeed_Accessors(t *testing.T) {
	ph := NewPlayheadFeed(makeFeed("A", "one", "two", "three"), emptyHistory(), nil)

	assert.Equal(t, "one", ph.Current().Title)
	assert.Equal(t, "two", ph.Next().Title)
	assert.Equal(t, "three", ph.Latest().Title)
	assert.False(t, ph.Finished())

	ph.Progress()
	ph.Progress()
	assert.Equal(t, "three", ph.Current().Title)
	assert.Nil(t, ph.Next())

	ph.Progress()
	assert.True(t, ph.Finished())
	assert.Nil(t, ph.Current())
	assert.Equal(t, "three", ph.Latest().Title)
}

func TestPlayheadFeed_Predicate(t *testing.T) {
	ph := NewPlayheadFeed(makeFeed("A", "keep", "drop me", "keep too"), emptyHistory(), func(item *model.Item) bool {
		return item.Title != "drop me"
	})

	var titles []string
	for !ph.Finished() {
		titles = append(titles, ph.Current().Title)
		ph.Progress()
	}

	assert.Equal(t, []string{"keep", "keep too"}, titles)
}

func TestPlayheadFeed_RandomUnlistened(t *testing.T) {
	feed := makeFeed("A", "one", "two")
	ph := NewPlayheadFeed(feed, emptyHistory(), nil)

	picked := ph.RandomUnlistened(nil)
	require.NotNil(t, picked)

	// Excluding everything leaves nothing to pick
	assert.Nil(t, ph.RandomUnlistened(feed.Items))

	// Excluding one forces the other
	only := ph.RandomUnlistened(feed.Items[:1])
	require.NotNil(t, only)
	assert.Equal(t, "two", only.Title)
}
