package playlist

import (
	"math/rand"
	"sort"

	log "github.com/sirupsen/logrus"

	"podmix/pkg/history"
	"podmix/pkg/model"
)

// PlayheadFeed is a cursor over one feed's eligible episodes, ordered by
// publish date. Eligible means never listened to and passing the caller's
// predicate. It is built fresh for every generation run and thrown away after.
type PlayheadFeed struct {
	feed     *model.Feed
	playable []*model.Item
	playhead int
}

// NewPlayheadFeed filters and orders the feed's items. The predicate must be
// pure, it may be evaluated any number of times.
func NewPlayheadFeed(feed *model.Feed, hist *history.History, passes func(*model.Item) bool) *PlayheadFeed {
	playable := make([]*model.Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		if hist.ListenedTo(item) {
			continue
		}
		if passes != nil && !passes(item) {
			continue
		}

		if _, ok := item.Published(); !ok {
			// Keep it anyway, it sorts as equal to its neighbours
			log.Warnf("cannot determine episode order of %q (%s): unparsable date %q", item.Title, feed.Name, item.PubDate)
		}

		playable = append(playable, item)
	}

	// Stable so items with unparsable dates keep their feed order
	sort.SliceStable(playable, func(i, j int) bool {
		a, aOK := playable[i].Published()
		b, bOK := playable[j].Published()
		if !aOK || !bOK {
			return false
		}
		return a.Before(b)
	})

	return &PlayheadFeed{feed: feed, playable: playable}
}

func (p *PlayheadFeed) Feed() *model.Feed {
	return p.feed
}

// Finished is true once the cursor has run past the last eligible episode
func (p *PlayheadFeed) Finished() bool {
	return p.playhead >= len(p.playable)
}

// Current returns the episode under the cursor, nil when finished
func (p *PlayheadFeed) Current() *model.Item {
	if p.Finished() {
		return nil
	}
	return p.playable[p.playhead]
}

// Next returns the episode after the current one, nil when there is none
func (p *PlayheadFeed) Next() *model.Item {
	if p.playhead+1 >= len(p.playable) {
		return nil
	}
	return p.playable[p.playhead+1]
}

// Latest returns the most recently published eligible episode
func (p *PlayheadFeed) Latest() *model.Item {
	if len(p.playable) == 0 {
		return nil
	}
	return p.playable[len(p.playable)-1]
}

// Progress advances the cursor by one. Callers must check Finished first,
// advancing a finished cursor is not guarded here.
func (p *PlayheadFeed) Progress() {
	p.playhead++
}

// RandomUnlistened picks a uniformly random eligible episode, excluding the
// given ones. Returns nil when nothing remains.
func (p *PlayheadFeed) RandomUnlistened(ignore []*model.Item) *model.Item {
	available := make([]*model.Item, 0, len(p.playable))
	for _, item := range p.playable {
		skip := false
		for _, ignored := range ignore {
			if item == ignored {
				skip = true
				break
			}
		}
		if !skip {
			available = append(available, item)
		}
	}

	if len(available) == 0 {
		return nil
	}

	return available[rand.Intn(len(available))]
}
