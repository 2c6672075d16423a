package discovery

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/onnwee/matchsync/event"
	"github.com/onnwee/matchsync/platform"
)

// ErrNoCredential is returned by a searcher that has no API credential. It is a
// skip condition, not a failure.
var ErrNoCredential = errors.New("no search credential configured")

// windowBuffer widens the search window on both sides to absorb timezone slop
// and pre-show streams.
const windowBuffer = 24 * time.Hour

// Broadcast is one search hit.
type Broadcast struct {
	VideoID     string    `json:"videoId"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"publishedAt"`
}

// ChannelSearcher lists a channel's broadcasts published inside [start, end].
type ChannelSearcher interface {
	SearchChannelBroadcasts(ctx context.Context, ch platform.Channel, start, end time.Time) ([]Broadcast, error)
}

// Searchers dispatches by platform. A missing entry is treated like
// ErrNoCredential.
type Searchers map[platform.Platform]ChannelSearcher

// SearchWindow returns [eventStart - 1 day, eventEnd + 1 day).
// The end bound covers the whole final day.
func SearchWindow(ev event.Event) (start, end time.Time) {
	s := event.CalendarDate(ev.Start)
	e := event.CalendarDate(ev.End)
	if e.Before(s) {
		e = s
	}
	return s.Add(-windowBuffer), e.Add(24*time.Hour + windowBuffer)
}

// broadcastCandidates converts search hits to video candidates in publish
// order. Each hit takes the channel's division hint, or one derived from its
// title when the channel has none.
func broadcastCandidates(ev event.Event, ch Candidate, hits []Broadcast) []Candidate {
	sorted := make([]Broadcast, 0, len(hits))
	for _, h := range hits {
		if h.VideoID != "" {
			sorted = append(sorted, h)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PublishedAt.Before(sorted[j].PublishedAt) })

	out := make([]Candidate, 0, len(sorted))
	for _, h := range sorted {
		hint := copyHint(ch.DivisionHint)
		if hint == nil {
			hint = DivisionHint(ev, h.Title)
		}
		published := h.PublishedAt
		c := Candidate{
			Kind:         KindVideo,
			Platform:     ch.Platform,
			VideoID:      h.VideoID,
			Label:        h.Title,
			DivisionHint: hint,
			Source:       SourceSearch,
		}
		if !published.IsZero() {
			c.PublishedAt = &published
		}
		c.URL = platform.WatchURL(c.Video())
		out = append(out, c)
	}
	return out
}

func copyHint(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
