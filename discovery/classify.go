package discovery

import (
	"strings"

	"github.com/onnwee/matchsync/event"
	"github.com/onnwee/matchsync/platform"
)

// Classify turns scraped links into candidates. Direct video URLs win over
// channel pages; anything else is dropped. Duplicate links (same video or same
// channel) keep their first occurrence. The result is in link order.
func Classify(ev event.Event, links []Link) []Candidate {
	var out []Candidate
	seen := make(map[string]bool)
	for _, l := range links {
		c, ok := classifyLink(ev, l)
		if !ok || seen[c.Key()] {
			continue
		}
		seen[c.Key()] = true
		out = append(out, c)
	}
	return out
}

func classifyLink(ev event.Event, l Link) (Candidate, bool) {
	label := strings.TrimSpace(l.Label)
	if v, ok := platform.ParseVideo(l.URL); ok {
		return Candidate{
			Kind:         KindVideo,
			Platform:     v.Platform,
			VideoID:      v.ID,
			URL:          strings.TrimSpace(l.URL),
			Label:        label,
			DivisionHint: DivisionHint(ev, label),
			Source:       SourcePage,
		}, true
	}
	if ch, ok := platform.ParseChannel(l.URL); ok {
		return Candidate{
			Kind:         KindChannel,
			Platform:     ch.Platform,
			Channel:      &ch,
			URL:          ch.URL,
			Label:        label,
			DivisionHint: DivisionHint(ev, label),
			Source:       SourcePage,
		}, true
	}
	return Candidate{}, false
}

// DivisionHint matches text against the event's division names,
// case-insensitively. When several names occur the longest wins (so
// "Technology Middle School" beats "Technology"), ties going to the division
// listed first. It returns nil when no name occurs in text.
func DivisionHint(ev event.Event, text string) *int {
	lower := strings.ToLower(text)
	if lower == "" {
		return nil
	}
	var best *event.Division
	for i := range ev.Divisions {
		d := &ev.Divisions[i]
		name := strings.ToLower(strings.TrimSpace(d.Name))
		if name == "" || !strings.Contains(lower, name) {
			continue
		}
		if best == nil || len(name) > len(strings.TrimSpace(best.Name)) {
			best = d
		}
	}
	if best == nil {
		return nil
	}
	id := best.ID
	return &id
}
