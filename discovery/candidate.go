// Package discovery finds candidate livestreams for an event: it classifies the
// webcast links scraped from the event page, searches linked channels for
// broadcasts inside the event window, normalizes the results and provisions the
// initial stream pool. Network access happens only through the ChannelSearcher
// collaborators handed in by the caller.
package discovery

import (
	"time"

	"github.com/onnwee/matchsync/platform"
)

// Kind distinguishes the two candidate variants.
type Kind string

const (
	KindVideo   Kind = "video"
	KindChannel Kind = "channel"
)

// Source records where a candidate came from.
type Source string

const (
	SourcePage   Source = "page"
	SourceSearch Source = "search"
)

// Link is one raw (url, label) pair scraped from an event listing page.
type Link struct {
	URL   string `json:"url" yaml:"url"`
	Label string `json:"label" yaml:"label"`
}

// Candidate is a possible webcast. Video candidates carry Platform and VideoID;
// channel candidates carry Channel.
type Candidate struct {
	Kind         Kind              `json:"kind" yaml:"kind"`
	Platform     platform.Platform `json:"platform" yaml:"platform"`
	VideoID      string            `json:"videoId,omitempty" yaml:"videoId,omitempty"`
	Channel      *platform.Channel `json:"channel,omitempty" yaml:"channel,omitempty"`
	URL          string            `json:"url" yaml:"url"`
	Label        string            `json:"label,omitempty" yaml:"label,omitempty"`
	DivisionHint *int              `json:"divisionHint,omitempty" yaml:"divisionHint,omitempty"`
	PublishedAt  *time.Time        `json:"publishedAt,omitempty" yaml:"publishedAt,omitempty"`
	Source       Source            `json:"source" yaml:"source"`
}

// IsVideo reports whether c points at one playable video.
func (c Candidate) IsVideo() bool { return c.Kind == KindVideo && c.VideoID != "" }

// Video returns the platform reference of a video candidate.
func (c Candidate) Video() platform.Video {
	return platform.Video{Platform: c.Platform, ID: c.VideoID}
}

// Key identifies the candidate for deduplication.
func (c Candidate) Key() string {
	if c.Kind == KindChannel && c.Channel != nil {
		return c.Channel.Key()
	}
	return string(c.Platform) + ":" + c.VideoID
}

// WatchURL is the URL a stream provisioned from c should carry.
func (c Candidate) WatchURL() string {
	if c.URL != "" {
		return c.URL
	}
	return platform.WatchURL(c.Video())
}
