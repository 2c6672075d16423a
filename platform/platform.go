// Package platform recognizes video-platform URLs: direct video links and
// channel pages on YouTube and Twitch.
package platform

import (
	"net/url"
	"regexp"
	"strings"
)

// Platform names a video host.
type Platform string

const (
	YouTube Platform = "youtube"
	Twitch  Platform = "twitch"
)

// ChannelKind says how a channel was referenced in its URL.
type ChannelKind string

const (
	ChannelByID     ChannelKind = "id"     // youtube.com/channel/UC...
	ChannelByHandle ChannelKind = "handle" // youtube.com/@handle
	ChannelByUser   ChannelKind = "user"   // youtube.com/user/name
	ChannelByCustom ChannelKind = "custom" // youtube.com/c/name
	ChannelByLogin  ChannelKind = "login"  // twitch.tv/login
)

// Video is a direct link to one video or VOD.
type Video struct {
	Platform Platform `json:"platform" yaml:"platform"`
	ID       string   `json:"id" yaml:"id"`
}

// Channel is a link to a channel or user page.
type Channel struct {
	Platform Platform    `json:"platform" yaml:"platform"`
	Kind     ChannelKind `json:"kind" yaml:"kind"`
	Value    string      `json:"value" yaml:"value"`
	URL      string      `json:"url" yaml:"url"`
}

// Key identifies the channel independent of URL formatting.
func (c Channel) Key() string {
	return string(c.Platform) + ":" + string(c.Kind) + ":" + strings.ToLower(c.Value)
}

var (
	youtubeIDPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	youtubeChannelID     = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)
	twitchVideoIDPattern = regexp.MustCompile(`^v?([0-9]{5,})$`)
	twitchLoginPattern   = regexp.MustCompile(`^[A-Za-z0-9_]{3,25}$`)
)

// twitch paths that look like logins but are site sections.
var twitchReserved = map[string]bool{
	"videos": true, "directory": true, "p": true, "settings": true, "downloads": true,
	"jobs": true, "search": true, "subscriptions": true, "inventory": true, "wallet": true,
	"friends": true, "messages": true, "turbo": true, "login": true, "signup": true,
}

func parse(raw string) (*url.URL, string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, "", false
	}
	host := strings.ToLower(u.Hostname())
	for _, p := range []string{"www.", "m.", "music."} {
		host = strings.TrimPrefix(host, p)
	}
	return u, host, true
}

func segments(u *url.URL) []string {
	var out []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseVideo extracts a platform video id from the known URL shapes:
// youtube.com/watch?v=ID, youtu.be/ID, youtube.com/live/ID, youtube.com/embed/ID,
// twitch.tv/videos/ID and player.twitch.tv/?video=vID.
func ParseVideo(raw string) (Video, bool) {
	u, host, ok := parse(raw)
	if !ok {
		return Video{}, false
	}
	segs := segments(u)
	switch host {
	case "youtube.com", "youtube-nocookie.com":
		if len(segs) == 1 && segs[0] == "watch" {
			return youtubeVideo(u.Query().Get("v"))
		}
		if len(segs) >= 2 {
			switch segs[0] {
			case "live", "embed", "v", "shorts":
				return youtubeVideo(segs[1])
			}
		}
	case "youtu.be":
		if len(segs) >= 1 {
			return youtubeVideo(segs[0])
		}
	case "twitch.tv":
		if len(segs) >= 2 && segs[0] == "videos" {
			return twitchVideo(segs[1])
		}
		// twitch.tv/<login>/v/<id> is an older share form
		if len(segs) == 3 && segs[1] == "v" {
			return twitchVideo(segs[2])
		}
	case "player.twitch.tv":
		return twitchVideo(u.Query().Get("video"))
	}
	return Video{}, false
}

func youtubeVideo(id string) (Video, bool) {
	if !youtubeIDPattern.MatchString(id) {
		return Video{}, false
	}
	return Video{Platform: YouTube, ID: id}, true
}

func twitchVideo(id string) (Video, bool) {
	m := twitchVideoIDPattern.FindStringSubmatch(id)
	if m == nil {
		return Video{}, false
	}
	return Video{Platform: Twitch, ID: m[1]}, true
}

// ParseChannel recognizes channel/user pages by path shape. Trailing sections
// such as /live, /streams or /videos are ignored.
func ParseChannel(raw string) (Channel, bool) {
	u, host, ok := parse(raw)
	if !ok {
		return Channel{}, false
	}
	segs := segments(u)
	if len(segs) == 0 {
		return Channel{}, false
	}
	switch host {
	case "youtube.com":
		first := segs[0]
		if strings.HasPrefix(first, "@") && len(first) > 1 {
			return Channel{Platform: YouTube, Kind: ChannelByHandle, Value: first, URL: "https://www.youtube.com/" + first}, true
		}
		if len(segs) < 2 {
			return Channel{}, false
		}
		switch first {
		case "channel":
			if youtubeChannelID.MatchString(segs[1]) {
				return Channel{Platform: YouTube, Kind: ChannelByID, Value: segs[1], URL: "https://www.youtube.com/channel/" + segs[1]}, true
			}
		case "c":
			return Channel{Platform: YouTube, Kind: ChannelByCustom, Value: segs[1], URL: "https://www.youtube.com/c/" + segs[1]}, true
		case "user":
			return Channel{Platform: YouTube, Kind: ChannelByUser, Value: segs[1], URL: "https://www.youtube.com/user/" + segs[1]}, true
		}
	case "twitch.tv":
		login := segs[0]
		if twitchReserved[strings.ToLower(login)] || !twitchLoginPattern.MatchString(login) {
			return Channel{}, false
		}
		login = strings.ToLower(login)
		return Channel{Platform: Twitch, Kind: ChannelByLogin, Value: login, URL: "https://www.twitch.tv/" + login}, true
	}
	return Channel{}, false
}

// WatchURL builds the canonical playback URL for a video.
func WatchURL(v Video) string {
	switch v.Platform {
	case YouTube:
		return "https://www.youtube.com/watch?v=" + v.ID
	case Twitch:
		return "https://www.twitch.tv/videos/" + v.ID
	}
	return ""
}
