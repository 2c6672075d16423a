package platform

import "testing"

func TestParseVideo(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   Video
		wantOK bool
	}{
		{"watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", Video{YouTube, "dQw4w9WgXcQ"}, true},
		{"watch extra params", "https://youtube.com/watch?feature=share&v=dQw4w9WgXcQ&t=30", Video{YouTube, "dQw4w9WgXcQ"}, true},
		{"short link", "https://youtu.be/dQw4w9WgXcQ?si=abc", Video{YouTube, "dQw4w9WgXcQ"}, true},
		{"live form", "https://www.youtube.com/live/dQw4w9WgXcQ?feature=shared", Video{YouTube, "dQw4w9WgXcQ"}, true},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", Video{YouTube, "dQw4w9WgXcQ"}, true},
		{"mobile host", "m.youtube.com/watch?v=dQw4w9WgXcQ", Video{YouTube, "dQw4w9WgXcQ"}, true},
		{"twitch vod", "https://www.twitch.tv/videos/2071234567", Video{Twitch, "2071234567"}, true},
		{"twitch player", "https://player.twitch.tv/?video=v2071234567&parent=x", Video{Twitch, "2071234567"}, true},
		{"bad id length", "https://www.youtube.com/watch?v=short", Video{}, false},
		{"channel is not video", "https://www.youtube.com/@vexrobotics/live", Video{}, false},
		{"other host", "https://vimeo.com/12345", Video{}, false},
		{"empty", "", Video{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseVideo(tt.raw)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseVideo(%q) = %+v, %v; want %+v, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseChannel(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind ChannelKind
		wantVal  string
		wantOK   bool
	}{
		{"handle", "https://www.youtube.com/@VEXRobotics", ChannelByHandle, "@VEXRobotics", true},
		{"handle live tab", "https://www.youtube.com/@VEXRobotics/streams", ChannelByHandle, "@VEXRobotics", true},
		{"channel id", "https://www.youtube.com/channel/UCabcdefghijklmnopqrstuv", ChannelByID, "UCabcdefghijklmnopqrstuv", true},
		{"custom", "https://www.youtube.com/c/RECFoundation", ChannelByCustom, "RECFoundation", true},
		{"user", "https://www.youtube.com/user/vexrobotics/live", ChannelByUser, "vexrobotics", true},
		{"twitch login", "https://twitch.tv/VEXRobotics", ChannelByLogin, "vexrobotics", true},
		{"twitch reserved", "https://www.twitch.tv/directory", "", "", false},
		{"malformed channel id", "https://www.youtube.com/channel/abc", "", "", false},
		{"root", "https://www.youtube.com/", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseChannel(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ParseChannel(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if ok && (got.Kind != tt.wantKind || got.Value != tt.wantVal) {
				t.Errorf("ParseChannel(%q) = %+v, want kind %s value %s", tt.raw, got, tt.wantKind, tt.wantVal)
			}
		})
	}
}

func TestChannelKey(t *testing.T) {
	a, _ := ParseChannel("https://www.youtube.com/@VEX")
	b, _ := ParseChannel("youtube.com/@vex/live")
	if a.Key() != b.Key() {
		t.Errorf("keys differ: %s vs %s", a.Key(), b.Key())
	}
}

func TestWatchURL(t *testing.T) {
	if got := WatchURL(Video{YouTube, "dQw4w9WgXcQ"}); got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("youtube WatchURL = %s", got)
	}
	if got := WatchURL(Video{Twitch, "123456"}); got != "https://www.twitch.tv/videos/123456" {
		t.Errorf("twitch WatchURL = %s", got)
	}
}
