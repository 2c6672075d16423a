// Package youtubeapi wraps the YouTube Data API for the two questions discovery
// and calibration ask of YouTube: which broadcasts a channel published during an
// event window, and when a given livestream actually went live. Only a public
// API key is needed; no OAuth consent flow is involved.
package youtubeapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/onnwee/matchsync/discovery"
	"github.com/onnwee/matchsync/platform"
	"github.com/onnwee/matchsync/telemetry"
)

const provider = "youtube"

// DefaultMaxPages bounds search pagination (50 results per page).
const DefaultMaxPages = 4

type Client struct {
	svc      *yt.Service
	MaxPages int

	mu       sync.Mutex
	channels map[string]string // channel key -> UC id
}

// New builds a client authenticated with apiKey. Extra options (endpoint,
// HTTP client) are appended, which is how tests point it at a local server.
// An empty key yields discovery.ErrNoCredential.
func New(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, discovery.ErrNoCredential
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &Client{svc: svc, MaxPages: DefaultMaxPages, channels: make(map[string]string)}, nil
}

// ResolveChannelID maps any recognized channel URL form to its UC... id.
// Resolved ids are memoized for the life of the client.
func (c *Client) ResolveChannelID(ctx context.Context, ch platform.Channel) (string, error) {
	if ch.Kind == platform.ChannelByID {
		return ch.Value, nil
	}
	c.mu.Lock()
	id, ok := c.channels[ch.Key()]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	switch ch.Kind {
	case platform.ChannelByHandle, platform.ChannelByUser:
		call := c.svc.Channels.List([]string{"id"}).Context(ctx)
		if ch.Kind == platform.ChannelByHandle {
			call = call.ForHandle(ch.Value)
		} else {
			call = call.ForUsername(ch.Value)
		}
		res, err := call.Do()
		telemetry.RecordProviderRequest(provider, err)
		if err != nil {
			return "", fmt.Errorf("youtube channels %s: %w", ch.Value, err)
		}
		if len(res.Items) > 0 {
			id = res.Items[0].Id
		}
	case platform.ChannelByCustom:
		// custom URLs have no lookup endpoint; the top channel search hit is the
		// best available answer
		res, err := c.svc.Search.List([]string{"snippet"}).Context(ctx).Type("channel").Q(ch.Value).MaxResults(1).Do()
		telemetry.RecordProviderRequest(provider, err)
		if err != nil {
			return "", fmt.Errorf("youtube channel search %s: %w", ch.Value, err)
		}
		if len(res.Items) > 0 && res.Items[0].Snippet != nil {
			id = res.Items[0].Snippet.ChannelId
		}
	default:
		return "", fmt.Errorf("youtube: unsupported channel kind %q", ch.Kind)
	}
	if id == "" {
		return "", fmt.Errorf("youtube channel %s not found", ch.Value)
	}
	c.mu.Lock()
	c.channels[ch.Key()] = id
	c.mu.Unlock()
	return id, nil
}

// SearchChannelBroadcasts lists videos the channel published inside
// [start, end], oldest first.
func (c *Client) SearchChannelBroadcasts(ctx context.Context, ch platform.Channel, start, end time.Time) ([]discovery.Broadcast, error) {
	if ch.Platform != platform.YouTube {
		return nil, fmt.Errorf("youtube: not a youtube channel: %s", ch.URL)
	}
	channelID, err := c.ResolveChannelID(ctx, ch)
	if err != nil {
		return nil, err
	}

	maxPages := c.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	var out []discovery.Broadcast
	pageToken := ""
	for page := 0; page < maxPages; page++ {
		call := c.svc.Search.List([]string{"snippet"}).Context(ctx).
			ChannelId(channelID).
			Type("video").
			Order("date").
			PublishedAfter(start.UTC().Format(time.RFC3339)).
			PublishedBefore(end.UTC().Format(time.RFC3339)).
			MaxResults(50)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		telemetry.RecordProviderRequest(provider, err)
		if err != nil {
			return out, fmt.Errorf("youtube search %s: %w", channelID, err)
		}
		for _, item := range res.Items {
			if item.Id == nil || item.Id.VideoId == "" {
				continue
			}
			b := discovery.Broadcast{VideoID: item.Id.VideoId}
			if item.Snippet != nil {
				b.Title = item.Snippet.Title
				if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
					b.PublishedAt = t.UTC()
				}
			}
			out = append(out, b)
		}
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}
	// API order is newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	slog.Debug("youtube channel search", slog.String("channel", channelID), slog.Int("results", len(out)))
	return out, nil
}

// BroadcastStart returns liveStreamingDetails.actualStartTime, or nil when the
// video is unknown, private, or was never a livestream.
func (c *Client) BroadcastStart(ctx context.Context, videoID string) (*time.Time, error) {
	res, err := c.svc.Videos.List([]string{"liveStreamingDetails"}).Context(ctx).Id(videoID).Do()
	telemetry.RecordProviderRequest(provider, err)
	if err != nil {
		return nil, fmt.Errorf("youtube videos %s: %w", videoID, err)
	}
	if len(res.Items) == 0 {
		return nil, nil
	}
	details := res.Items[0].LiveStreamingDetails
	if details == nil || details.ActualStartTime == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, details.ActualStartTime)
	if err != nil {
		return nil, fmt.Errorf("youtube videos %s: bad actualStartTime %q: %w", videoID, details.ActualStartTime, err)
	}
	t = t.UTC()
	return &t, nil
}
