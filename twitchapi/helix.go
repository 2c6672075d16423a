// Package twitchapi contains minimal helpers to interact with Twitch Helix APIs
// for channel archive search and broadcast start lookup, using an app access
// token.
package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/onnwee/matchsync/discovery"
	"github.com/onnwee/matchsync/platform"
	"github.com/onnwee/matchsync/telemetry"
)

const provider = "twitch"

// DefaultBaseURL is the Helix API root.
const DefaultBaseURL = "https://api.twitch.tv/helix"

// maxArchivePages bounds archive pagination; archives come newest first so the
// walk normally stops well before this.
const maxArchivePages = 10

// HelixClient provides the Helix calls needed for discovery and calibration.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	BaseURL        string
	HTTPClient     *http.Client
}

// NewHelixClient wires a client and its app token source from client
// credentials.
func NewHelixClient(clientID, clientSecret string, hc *http.Client) *HelixClient {
	return &HelixClient{
		AppTokenSource: &TokenSource{ClientID: clientID, ClientSecret: clientSecret, HTTPClient: hc},
		ClientID:       clientID,
		HTTPClient:     hc,
	}
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) base() string {
	if hc.BaseURL != "" {
		return hc.BaseURL
	}
	return DefaultBaseURL
}

// get performs an authenticated GET and decodes the JSON body into out.
func (hc *HelixClient) get(ctx context.Context, path string, q url.Values, out any) error {
	if hc.AppTokenSource == nil {
		return discovery.ErrNoCredential
	}
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.base()+path, nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		telemetry.RecordProviderRequest(provider, err)
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusUnauthorized {
			hc.AppTokenSource.Invalidate()
		}
		err := &StatusError{Path: path, Code: resp.StatusCode, Body: string(b)}
		telemetry.RecordProviderRequest(provider, err)
		return err
	}
	telemetry.RecordProviderRequest(provider, nil)
	return json.NewDecoder(resp.Body).Decode(out)
}

// StatusError is a non-200 Helix response.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("helix %s: status %d: %s", e.Path, e.Code, e.Body)
}

// GetUserID resolves a login name to its user ID.
func (hc *HelixClient) GetUserID(ctx context.Context, login string) (string, error) {
	if login == "" {
		return "", fmt.Errorf("login empty")
	}
	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := hc.get(ctx, "/users", url.Values{"login": {login}}, &body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", fmt.Errorf("user not found")
	}
	return body.Data[0].ID, nil
}

// VideoMeta is one Helix video record.
type VideoMeta struct {
	ID, Title, Duration string
	CreatedAt           time.Time
}

type videosBody struct {
	Data []struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		Duration  string `json:"duration"`
		CreatedAt string `json:"created_at"`
	} `json:"data"`
	Pagination struct {
		Cursor string `json:"cursor"`
	} `json:"pagination"`
}

func (b videosBody) metas() []VideoMeta {
	out := make([]VideoMeta, 0, len(b.Data))
	for _, v := range b.Data {
		m := VideoMeta{ID: v.ID, Title: v.Title, Duration: v.Duration}
		if t, err := time.Parse(time.RFC3339, v.CreatedAt); err == nil {
			m.CreatedAt = t.UTC()
		}
		out = append(out, m)
	}
	return out
}

// ListVideos lists archive videos for a user, newest first.
func (hc *HelixClient) ListVideos(ctx context.Context, userID, after string, first int) ([]VideoMeta, string, error) {
	if userID == "" {
		return nil, "", fmt.Errorf("userID empty")
	}
	if first <= 0 {
		first = 20
	}
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("type", "archive")
	q.Set("first", strconv.Itoa(first))
	if after != "" {
		q.Set("after", after)
	}
	var body videosBody
	if err := hc.get(ctx, "/videos", q, &body); err != nil {
		return nil, "", err
	}
	return body.metas(), body.Pagination.Cursor, nil
}

// SearchChannelBroadcasts returns the channel's archived broadcasts that began
// inside [start, end], oldest first.
func (hc *HelixClient) SearchChannelBroadcasts(ctx context.Context, ch platform.Channel, start, end time.Time) ([]discovery.Broadcast, error) {
	if ch.Platform != platform.Twitch {
		return nil, fmt.Errorf("twitch: not a twitch channel: %s", ch.URL)
	}
	userID, err := hc.GetUserID(ctx, ch.Value)
	if err != nil {
		return nil, fmt.Errorf("twitch user %s: %w", ch.Value, err)
	}
	var out []discovery.Broadcast
	cursor := ""
	for page := 0; page < maxArchivePages; page++ {
		vids, next, err := hc.ListVideos(ctx, userID, cursor, 100)
		if err != nil {
			return out, err
		}
		older := false
		for _, v := range vids {
			if v.CreatedAt.IsZero() || v.CreatedAt.After(end) {
				continue
			}
			if v.CreatedAt.Before(start) {
				older = true
				continue
			}
			out = append(out, discovery.Broadcast{VideoID: v.ID, Title: v.Title, PublishedAt: v.CreatedAt})
		}
		if older || next == "" {
			break
		}
		cursor = next
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// BroadcastStart returns when an archived broadcast went live. For archives
// Helix's created_at is the stream start. Unknown videos yield nil.
func (hc *HelixClient) BroadcastStart(ctx context.Context, videoID string) (*time.Time, error) {
	var body videosBody
	if err := hc.get(ctx, "/videos", url.Values{"id": {videoID}}, &body); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	metas := body.metas()
	if len(metas) == 0 || metas[0].CreatedAt.IsZero() {
		return nil, nil
	}
	t := metas[0].CreatedAt
	return &t, nil
}
