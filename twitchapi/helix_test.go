package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/matchsync/discovery"
	"github.com/onnwee/matchsync/platform"
)

// newHelixServer serves /token, /users and /videos. videos maps a cursor ("" for
// the first page) to the page body.
func newHelixServer(t *testing.T, videos map[string]string) (*httptest.Server, *HelixClient) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "app-token", "expires_in": 3600})
	})
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Client-Id") != "test-client-id" {
			t.Errorf("missing or wrong Client-Id header")
		}
		if r.Header.Get("Authorization") != "Bearer app-token" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Query().Get("login") {
		case "vexrobotics":
			fmt.Fprint(w, `{"data":[{"id":"12345","login":"vexrobotics"}]}`)
		default:
			fmt.Fprint(w, `{"data":[]}`)
		}
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if id := q.Get("id"); id != "" {
			switch id {
			case "2071234567":
				fmt.Fprint(w, `{"data":[{"id":"2071234567","title":"Worlds","created_at":"2024-04-25T13:02:11Z","duration":"9h1m"}]}`)
			default:
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"error":"Not Found","status":404,"message":"video not found"}`)
			}
			return
		}
		if q.Get("user_id") != "12345" || q.Get("type") != "archive" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		body, ok := videos[q.Get("after")]
		if !ok {
			t.Errorf("unexpected cursor %q", q.Get("after"))
			body = `{"data":[]}`
		}
		fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	hc := NewHelixClient("test-client-id", "secret", srv.Client())
	hc.BaseURL = srv.URL
	hc.AppTokenSource.TokenURL = srv.URL + "/token"
	return srv, hc
}

func TestHelixClient_GetUserID(t *testing.T) {
	_, hc := newHelixServer(t, nil)
	tests := []struct {
		name        string
		login       string
		wantUserID  string
		errContains string
	}{
		{name: "successful user lookup", login: "vexrobotics", wantUserID: "12345"},
		{name: "user not found", login: "nonexistent", errContains: "user not found"},
		{name: "empty login", login: "", errContains: "login empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hc.GetUserID(context.Background(), tt.login)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("GetUserID() err = %v, want %q", err, tt.errContains)
				}
				return
			}
			if err != nil || got != tt.wantUserID {
				t.Errorf("GetUserID() = %q, %v", got, err)
			}
		})
	}
}

func TestHelixClient_SearchChannelBroadcasts(t *testing.T) {
	_, hc := newHelixServer(t, map[string]string{
		"": `{"data":[
			{"id":"300","title":"After event","created_at":"2024-05-10T13:00:00Z"},
			{"id":"201","title":"Worlds Day 2","created_at":"2024-04-26T13:00:00Z"}
		],"pagination":{"cursor":"c2"}}`,
		"c2": `{"data":[
			{"id":"200","title":"Worlds Day 1","created_at":"2024-04-25T13:00:00Z"},
			{"id":"100","title":"Older","created_at":"2024-03-01T13:00:00Z"}
		],"pagination":{"cursor":"c3"}}`,
	})
	ch := platform.Channel{Platform: platform.Twitch, Kind: platform.ChannelByLogin, Value: "vexrobotics"}
	start := time.Date(2024, 4, 24, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 29, 0, 0, 0, 0, time.UTC)

	got, err := hc.SearchChannelBroadcasts(context.Background(), ch, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].VideoID != "200" || got[1].VideoID != "201" {
		t.Fatalf("broadcasts = %+v", got)
	}
	if !got[0].PublishedAt.Equal(time.Date(2024, 4, 25, 13, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishedAt = %s", got[0].PublishedAt)
	}
}

func TestHelixClient_SearchUnknownChannel(t *testing.T) {
	_, hc := newHelixServer(t, nil)
	ch := platform.Channel{Platform: platform.Twitch, Kind: platform.ChannelByLogin, Value: "nobody"}
	_, err := hc.SearchChannelBroadcasts(context.Background(), ch, time.Now(), time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	if discovery.ClassifySearchError(err) != discovery.ErrorClassFatal {
		t.Errorf("unknown channel classified as %s", discovery.ClassifySearchError(err))
	}
}

func TestHelixClient_BroadcastStart(t *testing.T) {
	_, hc := newHelixServer(t, nil)

	got, err := hc.BroadcastStart(context.Background(), "2071234567")
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 4, 25, 13, 2, 11, 0, time.UTC); got == nil || !got.Equal(want) {
		t.Errorf("BroadcastStart = %v, want %s", got, want)
	}

	got, err = hc.BroadcastStart(context.Background(), "999")
	if err != nil || got != nil {
		t.Errorf("missing video = %v, %v; want nil, nil", got, err)
	}
}

func TestHelixClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			fmt.Fprint(w, `{"access_token":"t","expires_in":3600}`)
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	hc := NewHelixClient("id", "secret", srv.Client())
	hc.BaseURL = srv.URL
	hc.AppTokenSource.TokenURL = srv.URL + "/token"

	_, _, err := hc.ListVideos(context.Background(), "1", "", 0)
	if class := discovery.ClassifySearchError(err); err == nil || class != discovery.ErrorClassRetryable {
		t.Errorf("429 err = %v, class = %s", err, class)
	}
}
