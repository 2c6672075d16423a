package robotevents

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/matchsync/event"
)

const eventJSON = `{"id":51234,"sku":"RE-VRC-23-1234","name":"VEX Worlds","start":"2024-04-25T00:00:00-05:00","end":"2024-04-27T00:00:00-05:00",
	"divisions":[{"id":2,"name":"Technology","order":2},{"id":1,"name":"Science","order":1}]}`

func newAPIServer(t *testing.T) *Client {
	t.Helper()
	mux := http.NewServeMux()
	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer re-token" {
				t.Errorf("Authorization = %q", got)
			}
			next(w, r)
		}
	}
	mux.HandleFunc("/events", auth(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("sku[]") {
		case "RE-VRC-23-1234":
			fmt.Fprintf(w, `{"meta":{"current_page":1,"last_page":1},"data":[%s]}`, eventJSON)
		default:
			fmt.Fprint(w, `{"meta":{"current_page":1,"last_page":1},"data":[]}`)
		}
	}))
	mux.HandleFunc("/events/51234", auth(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, eventJSON)
	}))
	mux.HandleFunc("/events/51234/divisions/1/matches", auth(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("per_page") != "250" {
			t.Errorf("per_page = %q", r.URL.Query().Get("per_page"))
		}
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `{"meta":{"current_page":1,"last_page":2},"data":[
				{"id":10,"division":{"id":1},"round":2,"instance":1,"matchnum":1,"name":"Qualifier #1",
				 "started":"2024-04-25T14:05:00Z","scheduled":"2024-04-25T14:00:00Z","scored":true,
				 "alliances":[{"color":"red","score":42,"teams":[{"team":{"id":1,"name":"1234A"}}]},
				              {"color":"blue","score":17,"teams":[{"team":{"id":2,"name":"5678B"}}]}]}]}`)
		case "2":
			fmt.Fprint(w, `{"meta":{"current_page":2,"last_page":2},"data":[
				{"id":11,"division":{"id":1},"round":2,"instance":1,"matchnum":2,"name":"Qualifier #2",
				 "started":"","scheduled":null,"scored":false,
				 "alliances":[{"color":"red","score":0,"teams":[]},{"color":"blue","score":0,"teams":[]}]}]}`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	}))
	mux.HandleFunc("/events/51234/divisions/2/matches", auth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := New("re-token", srv.Client())
	c.BaseURL = srv.URL
	return c
}

func TestClient_EventBySKU(t *testing.T) {
	c := newAPIServer(t)

	ev, err := c.EventBySKU(context.Background(), "RE-VRC-23-1234")
	if err != nil {
		t.Fatal(err)
	}
	if ev.ID != 51234 || ev.Name != "VEX Worlds" {
		t.Errorf("event = %+v", ev)
	}
	if want := time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC); !ev.Start.Equal(want) {
		t.Errorf("Start = %s, want %s", ev.Start, want)
	}
	if ev.DayCount() != 3 {
		t.Errorf("DayCount = %d, want 3", ev.DayCount())
	}
	if len(ev.Divisions) != 2 || ev.Divisions[0].Name != "Science" {
		t.Errorf("divisions not in display order: %+v", ev.Divisions)
	}

	if _, err := c.EventBySKU(context.Background(), "RE-VRC-00-0000"); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("unknown sku err = %v", err)
	}
}

func TestClient_ListDivisions(t *testing.T) {
	c := newAPIServer(t)
	divs, err := c.ListDivisions(context.Background(), 51234)
	if err != nil {
		t.Fatal(err)
	}
	if len(divs) != 2 || divs[1].ID != 2 {
		t.Errorf("divisions = %+v", divs)
	}
}

func TestClient_ListMatchesDrainsPages(t *testing.T) {
	c := newAPIServer(t)
	ms, err := c.ListMatches(context.Background(), 51234, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 2 {
		t.Fatalf("got %d matches, want 2", len(ms))
	}

	first := ms[0]
	if first.Started == nil || !first.Started.Equal(time.Date(2024, 4, 25, 14, 5, 0, 0, time.UTC)) {
		t.Errorf("Started = %v", first.Started)
	}
	if first.DivisionID == nil || *first.DivisionID != 1 {
		t.Errorf("DivisionID = %v", first.DivisionID)
	}
	if s := first.Alliances[0].Score; s == nil || *s != 42 {
		t.Errorf("red score = %v", s)
	}
	if !first.HasTeam("5678b") {
		t.Error("team 5678B missing")
	}

	second := ms[1]
	if second.Started != nil || second.Scheduled != nil {
		t.Errorf("empty timestamps not normalized: %v %v", second.Started, second.Scheduled)
	}
	if second.Timestamped() {
		t.Error("unplayed match reports a timestamp")
	}
	for _, a := range second.Alliances {
		if a.Score != nil {
			t.Errorf("unscored alliance %s has score %d", a.Color, *a.Score)
		}
	}
}

func TestClient_ListEventMatchesIsolatesDivisions(t *testing.T) {
	c := newAPIServer(t)
	ev, err := c.EventBySKU(context.Background(), "RE-VRC-23-1234")
	if err != nil {
		t.Fatal(err)
	}
	ms, err := c.ListEventMatches(context.Background(), ev)
	if len(ms) != 2 {
		t.Errorf("got %d matches from the healthy division, want 2", len(ms))
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Fatalf("err = %v, want wrapped 500", err)
	}
	if !strings.Contains(err.Error(), "division 2") {
		t.Errorf("err %q does not name the failing division", err)
	}
}

func TestClient_ListEventMatchesFetchesDivisions(t *testing.T) {
	c := newAPIServer(t)
	ms, err := c.ListEventMatches(context.Background(), event.Event{ID: 51234, SKU: "RE-VRC-23-1234"})
	if len(ms) != 2 {
		t.Errorf("got %d matches, want 2", len(ms))
	}
	if err == nil || !strings.Contains(err.Error(), "division 2") {
		t.Errorf("err = %v, want the failing division", err)
	}

	if _, err := c.ListEventMatches(context.Background(), event.Event{ID: 99}); err == nil {
		t.Error("expected error for unknown event")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-01T00:00:00-05:00", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-03-01T23:30:00+09:00", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-03-02", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
		{"soon", time.Time{}},
	}
	for _, tt := range tests {
		if got := parseDate(tt.in); !got.Equal(tt.want) {
			t.Errorf("parseDate(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
