package stream

import (
	"testing"
	"time"

	"github.com/onnwee/matchsync/event"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func tsp(s string) *time.Time {
	t := ts(s)
	return &t
}

func intp(v int) *int { return &v }

var twoDayEvent = event.Event{
	ID:    1,
	SKU:   "RE-VRC-23-0001",
	Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	Divisions: []event.Division{
		{ID: 1, Name: "Science"},
		{ID: 2, Name: "Technology"},
	},
}

func calibrated(id string, origin string, div, day *int) Stream {
	return Stream{ID: id, VideoID: "dQw4w9WgXcQ", DivisionID: div, DayIndex: day, Origin: tsp(origin)}
}

func TestResolve_ScenarioSingleStream(t *testing.T) {
	pool := Pool{calibrated("s1", "2024-03-01T09:00:00Z", nil, nil)}
	m := event.Match{Name: "Qualifier #4", Started: tsp("2024-03-01T09:35:20Z")}

	got := Resolve(twoDayEvent, m, pool)
	if got.Blocked {
		t.Fatalf("unexpected blocked result: %s", got.Reason)
	}
	if got.StreamID != "s1" || got.SeekSeconds != 2120 {
		t.Errorf("Resolve() = %+v, want s1 @ 2120", got)
	}
}

func TestResolve_ScenarioClosestPredecessor(t *testing.T) {
	pool := Pool{
		calibrated("late", "2024-03-01T09:10:00Z", nil, intp(0)),
		calibrated("early", "2024-03-01T09:00:00Z", nil, intp(0)),
	}
	m := event.Match{Name: "Qualifier #1", Started: tsp("2024-03-01T09:05:00Z")}

	got := Resolve(twoDayEvent, m, pool)
	if got.StreamID != "early" || got.SeekSeconds != 300 {
		t.Errorf("Resolve() = %+v, want early @ 300", got)
	}
}

func TestResolve_PrefersLatestOriginNotAfterMatch(t *testing.T) {
	pool := Pool{
		calibrated("a", "2024-03-01T08:00:00Z", nil, nil),
		calibrated("b", "2024-03-01T12:00:00Z", nil, nil),
		calibrated("c", "2024-03-01T13:30:00Z", nil, nil),
	}
	m := event.Match{Started: tsp("2024-03-01T13:00:00Z")}
	got := Resolve(twoDayEvent, m, pool)
	if got.StreamID != "b" || got.SeekSeconds != 3600 {
		t.Errorf("Resolve() = %+v, want b @ 3600", got)
	}
}

func TestResolve_NarrowsByDivisionAndDay(t *testing.T) {
	pool := Pool{
		calibrated("sci-d0", "2024-03-01T08:00:00Z", intp(1), intp(0)),
		calibrated("sci-d1", "2024-03-02T08:00:00Z", intp(1), intp(1)),
		calibrated("tech-d1", "2024-03-02T08:30:00Z", intp(2), intp(1)),
	}
	m := event.Match{DivisionID: intp(1), Started: tsp("2024-03-02T09:00:00Z")}
	got := Resolve(twoDayEvent, m, pool)
	if got.StreamID != "sci-d1" || got.SeekSeconds != 3600 {
		t.Errorf("Resolve() = %+v, want sci-d1 @ 3600", got)
	}
}

func TestResolve_WidensWhenNarrowingEmpties(t *testing.T) {
	pool := Pool{calibrated("tech", "2024-03-01T08:00:00Z", intp(2), intp(0))}
	m := event.Match{DivisionID: intp(1), Started: tsp("2024-03-01T09:00:00Z")}
	got := Resolve(twoDayEvent, m, pool)
	if got.Blocked || got.StreamID != "tech" {
		t.Errorf("Resolve() = %+v, want widened to tech", got)
	}
}

func TestResolve_Blocked(t *testing.T) {
	tests := []struct {
		name       string
		pool       Pool
		match      event.Match
		wantReason string
	}{
		{
			name:       "no timestamp",
			pool:       Pool{calibrated("s", "2024-03-01T08:00:00Z", nil, nil)},
			match:      event.Match{Name: "Final #1-1"},
			wantReason: ReasonNotPlayed,
		},
		{
			name:       "no streams",
			match:      event.Match{Started: tsp("2024-03-01T09:00:00Z")},
			wantReason: ReasonNoCalibrated,
		},
		{
			name:       "none calibrated",
			pool:       Pool{{ID: "s", VideoID: "dQw4w9WgXcQ"}},
			match:      event.Match{Started: tsp("2024-03-01T09:00:00Z")},
			wantReason: ReasonNoCalibrated,
		},
		{
			name: "all streams start after match",
			pool: Pool{
				calibrated("s1", "2024-03-01T10:00:00Z", nil, nil),
				calibrated("s2", "2024-03-01T09:30:00Z", nil, nil),
			},
			match:      event.Match{Started: tsp("2024-03-01T09:00:00Z")},
			wantReason: "stream started at 09:30, but match was at 09:00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(twoDayEvent, tt.match, tt.pool)
			if !got.Blocked {
				t.Fatalf("Resolve() = %+v, want blocked", got)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", got.Reason, tt.wantReason)
			}
			if got.SeekSeconds < 0 {
				t.Errorf("negative seek %d", got.SeekSeconds)
			}
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	pool := Pool{
		calibrated("a", "2024-03-01T09:00:00Z", nil, nil),
		calibrated("b", "2024-03-01T09:00:00Z", nil, nil),
	}
	m := event.Match{Started: tsp("2024-03-01T10:00:00Z")}
	first := Resolve(twoDayEvent, m, pool)
	for i := 0; i < 10; i++ {
		if got := Resolve(twoDayEvent, m, pool); got != first {
			t.Fatalf("call %d = %+v, want %+v", i, got, first)
		}
	}
	if first.StreamID != "a" {
		t.Errorf("tie broken towards %s, want first in pool order", first.StreamID)
	}
}

func TestResolve_NeverNegative(t *testing.T) {
	origins := []string{"2024-03-01T08:00:00Z", "2024-03-01T12:00:00Z", "2024-03-02T09:00:00Z"}
	var pool Pool
	for i, o := range origins {
		pool = pool.With(calibrated(string(rune('a'+i)), o, nil, nil))
	}
	for h := 0; h < 48; h++ {
		start := twoDayEvent.Start.Add(time.Duration(h) * time.Hour)
		r := Resolve(twoDayEvent, event.Match{Started: &start}, pool)
		if r.SeekSeconds < 0 {
			t.Fatalf("hour %d: negative seek %+v", h, r)
		}
		if !r.Blocked && r.StreamID == "" {
			t.Fatalf("hour %d: resolved without stream", h)
		}
	}
}

func TestResolve_CalibrationRoundTrip(t *testing.T) {
	matchTime := ts("2024-03-01T14:22:05Z")
	for _, p := range []float64{0, 1, 59.4, 3600, 7322.9} {
		s, err := CalibrateManual(New("x", nil, nil), matchTime, p)
		if err != nil {
			t.Fatalf("CalibrateManual(%v): %v", p, err)
		}
		r := Resolve(twoDayEvent, event.Match{Started: &matchTime}, Pool{s})
		if r.Blocked {
			t.Fatalf("p=%v blocked: %s", p, r.Reason)
		}
		if want := int64(p); r.SeekSeconds != want {
			t.Errorf("p=%v: seek %d, want %d", p, r.SeekSeconds, want)
		}
	}
}
