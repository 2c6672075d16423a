package stream

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/onnwee/matchsync/event"
	"github.com/onnwee/matchsync/platform"
)

type fakeMetadata struct {
	starts map[string]time.Time
	err    error
	calls  atomic.Int32
}

func (f *fakeMetadata) BroadcastStart(ctx context.Context, videoID string) (*time.Time, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if t, ok := f.starts[videoID]; ok {
		return &t, nil
	}
	return nil, nil
}

func TestAutoCalibrate(t *testing.T) {
	meta := &fakeMetadata{starts: map[string]time.Time{"dQw4w9WgXcQ": ts("2024-03-01T09:00:00Z")}}
	sources := MetadataSources{platform.YouTube: meta}

	s := New("Science", nil, nil).SetURL("https://youtu.be/dQw4w9WgXcQ")
	got, diag := AutoCalibrate(context.Background(), s, sources)
	if diag != "" {
		t.Fatalf("unexpected diagnostic %q", diag)
	}
	if !got.Calibrated() || !got.Origin.Equal(ts("2024-03-01T09:00:00Z")) {
		t.Errorf("origin = %v", got.Origin)
	}
	if s.Calibrated() {
		t.Error("input stream was mutated")
	}
}

func TestAutoCalibrate_Diagnostics(t *testing.T) {
	tests := []struct {
		name     string
		stream   Stream
		sources  MetadataSources
		wantDiag string
	}{
		{"no url", New("x", nil, nil), MetadataSources{platform.YouTube: &fakeMetadata{}}, DiagNoVideo},
		{"no credential", New("x", nil, nil).SetURL("https://www.twitch.tv/videos/123456"), MetadataSources{platform.YouTube: &fakeMetadata{}}, DiagNoCredential},
		{"not a livestream", New("x", nil, nil).SetURL("https://youtu.be/dQw4w9WgXcQ"), MetadataSources{platform.YouTube: &fakeMetadata{}}, DiagNoBroadcastAt},
		{"lookup error", New("x", nil, nil).SetURL("https://youtu.be/dQw4w9WgXcQ"), MetadataSources{platform.YouTube: &fakeMetadata{err: errors.New("quotaExceeded")}}, "broadcast start lookup failed: quotaExceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diag := AutoCalibrate(context.Background(), tt.stream, tt.sources)
			if !strings.HasPrefix(diag, tt.wantDiag) {
				t.Errorf("diag = %q, want prefix %q", diag, tt.wantDiag)
			}
			if got.Calibrated() {
				t.Error("stream calibrated despite diagnostic")
			}
		})
	}
}

func TestCalibrateManual(t *testing.T) {
	matchTime := ts("2024-03-01T09:35:20Z")
	s, err := CalibrateManual(New("x", nil, nil), matchTime, 2120)
	if err != nil {
		t.Fatal(err)
	}
	if want := ts("2024-03-01T09:00:00Z"); !s.Origin.Equal(want) {
		t.Errorf("origin = %s, want %s", s.Origin, want)
	}

	// recalibration overwrites
	s, err = CalibrateManual(s, matchTime, 20)
	if err != nil {
		t.Fatal(err)
	}
	if want := ts("2024-03-01T09:35:00Z"); !s.Origin.Equal(want) {
		t.Errorf("recalibrated origin = %s, want %s", s.Origin, want)
	}
}

func TestCalibrateManual_InvalidInput(t *testing.T) {
	s := New("x", nil, nil)
	if _, err := CalibrateManual(s, time.Time{}, 10); !errors.Is(err, ErrInvalidInstant) {
		t.Errorf("zero instant err = %v", err)
	}
	for _, p := range []float64{-1, math.NaN(), math.Inf(1), 1e11, maxPosition + 1} {
		if _, err := CalibrateManual(s, ts("2024-03-01T09:00:00Z"), p); !errors.Is(err, ErrInvalidPosition) {
			t.Errorf("position %v err = %v", p, err)
		}
	}
}

func TestCalibrateManual_LargePositionRoundTrips(t *testing.T) {
	matchTime := ts("2024-03-01T09:00:00Z")
	const position = 3 * 24 * 60 * 60
	s, err := CalibrateManual(New("x", nil, nil), matchTime, position)
	if err != nil {
		t.Fatal(err)
	}
	ev := event.Event{Start: ts("2024-02-27T00:00:00Z"), End: ts("2024-03-01T00:00:00Z")}
	r := Resolve(ev, event.Match{Started: &matchTime}, Pool{s})
	if r.Blocked || r.SeekSeconds != position {
		t.Errorf("Resolve() = %+v, want seek %d", r, position)
	}
}

func TestNudge(t *testing.T) {
	s, _ := CalibrateManual(New("x", nil, nil), ts("2024-03-01T09:35:20Z"), 2120)
	m := event.Match{Started: tsp("2024-03-01T09:35:20Z")}

	for _, step := range []struct {
		delta time.Duration
		want  int64
	}{
		{time.Second, 2119},
		{5 * time.Second, 2114},
		{-5 * time.Second, 2119},
		{-time.Second, 2120},
	} {
		var err error
		s, err = Nudge(s, step.delta)
		if err != nil {
			t.Fatal(err)
		}
		if r := Resolve(twoDayEvent, m, Pool{s}); r.SeekSeconds != step.want {
			t.Errorf("after %s seek = %d, want %d", step.delta, r.SeekSeconds, step.want)
		}
	}

	if _, err := Nudge(New("x", nil, nil), time.Second); !errors.Is(err, ErrNotCalibrated) {
		t.Errorf("nudge uncalibrated err = %v", err)
	}
}

func TestCalibrateAll_IsolatesFailures(t *testing.T) {
	yt := &fakeMetadata{starts: map[string]time.Time{"aaaaaaaaaaa": ts("2024-03-01T09:00:00Z")}}
	sources := MetadataSources{platform.YouTube: yt}

	good := New("good", nil, intp(0)).SetURL("https://youtu.be/aaaaaaaaaaa")
	unknown := New("unknown", nil, intp(1)).SetURL("https://youtu.be/bbbbbbbbbbb")
	empty := New("empty", nil, nil)
	done, _ := CalibrateManual(New("done", nil, nil).SetURL("https://youtu.be/ccccccccccc"), ts("2024-03-01T10:00:00Z"), 0)
	pool := Pool{good, unknown, empty, done}

	out, diags := CalibrateAll(context.Background(), pool, sources, 2)
	if len(out) != 4 {
		t.Fatalf("pool size %d", len(out))
	}
	if s, _ := out.Find(good.ID); !s.Calibrated() {
		t.Error("good stream not calibrated")
	}
	if diags[unknown.ID] != DiagNoBroadcastAt {
		t.Errorf("unknown diag = %q", diags[unknown.ID])
	}
	if diags[empty.ID] != DiagNoVideo {
		t.Errorf("empty diag = %q", diags[empty.ID])
	}
	if _, ok := diags[done.ID]; ok {
		t.Error("already calibrated stream was recalibrated")
	}
	if n := yt.calls.Load(); n != 2 {
		t.Errorf("metadata calls = %d, want 2", n)
	}
	if pool[0].Calibrated() {
		t.Error("input pool mutated")
	}
}
