package stream

import (
	"time"

	"github.com/onnwee/matchsync/event"
)

// Reasons carried by blocked results.
const (
	ReasonNotPlayed       = "not yet played/scheduled"
	ReasonNoCalibrated    = "no calibrated stream"
	ReasonBeforeStreamFmt = "stream started at %s, but match was at %s"
)

// Result is either a seek target or a blocked explanation. It is derived on
// demand and never stored.
type Result struct {
	StreamID    string `json:"streamId,omitempty" yaml:"streamId,omitempty"`
	SeekSeconds int64  `json:"seekSeconds" yaml:"seekSeconds"`
	Blocked     bool   `json:"blocked,omitempty" yaml:"blocked,omitempty"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func blocked(reason string) Result { return Result{Blocked: true, Reason: reason} }

// Resolve picks the stream to watch m on and the second to seek to.
//
// Calibrated streams are narrowed to the match's division and then its day,
// each step falling back to the wider set if it would leave nothing. Among the
// survivors the stream with the latest origin at or before the match wins. If
// every survivor started after the match, the earliest-starting one is
// selected, which always produces a negative offset and therefore a blocked
// result naming both times.
func Resolve(ev event.Event, m event.Match, pool Pool) Result {
	ts, ok := m.Timestamp()
	if !ok {
		return blocked(ReasonNotPlayed)
	}
	s, ok := selectStream(ev, m, ts, pool)
	if !ok {
		return blocked(ReasonNoCalibrated)
	}
	offset := ts.Sub(*s.Origin)
	if offset < 0 {
		return blocked(formatBeforeStream(*s.Origin, ts))
	}
	return Result{StreamID: s.ID, SeekSeconds: int64(offset / time.Second)}
}

func selectStream(ev event.Event, m event.Match, ts time.Time, pool Pool) (Stream, bool) {
	candidates := pool.Calibrated()
	if len(candidates) == 0 {
		return Stream{}, false
	}
	day := ev.DayOf(ts)
	candidates = candidates.narrow(func(s Stream) bool { return s.AppliesToDivision(m.DivisionID) })
	candidates = candidates.narrow(func(s Stream) bool { return s.AppliesToDay(day) })

	var best, earliest *Stream
	for i := range candidates {
		c := &candidates[i]
		if !c.Origin.After(ts) && (best == nil || c.Origin.After(*best.Origin)) {
			best = c
		}
		if earliest == nil || c.Origin.Before(*earliest.Origin) {
			earliest = c
		}
	}
	if best != nil {
		return *best, true
	}
	return *earliest, true
}
