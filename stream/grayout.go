package stream

import (
	"fmt"
	"time"

	"github.com/onnwee/matchsync/event"
)

// Gray-out reasons, in the order they are checked.
const (
	GrayNoStreams      = "no livestreams added"
	GrayNoDayStreamFmt = "no livestream for Day %d"
	GrayNotCalibrated  = "stream added but not calibrated yet"
	grayClockFormat    = "15:04"
)

// GrayOut explains why m cannot be resolved, or returns "" when it can or when
// the match simply has not been played (future matches are not grayed out).
// It returns a reason exactly when Resolve returns a blocked result for a
// timestamped match. Missing or partial event data never panics.
//
// Provisioned slots without a URL do not count as added streams.
func GrayOut(ev event.Event, m event.Match, pool Pool) string {
	ts, ok := m.Timestamp()
	if !ok {
		return ""
	}
	res := Resolve(ev, m, pool)
	if !res.Blocked {
		return ""
	}
	added := pool.filter(Stream.added)
	if len(added) == 0 {
		return GrayNoStreams
	}

	day := ev.DayOf(ts)
	scoped := added.narrow(func(s Stream) bool { return s.AppliesToDivision(m.DivisionID) })
	dayStreams := scoped.filter(func(s Stream) bool { return s.AppliesToDay(day) })
	if len(dayStreams) == 0 {
		return fmt.Sprintf(GrayNoDayStreamFmt, day+1)
	}
	if len(dayStreams.Calibrated()) == 0 {
		return GrayNotCalibrated
	}
	// A calibrated stream exists, so Resolve selected one that started after
	// the match and its reason names both times.
	return res.Reason
}

func formatBeforeStream(origin, match time.Time) string {
	return fmt.Sprintf(ReasonBeforeStreamFmt, origin.UTC().Format(grayClockFormat), match.UTC().Format(grayClockFormat))
}
