package event

import "time"

// InferDay returns the event day for m. Timestamped matches use their own
// instant. Otherwise the day of the latest timestamped qualification match in
// the same division is used, since eliminations run right after qualifications
// end; failing that, the earliest timestamped sibling; failing that, day 0.
// siblings is the match list for m's division (or the whole event); it is not
// modified.
func InferDay(m Match, siblings []Match, eventStart time.Time) int {
	if ts, ok := m.Timestamp(); ok {
		return DayIndex(ts, eventStart)
	}

	var latestQual, earliestAny time.Time
	for _, s := range siblings {
		if !s.InDivision(m.DivisionID) {
			continue
		}
		ts, ok := s.Timestamp()
		if !ok {
			continue
		}
		if s.IsQualification() && ts.After(latestQual) {
			latestQual = ts
		}
		if earliestAny.IsZero() || ts.Before(earliestAny) {
			earliestAny = ts
		}
	}

	switch {
	case !latestQual.IsZero():
		return DayIndex(latestQual, eventStart)
	case !earliestAny.IsZero():
		return DayIndex(earliestAny, eventStart)
	default:
		return 0
	}
}
