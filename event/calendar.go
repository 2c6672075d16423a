package event

import "time"

const day = 24 * time.Hour

// MaxDayCount bounds an event's span. Longer spans come from bad provider
// dates and are treated like missing ones.
const MaxDayCount = 366

// civilDate strips time-of-day, keeping the date parts as they read in t's location.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CalendarDate normalizes a provider date (e.g. "2024-03-01T00:00:00-05:00") to
// midnight UTC of the same local calendar date.
func CalendarDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return civilDate(t)
}

// DayCount returns the calendar-date difference between start and end plus one.
// Zero values, and spans longer than MaxDayCount, mean "no information" and
// yield 1.
func DayCount(start, end time.Time) int {
	if start.IsZero() || end.IsZero() {
		return 1
	}
	diff := civilDate(end).Sub(civilDate(start))
	if diff < 0 {
		diff = -diff
	}
	n := int(diff/day) + 1
	if n > MaxDayCount {
		return 1
	}
	return n
}

// DayIndex returns the zero-based day of instant relative to eventStart. The
// instant is compared by its UTC date so two instants on the same UTC date
// always share an index regardless of time-of-day. Results are clamped to >= 0
// and a zero input yields 0.
func DayIndex(instant, eventStart time.Time) int {
	if instant.IsZero() || eventStart.IsZero() {
		return 0
	}
	diff := civilDate(instant.UTC()).Sub(civilDate(eventStart))
	if diff < 0 {
		return 0
	}
	return int(diff / day)
}
