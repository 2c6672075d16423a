// Package event models competition events, their divisions and matches as read
// from the results provider, plus the calendar arithmetic and day inference the
// stream resolver relies on. Records here are plain values validated at the
// provider boundary; nothing in this package performs I/O.
package event

import "time"

// Event is one competition identified by its SKU. Start and End are calendar
// dates (midnight UTC of the local date); time-of-day carries no meaning.
type Event struct {
	ID        int        `json:"id" yaml:"id"`
	SKU       string     `json:"sku" yaml:"sku"`
	Name      string     `json:"name" yaml:"name"`
	Start     time.Time  `json:"start" yaml:"start"`
	End       time.Time  `json:"end" yaml:"end"`
	Divisions []Division `json:"divisions,omitempty" yaml:"divisions,omitempty"`
}

// Division belongs to exactly one Event. IDs come from the results provider and
// stay stable across reloads, which is what streams and matches key on.
type Division struct {
	ID    int    `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Order int    `json:"order,omitempty" yaml:"order,omitempty"`
}

// DayCount is the number of calendar days the event spans (at least 1).
func (e Event) DayCount() int { return DayCount(e.Start, e.End) }

// DayOf returns the zero-based event day an instant falls on.
func (e Event) DayOf(t time.Time) int { return DayIndex(t, e.Start) }

// Division looks up a division by id.
func (e Event) Division(id int) (Division, bool) {
	for _, d := range e.Divisions {
		if d.ID == id {
			return d, true
		}
	}
	return Division{}, false
}

// DivisionName returns the display name for id, or "" when unknown.
func (e Event) DivisionName(id int) string {
	d, _ := e.Division(id)
	return d.Name
}
