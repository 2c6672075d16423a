package stream

import (
	"fmt"

	"github.com/onnwee/matchsync/event"
)

// Pool is the set of streams for one event. It is a value: every operation
// returns a new Pool and leaves the receiver untouched, so concurrent readers
// never observe a partially updated pool.
type Pool []Stream

func (p Pool) clone() Pool {
	out := make(Pool, len(p))
	for i, s := range p {
		out[i] = s.clone()
	}
	return out
}

// Find returns the stream with id.
func (p Pool) Find(id string) (Stream, bool) {
	for _, s := range p {
		if s.ID == id {
			return s.clone(), true
		}
	}
	return Stream{}, false
}

// With appends s.
func (p Pool) With(s Stream) Pool {
	return append(p.clone(), s.clone())
}

// Replace swaps the stream sharing s.ID.
func (p Pool) Replace(s Stream) (Pool, error) {
	out := p.clone()
	for i := range out {
		if out[i].ID == s.ID {
			out[i] = s.clone()
			return out, nil
		}
	}
	return p, ErrNotFound
}

// Update applies fn to the stream with id.
func (p Pool) Update(id string, fn func(Stream) (Stream, error)) (Pool, error) {
	s, ok := p.Find(id)
	if !ok {
		return p, ErrNotFound
	}
	next, err := fn(s)
	if err != nil {
		return p, err
	}
	next.ID = id
	return p.Replace(next)
}

// Without removes the stream with id (e.g. dropping a backup stream).
func (p Pool) Without(id string) Pool {
	out := make(Pool, 0, len(p))
	for _, s := range p {
		if s.ID != id {
			out = append(out, s.clone())
		}
	}
	return out
}

// AddBackup appends an extra stream for the same slot as the stream with id.
// The backup is named after the slot's primary stream and numbered from the
// second backup on.
func (p Pool) AddBackup(id string) (Pool, Stream, error) {
	base, ok := p.Find(id)
	if !ok {
		return p, Stream{}, ErrNotFound
	}
	slot := p.ForSlot(base.DivisionID, base.DayIndex)
	name := base.Label
	for _, s := range slot {
		if !s.Backup {
			name = s.Label
			break
		}
	}
	label := name + " (backup)"
	if n := len(slot); n > 1 {
		label = fmt.Sprintf("%s (backup %d)", name, n)
	}
	b := New(label, base.DivisionID, base.DayIndex)
	b.Backup = true
	return p.With(b), b, nil
}

// ForSlot returns the streams provisioned exactly for a division/day slot.
func (p Pool) ForSlot(divisionID *int, dayIndex *int) Pool {
	var out Pool
	for _, s := range p {
		if equalInt(s.DivisionID, divisionID) && equalInt(s.DayIndex, dayIndex) {
			out = append(out, s.clone())
		}
	}
	return out
}

// Calibrated returns the subset with an origin.
func (p Pool) Calibrated() Pool { return p.filter(Stream.Calibrated) }

// Sanitize drops day indices that fall outside ev, widening those streams to
// all days. Used when a pool is loaded against an event whose dates changed.
func (p Pool) Sanitize(ev event.Event) Pool {
	out := p.clone()
	n := ev.DayCount()
	for i := range out {
		if d := out[i].DayIndex; d != nil && (*d < 0 || *d >= n) {
			out[i].DayIndex = nil
		}
	}
	return out
}

func (p Pool) filter(keep func(Stream) bool) Pool {
	var out Pool
	for _, s := range p {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// narrow keeps streams matching pred, or returns p unchanged when none do.
func (p Pool) narrow(pred func(Stream) bool) Pool {
	if n := p.filter(pred); len(n) > 0 {
		return n
	}
	return p
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
