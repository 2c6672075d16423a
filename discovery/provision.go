package discovery

import (
	"github.com/onnwee/matchsync/event"
	"github.com/onnwee/matchsync/stream"
)

type slot struct {
	division *int
	day      int
	stream   stream.Stream
	filled   bool
}

// Provision builds the initial stream pool for ev from discovered candidates.
// It never fails: with nothing usable every division/day slot comes back as an
// empty, uncalibrated stream ready for manual entry.
//
// Slots are walked division by division, day by day. Each takes the first
// unused candidate hinted to its division; candidates without a usable hint
// then fill the remaining day-0 slots in discovery order. A lone candidate for a
// single-division event always lands on that division's day-0 slot. Hinted
// candidates left over once their division is full are appended as backup
// streams for that division, unhinted leftovers as backups for every division.
func Provision(ev event.Event, candidates []Candidate) stream.Pool {
	videos := Normalize(candidates)
	slots := newSlots(ev)
	used := make([]bool, len(videos))

	assign := func(s *slot, i int) {
		s.stream = s.stream.SetURL(videos[i].WatchURL())
		s.filled = true
		used[i] = true
	}

	if len(ev.Divisions) == 1 && len(videos) == 1 {
		assign(&slots[0], 0)
	}

	for si := range slots {
		s := &slots[si]
		if s.filled || s.division == nil {
			continue
		}
		for i, v := range videos {
			if !used[i] && v.DivisionHint != nil && *v.DivisionHint == *s.division {
				assign(s, i)
				break
			}
		}
	}

	for si := range slots {
		s := &slots[si]
		if s.filled || s.day != 0 {
			continue
		}
		for i, v := range videos {
			if !used[i] && !usableHint(ev, v.DivisionHint) {
				assign(s, i)
				break
			}
		}
	}

	pool := make(stream.Pool, 0, len(slots))
	for _, s := range slots {
		pool = append(pool, s.stream)
	}
	for i, v := range videos {
		if used[i] {
			continue
		}
		var div *int
		if usableHint(ev, v.DivisionHint) {
			div = v.DivisionHint
		}
		label := stream.SlotLabel(ev, div, nil) + " (backup)"
		b := stream.New(label, div, nil).SetURL(v.WatchURL())
		b.Backup = true
		pool = append(pool, b)
	}
	return pool
}

func newSlots(ev event.Event) []slot {
	days := ev.DayCount()
	var divisions []*int
	if len(ev.Divisions) == 0 {
		divisions = []*int{nil}
	}
	for _, d := range ev.Divisions {
		id := d.ID
		divisions = append(divisions, &id)
	}
	slots := make([]slot, 0, len(divisions)*days)
	for _, div := range divisions {
		for day := 0; day < days; day++ {
			d := day
			slots = append(slots, slot{
				division: div,
				day:      day,
				stream:   stream.New(stream.SlotLabel(ev, div, &d), div, &d),
			})
		}
	}
	return slots
}

func usableHint(ev event.Event, hint *int) bool {
	if hint == nil {
		return false
	}
	_, ok := ev.Division(*hint)
	return ok
}
