package robotevents

import (
	"sort"
	"strings"
	"time"

	"github.com/onnwee/matchsync/event"
)

type apiDivision struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type apiEvent struct {
	ID        int           `json:"id"`
	SKU       string        `json:"sku"`
	Name      string        `json:"name"`
	Start     string        `json:"start"`
	End       string        `json:"end"`
	Divisions []apiDivision `json:"divisions"`
}

func (e apiEvent) toEvent() event.Event {
	out := event.Event{
		ID:    e.ID,
		SKU:   e.SKU,
		Name:  e.Name,
		Start: parseDate(e.Start),
		End:   parseDate(e.End),
	}
	for _, d := range e.Divisions {
		out.Divisions = append(out.Divisions, event.Division{ID: d.ID, Name: d.Name, Order: d.Order})
	}
	sort.SliceStable(out.Divisions, func(i, j int) bool {
		return out.Divisions[i].Order < out.Divisions[j].Order
	})
	return out
}

type apiTeam struct {
	Team struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
}

type apiAlliance struct {
	Color string    `json:"color"`
	Score *int      `json:"score"`
	Teams []apiTeam `json:"teams"`
}

type apiMatch struct {
	ID       int `json:"id"`
	Division struct {
		ID int `json:"id"`
	} `json:"division"`
	Round     int           `json:"round"`
	Instance  int           `json:"instance"`
	MatchNum  int           `json:"matchnum"`
	Scheduled *string       `json:"scheduled"`
	Started   *string       `json:"started"`
	Field     string        `json:"field"`
	Scored    bool          `json:"scored"`
	Name      string        `json:"name"`
	Alliances []apiAlliance `json:"alliances"`
}

// toMatch normalizes one match. Unscored matches drop their placeholder scores
// and empty or malformed timestamps become nil.
func (m apiMatch) toMatch(divisionID int) event.Match {
	div := m.Division.ID
	if div == 0 {
		div = divisionID
	}
	out := event.Match{
		ID:         m.ID,
		Name:       m.Name,
		DivisionID: &div,
		Round:      m.Round,
		Instance:   m.Instance,
		Number:     m.MatchNum,
		Field:      m.Field,
		Started:    parseInstant(m.Started),
		Scheduled:  parseInstant(m.Scheduled),
		Alliances:  make([]event.Alliance, 0, len(m.Alliances)),
	}
	for _, a := range m.Alliances {
		al := event.Alliance{Color: a.Color}
		if m.Scored && a.Score != nil {
			s := *a.Score
			al.Score = &s
		}
		for _, t := range a.Teams {
			al.Teams = append(al.Teams, event.Team{ID: t.Team.ID, Name: t.Team.Name})
		}
		out.Alliances = append(out.Alliances, al)
	}
	return out
}

func parseInstant(s *string) *time.Time {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*s))
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// parseDate reads an event bound as a calendar date. Anything unparseable is the
// zero time, which calendar arithmetic treats as unknown.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return event.CalendarDate(t)
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t
	}
	return time.Time{}
}
