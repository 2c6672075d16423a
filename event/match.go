package event

import (
	"strings"
	"time"
)

// Phase groups matches by the part of the tournament they belong to.
type Phase string

const (
	PhasePractice      Phase = "practice"
	PhaseQualification Phase = "qualification"
	PhaseElimination   Phase = "elimination"
)

// Round numbers as reported by the results provider.
const (
	RoundPractice      = 1
	RoundQualification = 2
)

// Team is one competing team inside an alliance.
type Team struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Alliance is one side of a match. Score is nil until the match is scored.
type Alliance struct {
	Color string `json:"color" yaml:"color"`
	Score *int   `json:"score,omitempty" yaml:"score,omitempty"`
	Teams []Team `json:"teams" yaml:"teams"`
}

// Match is an immutable record from the results provider. Started takes
// priority over Scheduled whenever both are present.
type Match struct {
	ID         int        `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	DivisionID *int       `json:"divisionId,omitempty" yaml:"divisionId,omitempty"`
	Round      int        `json:"round,omitempty" yaml:"round,omitempty"`
	Instance   int        `json:"instance,omitempty" yaml:"instance,omitempty"`
	Number     int        `json:"matchnum,omitempty" yaml:"matchnum,omitempty"`
	Field      string     `json:"field,omitempty" yaml:"field,omitempty"`
	Started    *time.Time `json:"started,omitempty" yaml:"started,omitempty"`
	Scheduled  *time.Time `json:"scheduled,omitempty" yaml:"scheduled,omitempty"`
	Alliances  []Alliance `json:"alliances" yaml:"alliances"`
}

// Timestamp returns the instant the match started, falling back to when it was
// scheduled. ok is false when neither is known.
func (m Match) Timestamp() (t time.Time, ok bool) {
	if m.Started != nil && !m.Started.IsZero() {
		return *m.Started, true
	}
	if m.Scheduled != nil && !m.Scheduled.IsZero() {
		return *m.Scheduled, true
	}
	return time.Time{}, false
}

// Timestamped reports whether the match carries a started or scheduled instant.
func (m Match) Timestamped() bool {
	_, ok := m.Timestamp()
	return ok
}

var qualificationMarkers = []string{"qualifier", "qualification", "practice", "teamwork"}

// Phase classifies the match by name, falling back to the round number.
func (m Match) Phase() Phase {
	lower := strings.ToLower(m.Name)
	switch {
	case strings.Contains(lower, "practice") || m.Round == RoundPractice:
		return PhasePractice
	case m.IsQualification():
		return PhaseQualification
	default:
		return PhaseElimination
	}
}

// IsQualification reports whether the match belongs to the qualification phase,
// practice included.
func (m Match) IsQualification() bool {
	lower := strings.ToLower(m.Name)
	for _, marker := range qualificationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return m.Round == RoundPractice || m.Round == RoundQualification
}

// InDivision reports whether the match belongs to division id. A nil id matches
// every match.
func (m Match) InDivision(id *int) bool {
	if id == nil {
		return true
	}
	return m.DivisionID != nil && *m.DivisionID == *id
}

// HasTeam reports whether any alliance includes the given team name (case-insensitive).
func (m Match) HasTeam(name string) bool {
	for _, a := range m.Alliances {
		for _, t := range a.Teams {
			if strings.EqualFold(t.Name, name) {
				return true
			}
		}
	}
	return false
}
