// Package stream holds the per-event pool of livestream records and the logic
// that synchronizes them with match times: calibration (automatic, manual and
// drift nudges), match-to-stream resolution with seek offsets, and the gray-out
// reasons shown when a match cannot be resolved yet.
//
// A Stream's calibration origin is the wall-clock instant that playback
// position 0:00 corresponds to, so playbackSeconds + origin = wallClock.
package stream

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/matchsync/event"
	"github.com/onnwee/matchsync/platform"
)

var (
	ErrNotFound        = errors.New("stream not found")
	ErrDayOutOfRange   = errors.New("day index outside event")
	ErrInvalidInstant  = errors.New("invalid match instant")
	ErrInvalidPosition = errors.New("invalid playback position")
	ErrNotCalibrated   = errors.New("stream not calibrated")
)

// Stream is one livestream slot. DivisionID nil applies to every division,
// DayIndex nil to every day, Origin nil means uncalibrated and VideoID "" means
// no URL entered yet.
type Stream struct {
	ID         string            `json:"id" yaml:"id"`
	Label      string            `json:"label" yaml:"label"`
	URL        string            `json:"url,omitempty" yaml:"url,omitempty"`
	Platform   platform.Platform `json:"platform,omitempty" yaml:"platform,omitempty"`
	VideoID    string            `json:"videoId,omitempty" yaml:"videoId,omitempty"`
	DivisionID *int              `json:"divisionId,omitempty" yaml:"divisionId,omitempty"`
	DayIndex   *int              `json:"dayIndex,omitempty" yaml:"dayIndex,omitempty"`
	Origin     *time.Time        `json:"calibrationOrigin,omitempty" yaml:"calibrationOrigin,omitempty"`
	Backup     bool              `json:"backup,omitempty" yaml:"backup,omitempty"`
}

// New allocates an empty stream slot.
func New(label string, divisionID, dayIndex *int) Stream {
	return Stream{
		ID:         uuid.NewString(),
		Label:      label,
		DivisionID: copyInt(divisionID),
		DayIndex:   copyInt(dayIndex),
	}
}

// SlotLabel is the display label for a division/day slot.
func SlotLabel(ev event.Event, divisionID *int, dayIndex *int) string {
	label := "All divisions"
	if divisionID != nil {
		if name := ev.DivisionName(*divisionID); name != "" {
			label = name
		} else {
			label = fmt.Sprintf("Division %d", *divisionID)
		}
	}
	if dayIndex != nil && ev.DayCount() > 1 {
		label += fmt.Sprintf(" - Day %d", *dayIndex+1)
	}
	return label
}

// SetURL records a user-entered URL and re-extracts the video id. Calibration
// is cleared when the video changes since the old origin belongs to another
// broadcast.
func (s Stream) SetURL(raw string) Stream {
	v, ok := platform.ParseVideo(raw)
	prevPlatform, prevID := s.Platform, s.VideoID
	s.URL = raw
	if ok {
		s.Platform, s.VideoID = v.Platform, v.ID
	} else {
		s.Platform, s.VideoID = "", ""
	}
	if s.Platform != prevPlatform || s.VideoID != prevID {
		s.Origin = nil
	}
	return s
}

// SetDay moves the stream to day (nil = all days). The index must fall inside
// the event.
func (s Stream) SetDay(day *int, ev event.Event) (Stream, error) {
	if day != nil && (*day < 0 || *day >= ev.DayCount()) {
		return s, fmt.Errorf("%w: %d (event has %d days)", ErrDayOutOfRange, *day, ev.DayCount())
	}
	s.DayIndex = copyInt(day)
	return s, nil
}

// Calibrated reports whether an origin is set.
func (s Stream) Calibrated() bool { return s.Origin != nil && !s.Origin.IsZero() }

// HasVideo reports whether a video id has been extracted.
func (s Stream) HasVideo() bool { return s.VideoID != "" }

// added reports whether someone supplied a video or an origin for s, as
// opposed to an empty provisioned slot.
func (s Stream) added() bool { return s.HasVideo() || s.Calibrated() }

// AppliesToDivision reports whether s serves division id. A nil id (match
// without division) is served by every stream.
func (s Stream) AppliesToDivision(id *int) bool {
	if s.DivisionID == nil || id == nil {
		return true
	}
	return *s.DivisionID == *id
}

// AppliesToDay reports whether s serves the given day.
func (s Stream) AppliesToDay(day int) bool {
	return s.DayIndex == nil || *s.DayIndex == day
}

// Video returns the platform video reference.
func (s Stream) Video() platform.Video {
	return platform.Video{Platform: s.Platform, ID: s.VideoID}
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// clone returns a deep copy so pools never share pointer fields.
func (s Stream) clone() Stream {
	s.DivisionID = copyInt(s.DivisionID)
	s.DayIndex = copyInt(s.DayIndex)
	s.Origin = copyTime(s.Origin)
	return s
}
