package stream

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/matchsync/platform"
)

// MetadataSource reports when a platform video's broadcast actually started.
// A nil time with a nil error means the platform does not know (private video,
// not yet indexed, not a livestream).
type MetadataSource interface {
	BroadcastStart(ctx context.Context, videoID string) (*time.Time, error)
}

// MetadataSources dispatches by platform. A missing entry means no credential
// is configured for that platform.
type MetadataSources map[platform.Platform]MetadataSource

// Diagnostics returned by automatic calibration when no origin could be set.
const (
	DiagNoVideo        = "no video URL entered"
	DiagNoCredential   = "automatic calibration unavailable for this platform; calibrate manually"
	DiagNoBroadcastAt  = "broadcast start time unavailable (private, not yet indexed, or not a livestream); calibrate manually"
	diagLookupFailedFm = "broadcast start lookup failed: %v; calibrate manually"
)

// AutoCalibrate sets the stream's origin from the platform's recorded broadcast
// start. When that is not possible the stream comes back unchanged together with
// a diagnostic explaining why; an empty diagnostic means success.
func AutoCalibrate(ctx context.Context, s Stream, sources MetadataSources) (Stream, string) {
	if !s.HasVideo() {
		return s, DiagNoVideo
	}
	src, ok := sources[s.Platform]
	if !ok || src == nil {
		return s, DiagNoCredential
	}
	start, err := src.BroadcastStart(ctx, s.VideoID)
	if err != nil {
		return s, fmt.Sprintf(diagLookupFailedFm, err)
	}
	if start == nil || start.IsZero() {
		return s, DiagNoBroadcastAt
	}
	s = s.clone()
	origin := start.UTC()
	s.Origin = &origin
	return s, ""
}

// maxPosition is the largest playback position, in seconds, a time.Duration holds.
const maxPosition = float64(math.MaxInt64 / int64(time.Second))

// CalibrateManual solves origin = matchTime - position from one observed pair:
// the viewer is at position seconds into the video while watching a match that
// began at matchTime. Any earlier origin is overwritten.
func CalibrateManual(s Stream, matchTime time.Time, position float64) (Stream, error) {
	if matchTime.IsZero() {
		return s, ErrInvalidInstant
	}
	if math.IsNaN(position) || math.IsInf(position, 0) || position < 0 || position > maxPosition {
		return s, fmt.Errorf("%w: %v", ErrInvalidPosition, position)
	}
	offset := time.Duration(math.Round(position * float64(time.Second)))
	origin := matchTime.UTC().Add(-offset)
	s = s.clone()
	s.Origin = &origin
	return s, nil
}

// Nudge shifts an existing origin by delta to absorb small drift without a full
// recalibration. Positive delta moves the origin later, so seek offsets shrink.
func Nudge(s Stream, delta time.Duration) (Stream, error) {
	if !s.Calibrated() {
		return s, ErrNotCalibrated
	}
	s = s.clone()
	origin := s.Origin.Add(delta)
	s.Origin = &origin
	return s, nil
}

// ClearCalibration drops the origin.
func ClearCalibration(s Stream) Stream {
	s = s.clone()
	s.Origin = nil
	return s
}

// CalibrateAll auto-calibrates every stream that has a video but no origin,
// running up to limit lookups at once. Each stream is independent: a failed
// lookup leaves that stream uncalibrated and records its diagnostic under the
// stream id without affecting the others.
func CalibrateAll(ctx context.Context, pool Pool, sources MetadataSources, limit int) (Pool, map[string]string) {
	if limit <= 0 {
		limit = 4
	}
	out := pool.clone()
	diags := make(map[string]string)
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(limit)
	for i := range out {
		if out[i].Calibrated() {
			continue
		}
		g.Go(func() error {
			next, diag := AutoCalibrate(ctx, out[i], sources)
			mu.Lock()
			defer mu.Unlock()
			out[i] = next
			if diag != "" {
				diags[out[i].ID] = diag
				slog.Debug("stream left uncalibrated", slog.String("stream", out[i].ID), slog.String("reason", diag))
			}
			return nil
		})
	}
	_ = g.Wait()
	return out, diags
}
