package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/onnwee/matchsync/stream"
	"github.com/onnwee/matchsync/telemetry"
)

// Calibration is the pool after a calibration pass plus the diagnostics of
// streams that stayed uncalibrated, keyed by stream id.
type Calibration struct {
	Pool        stream.Pool       `json:"pool"`
	Diagnostics map[string]string `json:"diagnostics,omitempty"`
}

// Calibrate auto-calibrates every uncalibrated stream that has a video.
func (s *Service) Calibrate(ctx context.Context, pool stream.Pool) Calibration {
	ctx, span := telemetry.StartSpan(ctx, "service.Calibrate", telemetry.CountAttr("streams", len(pool)))
	defer span.End()

	out, diags := stream.CalibrateAll(ctx, pool, s.Metadata, s.CalibrationConcurrency)
	for _, st := range out {
		before, _ := pool.Find(st.ID)
		switch {
		case before.Calibrated():
		case st.Calibrated():
			telemetry.RecordCalibration("auto", "ok")
		case diags[st.ID] != "":
			telemetry.RecordCalibration("auto", "failed")
		}
	}
	if len(diags) > 0 {
		telemetry.LoggerWithCorr(ctx).Info("streams left uncalibrated", slog.Int("count", len(diags)))
	}
	telemetry.SetSpanSuccess(span)
	return Calibration{Pool: out, Diagnostics: diags}
}

// ManualCalibrate sets one stream's origin from an observed (match time,
// playback position) pair.
func (s *Service) ManualCalibrate(pool stream.Pool, streamID string, matchTime time.Time, position float64) (stream.Pool, error) {
	out, err := pool.Update(streamID, func(st stream.Stream) (stream.Stream, error) {
		return stream.CalibrateManual(st, matchTime, position)
	})
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	telemetry.RecordCalibration("manual", outcome)
	return out, err
}

// Nudge shifts one calibrated stream's origin by delta.
func (s *Service) Nudge(pool stream.Pool, streamID string, delta time.Duration) (stream.Pool, error) {
	out, err := pool.Update(streamID, func(st stream.Stream) (stream.Stream, error) {
		return stream.Nudge(st, delta)
	})
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	telemetry.RecordCalibration("nudge", outcome)
	return out, err
}
