package service

import (
	"context"
	"log/slog"

	"github.com/onnwee/matchsync/event"
	"github.com/onnwee/matchsync/stream"
	"github.com/onnwee/matchsync/telemetry"
)

// Row is the resolution of one match against the current pool.
type Row struct {
	Match   event.Match   `json:"match"`
	Day     int           `json:"day"`
	Result  stream.Result `json:"result"`
	GrayOut string        `json:"grayOut,omitempty"`
}

// Resolution covers every match of an event. Warnings lists provider failures
// that left some divisions out.
type Resolution struct {
	Event    event.Event `json:"event"`
	Rows     []Row       `json:"rows"`
	Warnings []string    `json:"warnings,omitempty"`
}

// ResolveEvent loads the event and all its matches and resolves each one
// against pool. Only a failure to load the event itself is an error.
func (s *Service) ResolveEvent(ctx context.Context, sku string, pool stream.Pool) (Resolution, error) {
	sku = normalizeSKU(sku)
	ctx, span := telemetry.StartSpan(ctx, "service.ResolveEvent", telemetry.SKUAttr(sku))
	defer span.End()
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("sku", sku))

	ev, err := s.Results.EventBySKU(ctx, sku)
	if err != nil {
		telemetry.RecordError(span, err)
		return Resolution{}, err
	}
	res := Resolution{Event: ev, Rows: []Row{}}
	matches, err := s.Results.ListEventMatches(ctx, ev)
	if err != nil {
		log.Warn("some divisions could not be loaded", slog.Any("err", err))
		res.Warnings = append(res.Warnings, err.Error())
	}
	res.Rows = ResolveMatches(ev, matches, pool)
	unscheduled := 0
	for _, m := range matches {
		if !m.Timestamped() {
			unscheduled++
		}
	}
	span.SetAttributes(telemetry.CountAttr("matches", len(matches)), telemetry.CountAttr("matches_unscheduled", unscheduled))
	telemetry.SetSpanSuccess(span)
	return res, nil
}

// ResolveMatches resolves each match against pool, in input order. Days of
// untimestamped matches are inferred from their siblings.
func ResolveMatches(ev event.Event, matches []event.Match, pool stream.Pool) []Row {
	pool = pool.Sanitize(ev)
	rows := make([]Row, 0, len(matches))
	for _, m := range matches {
		r := stream.Resolve(ev, m, pool)
		telemetry.RecordResolution(r.Blocked)
		rows = append(rows, Row{
			Match:   m,
			Day:     event.InferDay(m, matches, ev.Start),
			Result:  r,
			GrayOut: stream.GrayOut(ev, m, pool),
		})
	}
	return rows
}
