package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/onnwee/matchsync/cache"
	"github.com/onnwee/matchsync/discovery"
	"github.com/onnwee/matchsync/event"
	"github.com/onnwee/matchsync/stream"
	"github.com/onnwee/matchsync/telemetry"
)

// Discovery is the cached outcome of discovering an event's webcasts.
type Discovery struct {
	Event      event.Event               `json:"event"`
	Candidates []discovery.Candidate     `json:"candidates"`
	Channels   []discovery.ChannelResult `json:"channels,omitempty"`
	Partial    bool                      `json:"partial,omitempty"`
	Cached     bool                      `json:"cached"`
}

func normalizeSKU(sku string) string { return strings.ToUpper(strings.TrimSpace(sku)) }

// Candidates returns the normalized video candidates for sku, from cache when
// possible. Runs that were cut short or lost a channel to an error are
// returned but not cached, so the next call tries again.
func (s *Service) Candidates(ctx context.Context, sku string) (Discovery, error) {
	sku = normalizeSKU(sku)
	ctx, span := telemetry.StartSpan(ctx, "service.Candidates", telemetry.SKUAttr(sku))
	defer span.End()

	d, hit, err := cache.GetOrCompute(ctx, s.Cache, cache.Key("discovery", sku), s.ttl(),
		func(ctx context.Context) (Discovery, bool, error) {
			ev, err := s.Results.EventBySKU(ctx, sku)
			if err != nil {
				return Discovery{}, false, err
			}
			var links []discovery.Link
			if s.Scraper != nil {
				links = s.Scraper.FetchWebcastLinks(ctx, sku)
			}
			report := discovery.Discover(ctx, ev, links, s.Searchers, s.Discovery)
			d := Discovery{
				Event:      ev,
				Candidates: report.Videos(),
				Channels:   report.Channels,
				Partial:    report.Partial,
			}
			return d, !report.Partial && report.Err() == nil, nil
		})
	if err != nil {
		telemetry.RecordError(span, err)
		return Discovery{}, err
	}
	d.Cached = hit
	if d.Candidates == nil {
		d.Candidates = []discovery.Candidate{}
	}
	telemetry.SetSpanSuccess(span)
	return d, nil
}

// Streams provisions the initial stream pool for sku from its candidates.
func (s *Service) Streams(ctx context.Context, sku string) (event.Event, stream.Pool, error) {
	d, err := s.Candidates(ctx, sku)
	if err != nil {
		return event.Event{}, nil, err
	}
	pool := discovery.Provision(d.Event, d.Candidates)
	telemetry.RecordProvisioned(len(pool))
	telemetry.LoggerWithCorr(ctx).Info("streams provisioned",
		slog.String("sku", d.Event.SKU),
		slog.Int("streams", len(pool)),
		slog.Int("candidates", len(d.Candidates)),
		slog.Bool("cached", d.Cached))
	return d.Event, pool, nil
}
