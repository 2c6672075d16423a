package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/matchsync/event"
	"github.com/onnwee/matchsync/telemetry"
)

// Defaults for Options.
const (
	DefaultTimeout     = 60 * time.Second
	DefaultConcurrency = 3
)

// Options bounds a discovery run.
type Options struct {
	// Timeout is the hard ceiling for the whole run. Searches still in flight
	// when it expires are abandoned and the results gathered so far returned.
	Timeout time.Duration
	// Concurrency caps simultaneous channel searches.
	Concurrency int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}

// ChannelResult is the outcome of searching one channel.
type ChannelResult struct {
	Channel string `json:"channel"`
	Found   int    `json:"found"`
	Skipped bool   `json:"skipped,omitempty"`
	Class   string `json:"errorClass,omitempty"`
	Err     error  `json:"-"`
	Error   string `json:"error,omitempty"`

	hits []Candidate
}

// Report is what a discovery run produced. Candidates holds every classified
// page link followed by the search-derived videos, in channel order.
type Report struct {
	Candidates []Candidate     `json:"candidates"`
	Channels   []ChannelResult `json:"channels,omitempty"`
	Partial    bool            `json:"partial,omitempty"`
	Duration   time.Duration   `json:"duration"`
}

// Videos returns the normalized, deduplicated video candidates.
func (r Report) Videos() []Candidate { return Normalize(r.Candidates) }

// Err joins the per-channel failures, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, c := range r.Channels {
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("search %s: %w", c.Channel, c.Err))
		}
	}
	return errors.Join(errs...)
}

// Discover classifies links and searches every channel candidate for
// broadcasts inside the event window. Channel searches run concurrently and
// fail independently: a failed or skipped channel only loses its own results.
// Discover never returns an error; per-channel failures are reported in the
// Report and the run is marked partial when the ceiling cut it short.
func Discover(ctx context.Context, ev event.Event, links []Link, searchers Searchers, opts Options) Report {
	opts = opts.withDefaults()
	started := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "discovery.discover", telemetry.SKUAttr(ev.SKU), telemetry.CountAttr("links", len(links)))
	defer span.End()
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "discovery"), slog.String("sku", ev.SKU))

	classified := Classify(ev, links)
	var channels []Candidate
	report := Report{}
	for _, c := range classified {
		report.Candidates = append(report.Candidates, c)
		if c.Kind == KindChannel {
			channels = append(channels, c)
		}
	}
	telemetry.RecordCandidates(string(KindVideo), len(classified)-len(channels))
	telemetry.RecordCandidates(string(KindChannel), len(channels))

	results := make([]ChannelResult, len(channels))
	for i, ch := range channels {
		results[i] = ChannelResult{Channel: ch.Channel.Key()}
	}
	var mu sync.Mutex
	done := make([]bool, len(channels))

	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	winStart, winEnd := SearchWindow(ev)

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i, ch := range channels {
			if runCtx.Err() != nil {
				break
			}
			g.Go(func() error {
				res := searchChannel(runCtx, ev, ch, searchers, winStart, winEnd)
				mu.Lock()
				results[i], done[i] = res, true
				mu.Unlock()
				if res.Err != nil {
					log.Warn("channel search failed", slog.String("channel", res.Channel), slog.String("class", res.Class), slog.Any("err", res.Err))
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-finished:
	case <-runCtx.Done():
		report.Partial = true
	}

	mu.Lock()
	for i := range results {
		r := results[i]
		if !done[i] {
			r.Err = fmt.Errorf("search abandoned: %w", runCtx.Err())
			r.Error = r.Err.Error()
			r.Class = ErrorClassRetryable.String()
			report.Partial = true
		}
		report.Candidates = append(report.Candidates, r.hits...)
		r.hits = nil
		report.Channels = append(report.Channels, r)
	}
	mu.Unlock()

	report.Duration = time.Since(started)
	outcome := "complete"
	switch {
	case report.Partial:
		outcome = "timeout"
	case report.Err() != nil:
		outcome = "partial"
	}
	telemetry.RecordDiscovery(outcome, report.Duration)
	span.SetAttributes(attribute.String("discovery.outcome", outcome), telemetry.CountAttr("candidates", len(report.Candidates)))
	if err := report.Err(); err != nil {
		telemetry.RecordError(span, err)
	} else {
		telemetry.SetSpanSuccess(span)
	}
	log.Info("discovery finished",
		slog.String("outcome", outcome),
		slog.Int("candidates", len(report.Candidates)),
		slog.Int("channels", len(channels)),
		slog.Duration("duration", report.Duration))
	return report
}

func searchChannel(ctx context.Context, ev event.Event, ch Candidate, searchers Searchers, start, end time.Time) ChannelResult {
	res := ChannelResult{Channel: ch.Channel.Key()}
	platformName := string(ch.Platform)
	searcher, ok := searchers[ch.Platform]
	if !ok || searcher == nil {
		res.Skipped = true
		telemetry.RecordChannelSearch(platformName, "skipped")
		return res
	}

	ctx, span := telemetry.StartSpan(ctx, "discovery.search_channel", telemetry.PlatformAttr(platformName), attribute.String("channel", res.Channel))
	defer span.End()

	hits, err := searcher.SearchChannelBroadcasts(ctx, *ch.Channel, start, end)
	if errors.Is(err, ErrNoCredential) {
		res.Skipped = true
		telemetry.RecordChannelSearch(platformName, "skipped")
		return res
	}
	if err != nil {
		class := ClassifySearchError(err)
		res.Err, res.Error, res.Class = err, err.Error(), class.String()
		telemetry.RecordChannelSearch(platformName, class.String())
		telemetry.RecordError(span, err)
		return res
	}
	res.hits = broadcastCandidates(ev, ch, hits)
	res.Found = len(res.hits)
	telemetry.RecordChannelSearch(platformName, "ok")
	telemetry.SetSpanSuccess(span)
	return res
}
