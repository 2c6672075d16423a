package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := vec.WithLabelValues(labels...).Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestMetricsInitialized(t *testing.T) {
	Init()

	if DiscoveryRuns == nil || ChannelSearches == nil || Calibrations == nil || Resolutions == nil {
		t.Fatal("counter vectors not initialized")
	}
	if DiscoveryDuration == nil || HTTPDuration == nil {
		t.Fatal("histograms not initialized")
	}
	// second call must not re-register and panic
	Init()
}

func TestRecordHelpers(t *testing.T) {
	Init()

	tests := []struct {
		name   string
		record func()
		vec    *prometheus.CounterVec
		labels []string
	}{
		{"channel search", func() { RecordChannelSearch("youtube", "ok") }, ChannelSearches, []string{"youtube", "ok"}},
		{"calibration", func() { RecordCalibration("manual", "ok") }, Calibrations, []string{"manual", "ok"}},
		{"resolution blocked", func() { RecordResolution(true) }, Resolutions, []string{"blocked"}},
		{"resolution ok", func() { RecordResolution(false) }, Resolutions, []string{"resolved"}},
		{"cache miss", func() { RecordCacheLookup("memory", "miss") }, CacheLookups, []string{"memory", "miss"}},
		{"provider error", func() { RecordProviderRequest("robotevents", errors.New("boom")) }, ProviderRequests, []string{"robotevents", "error"}},
		{"http request", func() { RecordHTTP("GET", "GET /healthz", 200, time.Millisecond) }, HTTPRequests, []string{"GET", "GET /healthz", "200"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := counterValue(t, tt.vec, tt.labels...)
			tt.record()
			if after := counterValue(t, tt.vec, tt.labels...); after != before+1 {
				t.Errorf("counter %v went %v -> %v", tt.labels, before, after)
			}
		})
	}
}

func TestRecordCandidatesIgnoresZero(t *testing.T) {
	Init()
	before := counterValue(t, CandidatesFound, "video")
	RecordCandidates("video", 0)
	RecordCandidates("video", 3)
	if after := counterValue(t, CandidatesFound, "video"); after != before+3 {
		t.Errorf("candidates %v -> %v", before, after)
	}
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("empty context corr = %q", got)
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("corr = %q", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Error("nil logger")
	}
}

func TestStartSpanWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(WithCorrelation(context.Background(), "c1"), "test.span", SKUAttr("RE-VRC-23-0001"))
	defer span.End()
	if ctx == nil {
		t.Fatal("nil context")
	}
	RecordError(span, errors.New("x"))
	RecordError(span, nil)
}
