// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	DiscoveryRuns      *prometheus.CounterVec // outcome=complete|partial|timeout
	CandidatesFound    *prometheus.CounterVec // kind=video|channel
	ChannelSearches    *prometheus.CounterVec // platform, outcome=ok|skipped|retryable|fatal|unknown
	Calibrations       *prometheus.CounterVec // mode=auto|manual|nudge, outcome=ok|diagnostic|error
	Resolutions        *prometheus.CounterVec // outcome=resolved|blocked
	CacheLookups       *prometheus.CounterVec // backend, result=hit|miss|error
	ProviderRequests   *prometheus.CounterVec // provider, outcome=ok|error
	HTTPRequests       *prometheus.CounterVec // method, route, status
	StreamsProvisioned prometheus.Counter

	// Histograms (seconds)
	DiscoveryDuration prometheus.Observer
	HTTPDuration      *prometheus.HistogramVec
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		DiscoveryRuns = promauto.NewCounterVec(prometheus.CounterOpts{Name: "matchsync_discovery_runs_total", Help: "Webcast discovery runs by outcome"}, []string{"outcome"})
		CandidatesFound = promauto.NewCounterVec(prometheus.CounterOpts{Name: "matchsync_candidates_found_total", Help: "Webcast candidates classified from event pages"}, []string{"kind"})
		ChannelSearches = promauto.NewCounterVec(prometheus.CounterOpts{Name: "matchsync_channel_searches_total", Help: "Channel broadcast searches by platform and outcome"}, []string{"platform", "outcome"})
		Calibrations = promauto.NewCounterVec(prometheus.CounterOpts{Name: "matchsync_calibrations_total", Help: "Stream calibrations by mode and outcome"}, []string{"mode", "outcome"})
		Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{Name: "matchsync_resolutions_total", Help: "Match to stream resolutions by outcome"}, []string{"outcome"})
		CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{Name: "matchsync_cache_lookups_total", Help: "Discovery cache lookups by backend and result"}, []string{"backend", "result"})
		ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "matchsync_provider_requests_total", Help: "Outbound provider requests by provider and outcome"}, []string{"provider", "outcome"})
		HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "matchsync_http_requests_total", Help: "HTTP requests served"}, []string{"method", "route", "status"})
		StreamsProvisioned = promauto.NewCounter(prometheus.CounterOpts{Name: "matchsync_streams_provisioned_total", Help: "Stream slots provisioned from discovery"})
		DiscoveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "matchsync_discovery_duration_seconds", Help: "Webcast discovery duration seconds", Buckets: prometheus.DefBuckets})
		HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "matchsync_http_request_duration_seconds", Help: "HTTP request duration seconds", Buckets: prometheus.DefBuckets}, []string{"method", "route"})
	})
}

func inc(vec *prometheus.CounterVec, labels ...string) {
	if vec != nil {
		vec.WithLabelValues(labels...).Inc()
	}
}

// RecordDiscovery counts one discovery run.
func RecordDiscovery(outcome string, d time.Duration) {
	inc(DiscoveryRuns, outcome)
	if DiscoveryDuration != nil {
		DiscoveryDuration.Observe(d.Seconds())
	}
}

// RecordCandidates adds n candidates of kind.
func RecordCandidates(kind string, n int) {
	if CandidatesFound != nil && n > 0 {
		CandidatesFound.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordChannelSearch counts one channel search.
func RecordChannelSearch(platform, outcome string) { inc(ChannelSearches, platform, outcome) }

// RecordCalibration counts one calibration attempt.
func RecordCalibration(mode, outcome string) { inc(Calibrations, mode, outcome) }

// RecordResolution counts one resolver answer.
func RecordResolution(blocked bool) {
	if blocked {
		inc(Resolutions, "blocked")
		return
	}
	inc(Resolutions, "resolved")
}

// RecordCacheLookup counts one cache lookup.
func RecordCacheLookup(backend, result string) { inc(CacheLookups, backend, result) }

// RecordProviderRequest counts one outbound provider request.
func RecordProviderRequest(provider string, err error) {
	if err != nil {
		inc(ProviderRequests, provider, "error")
		return
	}
	inc(ProviderRequests, provider, "ok")
}

// RecordProvisioned adds n provisioned stream slots.
func RecordProvisioned(n int) {
	if StreamsProvisioned != nil && n > 0 {
		StreamsProvisioned.Add(float64(n))
	}
}

// RecordHTTP counts one served request. route is the registered pattern, not
// the raw path, to keep label cardinality bounded.
func RecordHTTP(method, route string, status int, d time.Duration) {
	inc(HTTPRequests, method, route, strconv.Itoa(status))
	if HTTPDuration != nil {
		HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
