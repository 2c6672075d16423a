// Package server exposes the HTTP API over the service layer: webcast
// discovery, stream provisioning, match resolution and calibration, plus
// health, readiness and metrics. Every request gets a correlation id and a
// span; CORS and a per-IP rate limiter wrap the whole mux.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/propagation"

	"github.com/onnwee/matchsync/config"
	"github.com/onnwee/matchsync/telemetry"
)

// Options configures the inbound middleware.
type Options struct {
	CORSPermissive     bool
	CORSAllowedOrigins []string
	RateLimitEnabled   bool
	RateLimitRPS       float64
	RateLimitBurst     int
	// Ready checks run by /readyz in order; the first failure wins.
	Ready []Check
}

// OptionsFromConfig maps the process config onto server options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		CORSPermissive:     cfg.CORSPermissive,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitEnabled:   cfg.RateLimitEnabled,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
}

// NewMux returns the HTTP handler with all routes.
// ctx bounds the rate limiter's cleanup goroutine.
func NewMux(ctx context.Context, api API, opts Options) http.Handler {
	h := NewHandlers(api, opts.Ready...)
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", h.HandleHealthz)
	mux.HandleFunc("GET /readyz", h.HandleReadyz)

	mux.HandleFunc("GET /events/{sku}/candidates", h.HandleCandidates)
	mux.HandleFunc("GET /events/{sku}/streams", h.HandleStreams)
	mux.HandleFunc("POST /events/{sku}/resolve", h.HandleResolve)

	mux.HandleFunc("POST /streams/calibrate", h.HandleCalibrate)
	mux.HandleFunc("POST /streams/calibrate/manual", h.HandleManualCalibrate)
	mux.HandleFunc("POST /streams/nudge", h.HandleNudge)

	limiter := newIPRateLimiter(ctx, rateLimiterConfig{
		enabled: opts.RateLimitEnabled,
		rps:     opts.RateLimitRPS,
		burst:   opts.RateLimitBurst,
	})
	handler := withCorrelation(rateLimitMiddleware(mux, limiter, probePaths), mux)
	return withCORSConfig(handler, newCORSConfig(opts.CORSPermissive, opts.CORSAllowedOrigins))
}

// probePaths are never rate limited.
var probePaths = map[string]bool{"/healthz": true, "/readyz": true, "/metrics": true}

// withCorrelation injects the correlation id, opens a span, and records the
// request under its route pattern once served.
func withCorrelation(next http.Handler, mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.ExtractTrace(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx = telemetry.WithCorrelation(ctx, corr)
		w.Header().Set("X-Correlation-ID", corr)

		route := "unmatched"
		if _, pattern := mux.Handler(r); pattern != "" {
			route = pattern
		}
		ctx, span := telemetry.StartSpan(ctx, "http "+route,
			telemetry.HTTPMethodAttr(r.Method),
			telemetry.HTTPRouteAttr(route),
		)
		defer span.End()
		if telemetry.IsTracingEnabled() {
			if id := telemetry.TraceID(ctx); id != "" {
				w.Header().Set("X-Trace-ID", id)
			}
		}

		log := telemetry.LoggerWithCorr(ctx)
		log.Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))
		elapsed := time.Since(start)

		telemetry.RecordHTTP(r.Method, route, rec.statusCode, elapsed)
		span.SetAttributes(telemetry.HTTPStatusAttr(rec.statusCode))
		if rec.statusCode >= 500 {
			telemetry.RecordError(span, errors.New(http.StatusText(rec.statusCode)))
		} else {
			telemetry.SetSpanSuccess(span)
		}
		log.Debug("request done",
			slog.String("route", route),
			slog.Int("status", rec.statusCode),
			slog.Duration("elapsed", elapsed),
			slog.String("component", "http"))
	})
}

// statusRecorder wraps ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, handler http.Handler, addr string, writeTimeout time.Duration) error {
	if writeTimeout <= 0 {
		writeTimeout = 90 * time.Second
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		// WithoutCancel keeps ctx values while letting shutdown finish
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	slog.Info("http server listening", slog.String("addr", addr), slog.String("component", "http"))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
