// Command matchsync-api serves livestream discovery and match-time sync for
// robotics competitions over HTTP.
// It:
//   - Loads configuration and initializes structured logging.
//   - Opens the discovery cache (memory, Postgres, Redis or SQLite) and runs
//     migrations where the backend needs them.
//   - Wires the results provider and whichever video platforms have credentials.
//   - Exposes the API plus /healthz, /readyz and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/matchsync/cache"
	"github.com/onnwee/matchsync/config"
	"github.com/onnwee/matchsync/server"
	"github.com/onnwee/matchsync/service"
	"github.com/onnwee/matchsync/telemetry"
)

const version = "1.0.0"

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.SetDefault(telemetry.NewLogger(os.Stdout, cfg.SlogLevel(), cfg.LogFormat))
	slog.Info("logger initialized", slog.String("level", cfg.SlogLevel().String()), slog.String("format", cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing(telemetry.TracingConfig{
		ServiceName:    "matchsync",
		ServiceVersion: version,
		Endpoint:       cfg.OTLPEndpoint,
		SampleRatio:    cfg.TraceSampleRatio,
	})
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, closeSvc, err := service.FromConfig(ctx, cfg)
	if err != nil {
		slog.Error("service init failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := closeSvc(); err != nil {
			slog.Error("failed to close cache", slog.Any("err", err))
		}
	}()
	slog.Info("cache ready", slog.String("backend", svc.Cache.Backend()), slog.Duration("ttl", cfg.CacheTTL))
	go cache.PurgeLoop(ctx, svc.Cache, 10*time.Minute)

	if cfg.EnablePprof {
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", cfg.PprofAddr))
			srv := &http.Server{
				Addr:              cfg.PprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      60 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	opts := server.OptionsFromConfig(cfg)
	opts.Ready = []server.Check{server.CacheCheck(svc.Cache)}
	handler := server.NewMux(ctx, svc, opts)

	// discovery may run for its full timeout before the response is written
	if err := server.Start(ctx, handler, cfg.HTTPAddr, cfg.DiscoveryTimeout+30*time.Second); err != nil {
		slog.Error("http server exited with error", slog.Any("err", err))
		stop()
		os.Exit(1)
	}
	slog.Info("shutting down")
}
