// Package config loads environment variables and provides a typed Config used
// across the service and the CLI. It applies sensible defaults so the binary can
// run locally with minimal setup; Validate reports what production needs.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Cache backends accepted by CACHE_BACKEND.
var cacheBackends = map[string]bool{"memory": true, "postgres": true, "redis": true, "sqlite": true}

type Config struct {
	// HTTP
	HTTPAddr    string
	HTTPTimeout time.Duration
	Env         string

	// Logging
	LogLevel  string
	LogFormat string

	// Video platforms; empty credentials skip that platform
	YouTubeAPIKey      string
	TwitchClientID     string
	TwitchClientSecret string

	// Results provider
	RobotEventsToken   string
	RobotEventsBaseURL string
	RobotEventsWebURL  string
	RobotEventsRPS     float64

	// Cache
	CacheBackend  string
	CacheTTL      time.Duration
	DBDsn         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string

	// Engine
	DiscoveryTimeout       time.Duration
	CalibrationConcurrency int

	// Observability
	EnablePprof  bool
	PprofAddr    string
	OTLPEndpoint string
	// TraceSampleRatio is the share of new traces kept; 1 keeps all.
	TraceSampleRatio float64

	// Inbound protection
	CORSPermissive     bool
	CORSAllowedOrigins []string
	RateLimitEnabled   bool
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads environment variables and applies defaults. Malformed numbers and
// durations fall back to their defaults with a warning; Load itself never fails
// on them.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTPAddr = envString("HTTP_ADDR", ":8080")
	cfg.HTTPTimeout = envDuration("HTTP_TIMEOUT", 15*time.Second)
	cfg.Env = strings.ToLower(os.Getenv("ENV"))

	cfg.LogLevel = strings.ToLower(envString("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(envString("LOG_FORMAT", "text"))

	cfg.YouTubeAPIKey = os.Getenv("YOUTUBE_API_KEY")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")

	cfg.RobotEventsToken = os.Getenv("ROBOTEVENTS_TOKEN")
	cfg.RobotEventsBaseURL = envString("ROBOTEVENTS_BASE_URL", "https://www.robotevents.com/api/v2")
	cfg.RobotEventsWebURL = envString("ROBOTEVENTS_WEB_URL", "https://www.robotevents.com")
	cfg.RobotEventsRPS = envFloat("ROBOTEVENTS_RPS", 2)

	cfg.CacheBackend = strings.ToLower(envString("CACHE_BACKEND", "memory"))
	cfg.CacheTTL = envDuration("CACHE_TTL", time.Hour)
	cfg.DBDsn = os.Getenv("DB_DSN")
	cfg.RedisAddr = envString("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = envInt("REDIS_DB", 0)
	cfg.SQLitePath = envString("SQLITE_PATH", "matchsync-cache.db")

	cfg.DiscoveryTimeout = envDuration("DISCOVERY_TIMEOUT", 60*time.Second)
	cfg.CalibrationConcurrency = envInt("CALIBRATION_CONCURRENCY", 4)

	cfg.EnablePprof = envBool("ENABLE_PPROF", false)
	cfg.PprofAddr = envString("PPROF_ADDR", "localhost:6060")
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.TraceSampleRatio = envFloat("OTEL_TRACES_SAMPLER_ARG", 1)

	// permissive in dev, restricted otherwise, unless overridden
	permissive := cfg.Env == "" || cfg.Env == "dev" || cfg.Env == "development"
	cfg.CORSPermissive = envBool("CORS_PERMISSIVE", permissive)
	for _, origin := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}
	cfg.RateLimitEnabled = os.Getenv("RATE_LIMIT_ENABLED") != "0"
	cfg.RateLimitRPS = envFloat("RATE_LIMIT_RPS", 5)
	cfg.RateLimitBurst = envInt("RATE_LIMIT_BURST", 20)

	return cfg, nil
}

// Validate checks what the service needs to answer requests: a results provider
// token and a known cache backend with its connection settings.
func (c *Config) Validate() error {
	var errs []error
	if c.RobotEventsToken == "" {
		errs = append(errs, errors.New("missing ROBOTEVENTS_TOKEN"))
	}
	if !cacheBackends[c.CacheBackend] {
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q (want memory|postgres|redis|sqlite)", c.CacheBackend))
	}
	if c.CacheBackend == "redis" && c.RedisAddr == "" {
		errs = append(errs, errors.New("CACHE_BACKEND=redis requires REDIS_ADDR"))
	}
	if c.CacheBackend == "sqlite" && c.SQLitePath == "" {
		errs = append(errs, errors.New("CACHE_BACKEND=sqlite requires SQLITE_PATH"))
	}
	return errors.Join(errs...)
}

// YouTubeEnabled reports whether YouTube search and metadata are available.
func (c *Config) YouTubeEnabled() bool { return c.YouTubeAPIKey != "" }

// TwitchEnabled reports whether Twitch search and metadata are available.
func (c *Config) TwitchEnabled() bool { return c.TwitchClientID != "" && c.TwitchClientSecret != "" }

// SlogLevel maps LogLevel to a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using default", slog.String("key", key), slog.String("value", v), slog.Duration("default", def))
		return def
	}
	return d
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		slog.Warn("invalid integer, using default", slog.String("key", key), slog.String("value", v), slog.Int("default", def))
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		slog.Warn("invalid number, using default", slog.String("key", key), slog.String("value", v), slog.Float64("default", def))
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
