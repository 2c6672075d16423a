package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/matchsync/db"
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string
	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
}

// Open builds the configured backend. The returned close func is never nil.
func Open(ctx context.Context, o Options) (Cache, func() error, error) {
	noop := func() error { return nil }
	switch o.Backend {
	case "", BackendMemory:
		return NewMemory(), noop, nil
	case BackendPostgres:
		dbx, err := db.Connect(o.DSN)
		if err != nil {
			return nil, noop, err
		}
		if err := db.Ping(ctx, dbx, 5*time.Second); err != nil {
			_ = dbx.Close()
			return nil, noop, fmt.Errorf("ping postgres: %w", err)
		}
		if err := db.RunMigrations(dbx); err != nil {
			_ = dbx.Close()
			return nil, noop, err
		}
		return NewPostgres(dbx), dbx.Close, nil
	case BackendRedis:
		r, err := NewRedis(o.RedisAddr, o.RedisPassword, o.RedisDB)
		if err != nil {
			return nil, noop, err
		}
		return r, r.Close, nil
	case BackendSQLite:
		s, err := OpenSQLite(ctx, o.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown cache backend %q", o.Backend)
}

// Purger is implemented by backends that keep expired rows until purged.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// PurgeLoop purges expired rows every interval until ctx is done. Backends
// without a Purge method return immediately.
func PurgeLoop(ctx context.Context, c Cache, interval time.Duration) {
	p, ok := c.(Purger)
	if !ok || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := p.Purge(ctx)
			if err != nil {
				slog.Warn("cache purge failed", slog.String("backend", c.Backend()), slog.Any("err", err))
				continue
			}
			if n > 0 {
				slog.Debug("cache purged", slog.String("backend", c.Backend()), slog.Int64("rows", n))
			}
		}
	}
}
