// Package cache is the key-value collaborator discovery results are stored in.
// Every backend stores opaque bytes with a TTL; GetOrCompute layers JSON
// encoding and the check-compute-store flow on top.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/onnwee/matchsync/telemetry"
)

// Cache stores values with a TTL. A miss is (nil, false, nil); errors are
// reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Backend names the implementation for metrics and logs.
	Backend() string
}

// Key joins parts into a namespaced cache key.
func Key(parts ...string) string {
	return "matchsync:" + strings.Join(parts, ":")
}

// GetOrCompute returns the cached value for key or computes, stores and returns
// it. compute reports whether its result may be stored; partial results should
// not be. Backend errors are logged and degrade to a miss, so a broken cache
// never blocks the caller. hit reports whether the value came from the cache.
func GetOrCompute[T any](ctx context.Context, c Cache, key string, ttl time.Duration,
	compute func(context.Context) (T, bool, error)) (v T, hit bool, err error) {
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "cache"), slog.String("key", key))
	if c != nil {
		raw, ok, gerr := c.Get(ctx, key)
		switch {
		case gerr != nil:
			telemetry.RecordCacheLookup(c.Backend(), "error")
			log.Warn("cache get failed", slog.Any("err", gerr))
		case ok:
			uerr := json.Unmarshal(raw, &v)
			if uerr == nil {
				telemetry.RecordCacheLookup(c.Backend(), "hit")
				return v, true, nil
			}
			log.Warn("cache entry undecodable", slog.Any("err", uerr))
			telemetry.RecordCacheLookup(c.Backend(), "miss")
		default:
			telemetry.RecordCacheLookup(c.Backend(), "miss")
		}
	}

	v, store, err := compute(ctx)
	if err != nil || !store || c == nil {
		return v, false, err
	}
	raw, merr := json.Marshal(v)
	if merr != nil {
		log.Warn("cache encode failed", slog.Any("err", merr))
		return v, false, nil
	}
	if serr := c.Set(ctx, key, raw, ttl); serr != nil {
		log.Warn("cache set failed", slog.Any("err", serr))
	}
	return v, false, nil
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process cache. Expired entries are dropped lazily on read.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: map[string]memEntry{}, now: time.Now}
}

func (m *Memory) Backend() string { return BackendMemory }

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memEntry{value: append([]byte(nil), value...), expiresAt: m.now().Add(ttl)}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
