package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/onnwee/matchsync/testutil"
)

type payload struct {
	SKU   string   `json:"sku"`
	Links []string `json:"links"`
}

// exercise runs the shared contract against any backend.
func exercise(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()
	key := Key("test", strconv.FormatInt(time.Now().UnixNano(), 10))

	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("Get before Set = %v, %v", ok, err)
	}
	if err := c.Set(ctx, key, []byte("one"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, key, []byte("two"), time.Minute); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok || string(got) != "two" {
		t.Fatalf("Get = %q, %v, %v", got, ok, err)
	}
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_ = m.Set(ctx, "k", []byte("v"), time.Hour)
	now = now.Add(59 * time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatal("entry expired early")
	}
	now = now.Add(time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("entry readable at expiry")
	}
	if m.Len() != 0 {
		t.Errorf("expired entry not dropped, Len = %d", m.Len())
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	buf := []byte("abc")
	_ = m.Set(ctx, "k", buf, time.Hour)
	buf[0] = 'x'
	got, _, _ := m.Get(ctx, "k")
	got[1] = 'y'
	again, _, _ := m.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value aliased caller memory: %q", again)
	}
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	exercise(t, s)

	now := time.Now()
	s.now = func() time.Time { return now }
	_ = s.Set(ctx, "old", []byte("v"), time.Second)
	now = now.Add(2 * time.Second)
	if _, ok, _ := s.Get(ctx, "old"); ok {
		t.Error("expired sqlite entry readable")
	}
	if n, err := s.Purge(ctx); err != nil || n != 1 {
		t.Errorf("Purge = %d, %v; want 1", n, err)
	}
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis test")
	}
	r, err := NewRedis(addr, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	exercise(t, r)
}

func TestPostgres(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	exercise(t, NewPostgres(dbx))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	c, closeFn, err := Open(ctx, Options{})
	if err != nil || c.Backend() != BackendMemory {
		t.Fatalf("default backend = %v, %v", c, err)
	}
	_ = closeFn()

	c, closeFn, err = Open(ctx, Options{Backend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "c.db")})
	if err != nil || c.Backend() != BackendSQLite {
		t.Fatalf("sqlite backend = %v, %v", c, err)
	}
	if err := closeFn(); err != nil {
		t.Error(err)
	}

	if _, closeFn, err := Open(ctx, Options{Backend: "memcached"}); err == nil || closeFn == nil {
		t.Errorf("unknown backend err = %v", err)
	}
}

type failingCache struct{ *Memory }

func (f *failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func TestGetOrCompute(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	calls := 0
	compute := func(context.Context) (payload, bool, error) {
		calls++
		return payload{SKU: "RE-VRC-23-1234", Links: []string{"a"}}, true, nil
	}

	v, hit, err := GetOrCompute(ctx, m, Key("candidates", "RE-VRC-23-1234"), time.Hour, compute)
	if err != nil || hit || v.SKU != "RE-VRC-23-1234" {
		t.Fatalf("first call = %+v, %v, %v", v, hit, err)
	}
	v, hit, err = GetOrCompute(ctx, m, Key("candidates", "RE-VRC-23-1234"), time.Hour, compute)
	if err != nil || !hit || len(v.Links) != 1 {
		t.Fatalf("second call = %+v, %v, %v", v, hit, err)
	}
	if calls != 1 {
		t.Errorf("compute ran %d times, want 1", calls)
	}
}

func TestGetOrCompute_NotStored(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	partial := func(context.Context) (payload, bool, error) { return payload{SKU: "x"}, false, nil }
	if _, _, err := GetOrCompute(ctx, m, "k", time.Hour, partial); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 0 {
		t.Error("partial result was cached")
	}

	failing := func(context.Context) (payload, bool, error) { return payload{}, true, errors.New("boom") }
	if _, _, err := GetOrCompute(ctx, m, "k", time.Hour, failing); err == nil {
		t.Error("compute error swallowed")
	}
	if m.Len() != 0 {
		t.Error("failed result was cached")
	}
}

func TestGetOrCompute_BrokenBackend(t *testing.T) {
	f := &failingCache{Memory: NewMemory()}
	v, hit, err := GetOrCompute(context.Background(), f, "k", time.Hour,
		func(context.Context) (int, bool, error) { return 7, true, nil })
	if err != nil || hit || v != 7 {
		t.Errorf("got %d, %v, %v; want computed value despite cache failure", v, hit, err)
	}
}

func TestGetOrCompute_NilCache(t *testing.T) {
	v, hit, err := GetOrCompute[int](context.Background(), nil, "k", time.Hour,
		func(context.Context) (int, bool, error) { return 3, true, nil })
	if err != nil || hit || v != 3 {
		t.Errorf("got %d, %v, %v", v, hit, err)
	}
}
