package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/onnwee/matchsync/cache"
)

// Check is one named readiness probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// CacheCheck probes the discovery cache with a lookup of a sentinel key. A
// miss is healthy; only backend errors fail.
func CacheCheck(c cache.Cache) Check {
	return Check{Name: "cache", Fn: func(ctx context.Context) error {
		if c == nil {
			return nil
		}
		if _, _, err := c.Get(ctx, cache.Key("readyz")); err != nil {
			return fmt.Errorf("%s: %w", c.Backend(), err)
		}
		return nil
	}}
}

// HandleHealthz responds to liveness probes.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz runs the readiness checks and reports the first failure.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	for _, check := range h.ready {
		if err := check.Fn(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.Name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
