// Command healthcheck probes the local API for container health checks. It
// exits 0 when the probe answers 200 and 1 otherwise.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	os.Exit(run(os.Getenv("HTTP_ADDR"), os.Getenv("HEALTHCHECK_PATH")))
}

func probeURL(addr, path string) string {
	if addr == "" {
		addr = ":8080"
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	if path == "" {
		path = "/healthz"
	}
	return "http://" + addr + path
}

func run(addr, path string) int {
	client := &http.Client{Timeout: 3 * time.Second}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, probeURL(addr, path), nil)
	if err != nil {
		return 1
	}
	resp, err := client.Do(req)
	if err != nil {
		slog.Error("health probe failed", slog.Any("err", err))
		return 1
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		slog.Error("health probe not ok", slog.Int("status", resp.StatusCode))
		return 1
	}
	return 0
}
