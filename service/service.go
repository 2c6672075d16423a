// Package service composes the engine with its collaborators: the results
// provider, the event page scraper, per-platform search and metadata clients
// and the discovery cache. The HTTP server and the CLI are thin layers over it.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/onnwee/matchsync/cache"
	"github.com/onnwee/matchsync/config"
	"github.com/onnwee/matchsync/discovery"
	"github.com/onnwee/matchsync/event"
	"github.com/onnwee/matchsync/httpclient"
	"github.com/onnwee/matchsync/platform"
	"github.com/onnwee/matchsync/robotevents"
	"github.com/onnwee/matchsync/stream"
	"github.com/onnwee/matchsync/twitchapi"
	"github.com/onnwee/matchsync/youtubeapi"
)

// ResultsProvider loads events and their matches. ListEventMatches drains
// pagination for every division and may return matches alongside an error
// describing the divisions that failed.
type ResultsProvider interface {
	EventBySKU(ctx context.Context, sku string) (event.Event, error)
	ListEventMatches(ctx context.Context, ev event.Event) ([]event.Match, error)
}

// LinkScraper returns the webcast links listed on an event page, or an empty
// slice when there are none or the page could not be read.
type LinkScraper interface {
	FetchWebcastLinks(ctx context.Context, sku string) []discovery.Link
}

// Service is safe for concurrent use; it keeps no state between calls beyond
// what the cache holds.
type Service struct {
	Results   ResultsProvider
	Scraper   LinkScraper
	Searchers discovery.Searchers
	Metadata  stream.MetadataSources
	Cache     cache.Cache
	CacheTTL  time.Duration

	Discovery              discovery.Options
	CalibrationConcurrency int
}

// twitchRPS stays well under Helix's app-token budget.
const twitchRPS = 10

// FromConfig wires the production collaborators. Platforms without credentials
// are left out of Searchers and Metadata, which discovery and calibration treat
// as "skip". The returned close func releases the cache backend.
func FromConfig(ctx context.Context, cfg *config.Config) (*Service, func() error, error) {
	c, closeCache, err := cache.Open(ctx, cache.Options{
		Backend:       cfg.CacheBackend,
		DSN:           cfg.DBDsn,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		SQLitePath:    cfg.SQLitePath,
	})
	if err != nil {
		return nil, closeCache, err
	}

	reHTTP := httpclient.New(httpclient.Options{
		Timeout: cfg.HTTPTimeout,
		RPS:     cfg.RobotEventsRPS,
		Burst:   2,
		Retry:   httpclient.DefaultRetryPolicy,
	})
	re := robotevents.New(cfg.RobotEventsToken, reHTTP)
	re.BaseURL = cfg.RobotEventsBaseURL

	svc := &Service{
		Results:                re,
		Scraper:                &robotevents.Scraper{WebURL: cfg.RobotEventsWebURL, HTTPClient: reHTTP},
		Searchers:              discovery.Searchers{},
		Metadata:               stream.MetadataSources{},
		Cache:                  c,
		CacheTTL:               cfg.CacheTTL,
		Discovery:              discovery.Options{Timeout: cfg.DiscoveryTimeout},
		CalibrationConcurrency: cfg.CalibrationConcurrency,
	}

	if cfg.YouTubeEnabled() {
		yt, err := youtubeapi.New(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			_ = closeCache()
			return nil, func() error { return nil }, err
		}
		svc.Searchers[platform.YouTube] = yt
		svc.Metadata[platform.YouTube] = yt
	} else {
		slog.Info("YOUTUBE_API_KEY not set; YouTube search and auto-calibration disabled")
	}
	if cfg.TwitchEnabled() {
		tw := twitchapi.NewHelixClient(cfg.TwitchClientID, cfg.TwitchClientSecret, httpclient.New(httpclient.Options{
			Timeout: cfg.HTTPTimeout,
			RPS:     twitchRPS,
			Burst:   5,
			Retry:   httpclient.DefaultRetryPolicy,
		}))
		svc.Searchers[platform.Twitch] = tw
		svc.Metadata[platform.Twitch] = tw
	} else {
		slog.Info("TWITCH_CLIENT_ID/SECRET not set; Twitch search and auto-calibration disabled")
	}
	return svc, closeCache, nil
}

func (s *Service) ttl() time.Duration {
	if s.CacheTTL > 0 {
		return s.CacheTTL
	}
	return time.Hour
}
