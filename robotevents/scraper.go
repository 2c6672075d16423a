package robotevents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/onnwee/matchsync/discovery"
	"github.com/onnwee/matchsync/platform"
	"github.com/onnwee/matchsync/telemetry"
)

// DefaultWebURL is the public site root.
const DefaultWebURL = "https://www.robotevents.com"

// programSlugs maps SKU program prefixes to the path segment of event pages.
var programSlugs = map[string]string{
	"VRC":   "vex-robotics-competition",
	"V5RC":  "vex-robotics-competition",
	"VIQC":  "vex-iq-competition",
	"VIQRC": "vex-iq-competition",
	"VEXU":  "college-competition",
	"VURC":  "college-competition",
	"VAIRC": "vex-ai-competition",
	"ADC":   "aerial-drone-competition",
}

// Scraper pulls webcast links from event listing pages.
type Scraper struct {
	WebURL     string
	HTTPClient *http.Client
}

// EventPageURL builds the listing URL for sku, e.g. RE-VRC-23-1234.
func (s *Scraper) EventPageURL(sku string) string {
	root := s.WebURL
	if root == "" {
		root = DefaultWebURL
	}
	slug := "robot-competitions"
	parts := strings.Split(strings.ToUpper(sku), "-")
	if len(parts) > 1 {
		if p, ok := programSlugs[parts[1]]; ok {
			slug = "robot-competitions/" + p
		}
	}
	return fmt.Sprintf("%s/%s/%s.html", strings.TrimRight(root, "/"), slug, sku)
}

// FetchWebcastLinks returns the video and channel links on the event page. It is
// best-effort: any failure is logged and yields an empty slice.
func (s *Scraper) FetchWebcastLinks(ctx context.Context, sku string) []discovery.Link {
	ctx, span := telemetry.StartSpan(ctx, "robotevents.FetchWebcastLinks", telemetry.SKUAttr(sku))
	defer span.End()
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("sku", sku))

	if strings.TrimSpace(sku) == "" {
		return []discovery.Link{}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.EventPageURL(sku), nil)
	if err != nil {
		log.Warn("event page request", slog.Any("err", err))
		return []discovery.Link{}
	}
	req.Header.Set("Accept", "text/html")
	hc := s.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		telemetry.RecordProviderRequest(provider, err)
		telemetry.RecordError(span, err)
		log.Warn("event page fetch failed", slog.Any("err", err))
		return []discovery.Link{}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		err := &StatusError{Path: req.URL.Path, Code: resp.StatusCode}
		telemetry.RecordProviderRequest(provider, err)
		if resp.StatusCode != http.StatusNotFound {
			log.Warn("event page fetch failed", slog.Int("status", resp.StatusCode))
		}
		return []discovery.Link{}
	}
	telemetry.RecordProviderRequest(provider, nil)
	links := ParseWebcastLinks(resp.Body)
	span.SetAttributes(telemetry.CountAttr("links", len(links)))
	telemetry.SetSpanSuccess(span)
	log.Debug("webcast links scraped", slog.Int("count", len(links)))
	return links
}

// isWebcastURL keeps links that point at a supported platform's video or channel.
func isWebcastURL(raw string) bool {
	if _, ok := platform.ParseVideo(raw); ok {
		return true
	}
	_, ok := platform.ParseChannel(raw)
	return ok
}

func attr(t html.Token, key string) string {
	for _, a := range t.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// ParseWebcastLinks extracts anchors and embedded players that point at a
// supported platform. The label is the anchor text, falling back to the title
// or aria-label attribute. Duplicate URLs keep their first label.
func ParseWebcastLinks(r io.Reader) []discovery.Link {
	z := html.NewTokenizer(r)
	links := []discovery.Link{}
	seen := map[string]bool{}
	add := func(u, label string) {
		if strings.HasPrefix(u, "//") {
			u = "https:" + u
		}
		if u == "" || seen[u] || !isWebcastURL(u) {
			return
		}
		seen[u] = true
		links = append(links, discovery.Link{URL: u, Label: strings.Join(strings.Fields(label), " ")})
	}

	var (
		inAnchor bool
		href     string
		fallback string
		text     strings.Builder
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if inAnchor {
				add(href, labelOr(text.String(), fallback))
			}
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			t := z.Token()
			switch t.Data {
			case "a":
				if inAnchor {
					add(href, labelOr(text.String(), fallback))
				}
				inAnchor = true
				href = attr(t, "href")
				fallback = attr(t, "title")
				if fallback == "" {
					fallback = attr(t, "aria-label")
				}
				text.Reset()
			case "iframe":
				add(attr(t, "src"), attr(t, "title"))
			case "img":
				if inAnchor && fallback == "" {
					fallback = attr(t, "alt")
				}
			}
		case html.TextToken:
			if inAnchor {
				text.Write(z.Text())
				text.WriteByte(' ')
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "a" && inAnchor {
				add(href, labelOr(text.String(), fallback))
				inAnchor = false
			}
		}
	}
}

func labelOr(text, fallback string) string {
	if strings.TrimSpace(text) != "" {
		return text
	}
	return fallback
}
