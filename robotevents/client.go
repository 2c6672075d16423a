// Package robotevents reads events, divisions and matches from the RobotEvents
// REST API v2 and scrapes webcast links from public event pages. Payloads are
// normalized into event records here so nothing downstream sees provider JSON.
package robotevents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"

	"github.com/onnwee/matchsync/event"
	"github.com/onnwee/matchsync/telemetry"
)

const provider = "robotevents"

// DefaultBaseURL is the API v2 root.
const DefaultBaseURL = "https://www.robotevents.com/api/v2"

// pageSize is the largest per_page the API accepts.
const pageSize = 250

// maxPages stops a runaway pagination walk.
const maxPages = 200

// ErrEventNotFound is returned by EventBySKU when no event carries the SKU.
var ErrEventNotFound = errors.New("robotevents: event not found")

// Client talks to the RobotEvents API with a bearer token.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a client authenticating with token. base carries timeouts, rate
// limiting and retries; nil uses http.DefaultClient.
func New(token string, base *http.Client) *Client {
	ctx := context.Background()
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	hc := oauth2.NewClient(ctx, ts)
	if base != nil {
		hc.Timeout = base.Timeout
	}
	return &Client{HTTPClient: hc}
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return DefaultBaseURL
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// StatusError is a non-200 API response.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("robotevents %s: status %d: %s", e.Path, e.Code, e.Body)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+path, nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	resp, err := c.http().Do(req)
	if err != nil {
		telemetry.RecordProviderRequest(provider, err)
		return fmt.Errorf("robotevents %s: %w", path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := &StatusError{Path: path, Code: resp.StatusCode, Body: string(b)}
		telemetry.RecordProviderRequest(provider, err)
		return err
	}
	telemetry.RecordProviderRequest(provider, nil)
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("robotevents %s: decode: %w", path, err)
	}
	return nil
}

type pageMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
}

// drain walks every page of a list endpoint.
func drain[T any](ctx context.Context, c *Client, path string, q url.Values) ([]T, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("per_page", strconv.Itoa(pageSize))
	var all []T
	for page := 1; page <= maxPages; page++ {
		q.Set("page", strconv.Itoa(page))
		var body struct {
			Meta pageMeta `json:"meta"`
			Data []T      `json:"data"`
		}
		if err := c.get(ctx, path, q, &body); err != nil {
			return all, err
		}
		all = append(all, body.Data...)
		if body.Meta.LastPage <= body.Meta.CurrentPage || len(body.Data) == 0 {
			return all, nil
		}
	}
	slog.Warn("robotevents pagination cut off", slog.String("path", path), slog.Int("pages", maxPages))
	return all, nil
}

// EventBySKU loads the event with the given SKU, divisions included.
func (c *Client) EventBySKU(ctx context.Context, sku string) (event.Event, error) {
	if strings.TrimSpace(sku) == "" {
		return event.Event{}, ErrEventNotFound
	}
	events, err := drain[apiEvent](ctx, c, "/events", url.Values{"sku[]": {sku}})
	if err != nil {
		return event.Event{}, err
	}
	for _, e := range events {
		if strings.EqualFold(e.SKU, sku) {
			return e.toEvent(), nil
		}
	}
	return event.Event{}, fmt.Errorf("%w: %s", ErrEventNotFound, sku)
}

// ListDivisions returns the divisions of an event in display order.
func (c *Client) ListDivisions(ctx context.Context, eventID int) ([]event.Division, error) {
	var e apiEvent
	if err := c.get(ctx, "/events/"+strconv.Itoa(eventID), nil, &e); err != nil {
		return nil, err
	}
	return e.toEvent().Divisions, nil
}

// ListMatches returns every match of one division, all pages drained.
func (c *Client) ListMatches(ctx context.Context, eventID, divisionID int) ([]event.Match, error) {
	path := fmt.Sprintf("/events/%d/divisions/%d/matches", eventID, divisionID)
	raw, err := drain[apiMatch](ctx, c, path, nil)
	out := make([]event.Match, 0, len(raw))
	for _, m := range raw {
		out = append(out, m.toMatch(divisionID))
	}
	return out, err
}

// ListEventMatches lists matches across all divisions of ev. A failing division
// is logged and reported in the joined error while the others are still
// returned. Divisions are fetched when ev carries none.
func (c *Client) ListEventMatches(ctx context.Context, ev event.Event) ([]event.Match, error) {
	divisions := ev.Divisions
	if len(divisions) == 0 {
		ds, err := c.ListDivisions(ctx, ev.ID)
		if err != nil {
			return nil, fmt.Errorf("list divisions: %w", err)
		}
		divisions = ds
	}
	var (
		all  []event.Match
		errs []error
	)
	for _, d := range divisions {
		ms, err := c.ListMatches(ctx, ev.ID, d.ID)
		if err != nil {
			slog.Warn("list matches failed",
				slog.String("sku", ev.SKU), slog.Int("division", d.ID), slog.Any("err", err))
			errs = append(errs, fmt.Errorf("division %d: %w", d.ID, err))
		}
		all = append(all, ms...)
	}
	return all, errors.Join(errs...)
}
