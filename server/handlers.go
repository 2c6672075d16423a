package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/onnwee/matchsync/event"
	"github.com/onnwee/matchsync/robotevents"
	"github.com/onnwee/matchsync/service"
	"github.com/onnwee/matchsync/stream"
	"github.com/onnwee/matchsync/telemetry"
)

// API is the slice of *service.Service the handlers drive.
type API interface {
	Candidates(ctx context.Context, sku string) (service.Discovery, error)
	Streams(ctx context.Context, sku string) (event.Event, stream.Pool, error)
	ResolveEvent(ctx context.Context, sku string, pool stream.Pool) (service.Resolution, error)
	Calibrate(ctx context.Context, pool stream.Pool) service.Calibration
	ManualCalibrate(pool stream.Pool, streamID string, matchTime time.Time, position float64) (stream.Pool, error)
	Nudge(pool stream.Pool, streamID string, delta time.Duration) (stream.Pool, error)
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	api   API
	ready []Check
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(api API, ready ...Check) *Handlers {
	return &Handlers{api: api, ready: ready}
}

type poolRequest struct {
	Streams stream.Pool `json:"streams"`
}

type manualRequest struct {
	Streams   stream.Pool `json:"streams"`
	Stream    string      `json:"stream"`
	MatchTime time.Time   `json:"matchTime"`
	Position  float64     `json:"position"`
}

type nudgeRequest struct {
	Streams stream.Pool `json:"streams"`
	Stream  string      `json:"stream"`
	// Delta is a Go duration string such as "5s" or "-1.5s".
	Delta string `json:"delta"`
}

type streamsResponse struct {
	Event   event.Event `json:"event"`
	Streams stream.Pool `json:"streams"`
}

func skuParam(r *http.Request) (string, bool) {
	sku := strings.TrimSpace(r.PathValue("sku"))
	return sku, sku != ""
}

// HandleCandidates serves GET /events/{sku}/candidates.
func (h *Handlers) HandleCandidates(w http.ResponseWriter, r *http.Request) {
	sku, ok := skuParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing event sku")
		return
	}
	d, err := h.api.Candidates(r.Context(), sku)
	if err != nil {
		h.providerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleStreams serves GET /events/{sku}/streams, the provisioned pool.
func (h *Handlers) HandleStreams(w http.ResponseWriter, r *http.Request) {
	sku, ok := skuParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing event sku")
		return
	}
	ev, pool, err := h.api.Streams(r.Context(), sku)
	if err != nil {
		h.providerError(w, r, err)
		return
	}
	if pool == nil {
		pool = stream.Pool{}
	}
	writeJSON(w, http.StatusOK, streamsResponse{Event: ev, Streams: pool})
}

// HandleResolve serves POST /events/{sku}/resolve.
func (h *Handlers) HandleResolve(w http.ResponseWriter, r *http.Request) {
	sku, ok := skuParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing event sku")
		return
	}
	var req poolRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.api.ResolveEvent(r.Context(), sku, req.Streams)
	if err != nil {
		h.providerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleCalibrate serves POST /streams/calibrate.
func (h *Handlers) HandleCalibrate(w http.ResponseWriter, r *http.Request) {
	var req poolRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.api.Calibrate(r.Context(), req.Streams))
}

// HandleManualCalibrate serves POST /streams/calibrate/manual.
func (h *Handlers) HandleManualCalibrate(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pool, err := h.api.ManualCalibrate(req.Streams, req.Stream, req.MatchTime, req.Position)
	if err != nil {
		streamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poolRequest{Streams: pool})
}

// HandleNudge serves POST /streams/nudge.
func (h *Handlers) HandleNudge(w http.ResponseWriter, r *http.Request) {
	var req nudgeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	delta, err := time.ParseDuration(req.Delta)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid delta: "+req.Delta)
		return
	}
	pool, err := h.api.Nudge(req.Streams, req.Stream, delta)
	if err != nil {
		streamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poolRequest{Streams: pool})
}

// providerError maps results-provider failures: an unknown SKU is 404, a
// timeout 503, anything else a bad gateway.
func (h *Handlers) providerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, robotevents.ErrEventNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request timed out")
	default:
		telemetry.LoggerWithCorr(r.Context()).Error("provider request failed", slog.Any("err", err), slog.String("component", "http"))
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func streamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stream.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, stream.ErrInvalidInstant),
		errors.Is(err, stream.ErrInvalidPosition),
		errors.Is(err, stream.ErrNotCalibrated):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
