// Package handler provides the HTTP handlers of the tracker bridge.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/vehicletracker/vehicletracker/internal/animation"
	"github.com/vehicletracker/vehicletracker/internal/api/models"
	"github.com/vehicletracker/vehicletracker/internal/api/response"
)

// Tracker is the engine surface the bridge drives. *animation.Engine implements it.
type Tracker interface {
	Catalog() *animation.Catalog
	Snapshot() animation.Snapshot
	SelectOption(key animation.Option) error
	GenerateRoute(ctx context.Context) error
	StartPlayback() error
	StopPlayback()
	Subscribe(buffer int) (<-chan animation.Snapshot, func())
	Subscribers() int
}

// TrackerHandler maps HTTP intents onto engine operations.
type TrackerHandler struct {
	tracker Tracker
	logger  zerolog.Logger
}

// NewTrackerHandler creates a TrackerHandler.
func NewTrackerHandler(t Tracker, logger zerolog.Logger) *TrackerHandler {
	return &TrackerHandler{
		tracker: t,
		logger:  logger.With().Str("component", "tracker_handler").Logger(),
	}
}

// GetSnapshot handles GET /v1/tracker.
func (h *TrackerHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.NewTrackerSnapshot(h.tracker.Snapshot(), true))
}

// ListOptions handles GET /v1/tracker/options.
func (h *TrackerHandler) ListOptions(w http.ResponseWriter, r *http.Request) {
	selected := h.tracker.Snapshot().Option
	response.JSON(w, r, http.StatusOK, models.NewRouteOptionList(h.tracker.Catalog(), selected))
}

// SelectOption handles PUT /v1/tracker/option.
func (h *TrackerHandler) SelectOption(w http.ResponseWriter, r *http.Request) {
	var req models.SelectOptionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if errs := validateRequest(req); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", errs)
		return
	}

	if err := h.tracker.SelectOption(animation.Option(req.Option)); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.GetSnapshot(w, r)
}

// GenerateRoute handles POST /v1/tracker/route:generate. The request returns once the
// provider has answered; the same outcome is visible on the stream. A client that
// disconnects early does not abort the fetch.
func (h *TrackerHandler) GenerateRoute(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.GenerateRoute(context.WithoutCancel(r.Context())); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.GetSnapshot(w, r)
}

// StartPlayback handles POST /v1/tracker/playback:start.
func (h *TrackerHandler) StartPlayback(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.StartPlayback(); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.GetSnapshot(w, r)
}

// StopPlayback handles POST /v1/tracker/playback:stop. Stopping when not playing is a no-op.
func (h *TrackerHandler) StopPlayback(w http.ResponseWriter, r *http.Request) {
	h.tracker.StopPlayback()
	h.GetSnapshot(w, r)
}

func (h *TrackerHandler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, animation.ErrUnknownOption):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, animation.ErrInvalidTransition):
		response.Conflict(w, r, "no route to play; generate a route first")
	case errors.Is(err, animation.ErrSuperseded):
		response.Conflict(w, r, "superseded by a newer selection or generation")
	case errors.Is(err, animation.ErrEmptyRoute):
		response.NoRoute(w, r, "the route provider found no route between these points")
	case errors.Is(err, animation.ErrRouteFetchFailed):
		h.logger.Warn().Err(err).Msg("route generation failed")
		response.BadGateway(w, r, "the route provider could not be reached")
	case errors.Is(err, animation.ErrClosed):
		response.ServiceUnavailable(w, r, "tracker is shutting down")
	default:
		h.logger.Error().Err(err).Msg("unexpected engine error")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
