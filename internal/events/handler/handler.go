package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	consent "consents/internal/consent/models"
	"consents/internal/events/models"
	id "consents/pkg/domain"
	"consents/pkg/platform/httputil"
	"consents/pkg/requestcontext"
)

// Service defines the event operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, userID id.UserID, deltas []consent.Delta) (*models.Event, error)
	List(ctx context.Context) ([]*models.Event, error)
	Delete(ctx context.Context, eventID id.EventID) *id.DeleteResult
}

// Handler handles the /events endpoints.
type Handler struct {
	events Service
	logger *slog.Logger
}

func New(events Service, logger *slog.Logger) *Handler {
	return &Handler{events: events, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Delete("/{id}", h.HandleDelete)
	})
}

// HandleCreate answers 201 with an empty body once the event is stored. A
// failed consent projection is logged; the event is kept and a retry would
// only record it twice.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateEventRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}

	_, err := h.events.Create(ctx, req.userID, req.Consents)
	var projErr *models.ProjectionError
	switch {
	case errors.As(err, &projErr):
		h.logger.WarnContext(ctx, "event recorded without consent projection",
			"event_id", projErr.EventID,
			"user_id", req.userID,
			"error", projErr.Err,
			"request_id", requestID,
		)
	case err != nil:
		h.logger.ErrorContext(ctx, "failed to create event",
			"error", err,
			"user_id", req.userID,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events, err := h.events.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list events",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	resp := make([]EventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, toResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleDelete always answers 200; the body says whether the delete happened.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := id.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteJSON(w, http.StatusOK, id.NotDeleted("invalid event id"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.events.Delete(ctx, eventID))
}
