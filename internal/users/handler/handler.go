package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"consents/internal/users/models"
	id "consents/pkg/domain"
	dErrors "consents/pkg/domain-errors"
	"consents/pkg/platform/httputil"
	"consents/pkg/requestcontext"
)

// Service defines the user operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, email string) (*models.View, error)
	Find(ctx context.Context, userID id.UserID) (*models.View, error)
	List(ctx context.Context) ([]*models.View, error)
	Update(ctx context.Context, userID id.UserID, email string) (*models.View, error)
	Delete(ctx context.Context, userID id.UserID) *id.DeleteResult
}

// Handler handles the /users endpoints.
type Handler struct {
	users  Service
	logger *slog.Logger
}

func New(users Service, logger *slog.Logger) *Handler {
	return &Handler{users: users, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Put("/", h.HandleUpdate)
		r.Get("/{id}", h.HandleFind)
		r.Delete("/{id}", h.HandleDelete)
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateUserRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}

	user, err := h.users.Create(ctx, req.Email)
	if err != nil {
		h.logFailure(ctx, "failed to create user", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.users.List(ctx)
	if err != nil {
		h.logFailure(ctx, "failed to list users", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

// HandleFind answers 404 for malformed ids as well as unknown ones.
func (h *Handler) HandleFind(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "user not found"))
		return
	}

	user, err := h.users.Find(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "failed to find user", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[UpdateUserRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}
	userID, err := id.ParseUserID(req.ID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "user not found"))
		return
	}

	user, err := h.users.Update(ctx, userID, req.Email)
	if err != nil {
		h.logFailure(ctx, "failed to update user", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// HandleDelete always answers 200; the body says whether the delete happened.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteJSON(w, http.StatusOK, id.NotDeleted("invalid user id"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.users.Delete(ctx, userID))
}

// logFailure logs client errors at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	level := slog.LevelError
	if dErrors.HasCode(err, dErrors.CodeValidation) ||
		dErrors.HasCode(err, dErrors.CodeConflict) ||
		dErrors.HasCode(err, dErrors.CodeNotFound) {
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
