package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/learnhub/learnhub/internal/platform/httpx"
	"github.com/learnhub/learnhub/internal/rbac"
	"github.com/learnhub/learnhub/internal/shared"
)

// Handler exposes registration and profile endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /users routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.register)
	r.Get("/", h.list)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/", h.update(false))
		r.Patch("/", h.update(true))
		r.Delete("/", h.delete)
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, rbac.ActionCreate) {
		return
	}
	var in RegisterInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.service.Register(r.Context(), rbac.ActorFromContext(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, rbac.ActionList) {
		return
	}
	page, err := shared.ParsePageRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.service.List(r.Context(), rbac.ActorFromContext(r.Context()), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, rbac.ActionRetrieve) {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.service.Get(r.Context(), rbac.ActorFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) update(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.gate(w, r, rbac.ActionUpdate) {
			return
		}
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var in UpdateInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			h.fail(w, r, err)
			return
		}
		user, err := h.service.Update(r.Context(), rbac.ActorFromContext(r.Context()), id, in, partial)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, user)
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, rbac.ActionDelete) {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), rbac.ActorFromContext(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) gate(w http.ResponseWriter, r *http.Request, action rbac.Action) bool {
	if err := h.service.Gate(rbac.ActorFromContext(r.Context()), action); err != nil {
		h.fail(w, r, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.IsServerError(err) {
		h.logger.Error("users request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	httpx.RespondError(w, err)
}
