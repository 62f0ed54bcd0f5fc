package payments

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/learnhub/learnhub/internal/platform/httpx"
	"github.com/learnhub/learnhub/internal/rbac"
	"github.com/learnhub/learnhub/internal/shared"
)

// Handler exposes payment endpoints.
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

// MountRoutes registers /payments routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
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
	filter, err := ParseFilter(r.URL.Query().Get)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.service.List(r.Context(), rbac.ActorFromContext(r.Context()), filter, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, rbac.ActionCreate) {
		return
	}
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	payment, err := h.service.Create(r.Context(), rbac.ActorFromContext(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
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
		h.logger.Error("payments request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	httpx.RespondError(w, err)
}

// ParseFilter reads list filters from query values.
func ParseFilter(get func(string) string) (Filter, error) {
	var f Filter
	for _, key := range []string{"course_id", "lesson_id"} {
		raw := get(key)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Filter{}, httpx.NewFieldError(key, "enter a valid id")
		}
		if key == "course_id" {
			f.CourseID = &id
		} else {
			f.LessonID = &id
		}
	}
	switch m := Method(get("method")); m {
	case "", MethodCash, MethodTransfer:
		f.Method = m
	default:
		return Filter{}, httpx.NewFieldError("method", "value must be one of: cash transfer")
	}
	switch o := get("ordering"); o {
	case "", OrderByDate, OrderByDateDesc:
		f.Ordering = o
	default:
		return Filter{}, httpx.NewFieldError("ordering", "value must be one of: date -date")
	}
	return f, nil
}
