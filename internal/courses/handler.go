package courses

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/learnhub/learnhub/internal/platform/httpx"
	"github.com/learnhub/learnhub/internal/rbac"
	"github.com/learnhub/learnhub/internal/shared"
)

// Handler exposes course, lesson and subscription endpoints.
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

// MountCourseRoutes registers /courses routes.
func (h *Handler) MountCourseRoutes(r chi.Router) {
	r.Get("/", h.listCourses)
	r.Post("/", h.createCourse)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.getCourse)
		r.Put("/", h.updateCourse(false))
		r.Patch("/", h.updateCourse(true))
		r.Delete("/", h.deleteCourse)
	})
}

// MountLessonRoutes registers /lessons routes.
func (h *Handler) MountLessonRoutes(r chi.Router) {
	r.Get("/", h.listLessons)
	r.Post("/", h.createLesson)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.getLesson)
		r.Put("/", h.updateLesson(false))
		r.Patch("/", h.updateLesson(true))
		r.Delete("/", h.deleteLesson)
	})
}

// MountSubscriptionRoutes registers /subscriptions routes.
func (h *Handler) MountSubscriptionRoutes(r chi.Router) {
	r.Post("/toggle", h.toggle)
}

func (h *Handler) listCourses(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, rbac.ActionList, rbac.KindCourse) {
		return
	}
	page, err := shared.ParsePageRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.service.ListCourses(r.Context(), rbac.ActorFromContext(r.Context()), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) getCourse(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, rbac.ActionRetrieve, rbac.KindCourse) {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	course, err := h.service.GetCourse(r.Context(), rbac.ActorFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, course)
}

func (h *Handler) createCourse(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, rbac.ActionCreate, rbac.KindCourse) {
		return
	}
	var in CourseInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	course, err := h.service.CreateCourse(r.Context(), rbac.ActorFromContext(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, course)
}

func (h *Handler) updateCourse(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.gate(w, r, rbac.ActionUpdate, rbac.KindCourse) {
			return
		}
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var in CourseInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			h.fail(w, r, err)
			return
		}
		course, err := h.service.UpdateCourse(r.Context(), rbac.ActorFromContext(r.Context()), id, in, partial)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, course)
	}
}

func (h *Handler) deleteCourse(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, rbac.ActionDelete, rbac.KindCourse) {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.DeleteCourse(r.Context(), rbac.ActorFromContext(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listLessons(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, rbac.ActionList, rbac.KindLesson) {
		return
	}
	page, err := shared.ParsePageRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.service.ListLessons(r.Context(), rbac.ActorFromContext(r.Context()), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) getLesson(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, rbac.ActionRetrieve, rbac.KindLesson) {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	lesson, err := h.service.GetLesson(r.Context(), rbac.ActorFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lesson)
}

func (h *Handler) createLesson(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, rbac.ActionCreate, rbac.KindLesson) {
		return
	}
	var in LessonInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	lesson, err := h.service.CreateLesson(r.Context(), rbac.ActorFromContext(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lesson)
}

func (h *Handler) updateLesson(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.gate(w, r, rbac.ActionUpdate, rbac.KindLesson) {
			return
		}
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var in LessonInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			h.fail(w, r, err)
			return
		}
		lesson, err := h.service.UpdateLesson(r.Context(), rbac.ActorFromContext(r.Context()), id, in, partial)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, lesson)
	}
}

func (h *Handler) deleteLesson(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, rbac.ActionDelete, rbac.KindLesson) {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.DeleteLesson(r.Context(), rbac.ActorFromContext(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, rbac.ActionCreate, rbac.KindSubscription) {
		return
	}
	var in ToggleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.service.Toggle(r.Context(), rbac.ActorFromContext(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) gate(w http.ResponseWriter, r *http.Request, action rbac.Action, kind rbac.ResourceKind) bool {
	if err := h.service.Gate(rbac.ActorFromContext(r.Context()), action, kind); err != nil {
		h.fail(w, r, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.IsServerError(err) {
		h.logger.Error("courses request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	httpx.RespondError(w, err)
}
