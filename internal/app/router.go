package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/courses"
	"github.com/learnhub/learnhub/internal/observability"
	"github.com/learnhub/learnhub/internal/payments"
	"github.com/learnhub/learnhub/internal/platform/httpx"
	"github.com/learnhub/learnhub/internal/users"
	"github.com/learnhub/learnhub/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Metrics         *observability.Metrics
	Authenticate    func(http.Handler) http.Handler
	AuthHandler     *auth.Handler
	CoursesHandler  *courses.Handler
	UsersHandler    *users.Handler
	PaymentsHandler *payments.Handler
	JobHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with learnhub defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		if params.Authenticate != nil {
			r.Use(params.Authenticate)
		}
		if params.CoursesHandler != nil {
			r.Route("/courses", params.CoursesHandler.MountCourseRoutes)
			r.Route("/lessons", params.CoursesHandler.MountLessonRoutes)
			r.Route("/subscriptions", params.CoursesHandler.MountSubscriptionRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.PaymentsHandler != nil {
			r.Route("/payments", params.PaymentsHandler.MountRoutes)
		}
	})

	return r
}
