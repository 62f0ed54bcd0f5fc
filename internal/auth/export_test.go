package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func chiRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/auth", h.MountRoutes)
	return r
}
