package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/learnhub/learnhub/internal/platform/httpx"
	"github.com/learnhub/learnhub/internal/rbac"
)

// RoleResolver loads the role set of a user.
type RoleResolver interface {
	RolesForUser(ctx context.Context, userID int64) (rbac.RoleSet, error)
}

// Authenticator resolves bearer tokens into rbac actors. Requests without an
// Authorization header continue as anonymous actors.
type Authenticator struct {
	service *Service
	roles   RoleResolver
	logger  *slog.Logger
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(service *Service, roles RoleResolver, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{service: service, roles: roles, logger: logger}
}

// Middleware installs the resolved actor in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r.WithContext(rbac.ContextWithActor(r.Context(), rbac.Anonymous())))
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			httpx.RespondError(w, ErrInvalidToken)
			return
		}

		user, err := a.service.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			if !isAuthFailure(err) {
				a.logger.Error("authenticate bearer token", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		roles, err := a.roles.RolesForUser(r.Context(), user.ID)
		if err != nil {
			a.logger.Error("resolve roles", slog.Int64("user_id", user.ID), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}

		actor := rbac.Actor{ID: user.ID, Authenticated: true, Roles: roles}
		next.ServeHTTP(w, r.WithContext(rbac.ContextWithActor(r.Context(), actor)))
	})
}

func isAuthFailure(err error) bool {
	return err == ErrInvalidToken || err == ErrInvalidCredentials
}
