package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/learnhub/learnhub/internal/platform/httpx"
	"github.com/learnhub/learnhub/internal/rbac"
	_ "github.com/learnhub/learnhub/testing"
)

type stubRepo struct {
	users   map[int64]*User
	touched map[int64]time.Time
}

func newStubRepo(t *testing.T, users ...*User) *stubRepo {
	t.Helper()
	repo := &stubRepo{users: map[int64]*User{}, touched: map[int64]time.Time{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, httpx.ErrNotFound
}

func (s *stubRepo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	s.touched[id] = at
	return nil
}

type stubRoles map[int64]rbac.RoleSet

func (s stubRoles) RolesForUser(ctx context.Context, userID int64) (rbac.RoleSet, error) {
	return s[userID], nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestService(t *testing.T, repo Repository) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	issuer, err := NewTokenIssuer("0123456789abcdef-test", 5*time.Minute, time.Hour)
	require.NoError(t, err)
	return NewService(repo, issuer, NewRedisRefreshStore(client), nil), mr
}

func TestLoginIssuesTokensAndStampsLastLogin(t *testing.T) {
	repo := newStubRepo(t, &User{ID: 7, Email: "alice@example.com", PasswordHash: hashPassword(t, "s3cret-pass"), IsActive: true})
	svc, mr := newTestService(t, repo)

	pair, err := svc.Login(context.Background(), "ALICE@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
	assert.Contains(t, repo.touched, int64(7))
	assert.Len(t, mr.Keys(), 1)

	user, err := svc.Authenticate(context.Background(), pair.Access)
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := newStubRepo(t,
		&User{ID: 1, Email: "alice@example.com", PasswordHash: hashPassword(t, "right-pass"), IsActive: true},
		&User{ID: 2, Email: "gone@example.com", PasswordHash: hashPassword(t, "right-pass"), IsActive: false},
	)
	svc, _ := newTestService(t, repo)

	cases := map[string][2]string{
		"wrong password": {"alice@example.com", "wrong-pass"},
		"unknown email":  {"nobody@example.com", "right-pass"},
		"inactive user":  {"gone@example.com", "right-pass"},
	}
	for name, creds := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), creds[0], creds[1])
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.ErrorIs(t, err, httpx.ErrUnauthorized)
		})
	}
	assert.Empty(t, repo.touched)
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := newStubRepo(t, &User{ID: 3, Email: "bob@example.com", PasswordHash: hashPassword(t, "bob-password"), IsActive: true})
	svc, _ := newTestService(t, repo)

	first, err := svc.Login(context.Background(), "bob@example.com", "bob-password")
	require.NoError(t, err)

	second, err := svc.Refresh(context.Background(), first.Refresh)
	require.NoError(t, err)
	assert.NotEqual(t, first.Refresh, second.Refresh)

	_, err = svc.Refresh(context.Background(), first.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken, "a consumed refresh token must not be accepted twice")

	_, err = svc.Refresh(context.Background(), second.Access)
	assert.ErrorIs(t, err, ErrInvalidToken, "access tokens cannot refresh")
}

func TestAuthenticateRejectsRefreshAndExpiredTokens(t *testing.T) {
	repo := newStubRepo(t, &User{ID: 4, Email: "carol@example.com", PasswordHash: hashPassword(t, "carol-password"), IsActive: true})
	svc, _ := newTestService(t, repo)

	pair, err := svc.Login(context.Background(), "carol@example.com", "carol-password")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	svc.issuer.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = svc.Authenticate(context.Background(), pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensWithNonNumericSubjectAreInvalid(t *testing.T) {
	svc, _ := newTestService(t, newStubRepo(t))

	sign := func(typ TokenType) string {
		now := time.Now()
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			TokenType: typ,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "admin",
				ID:        "jti-1",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
		}).SignedString([]byte("0123456789abcdef-test"))
		require.NoError(t, err)
		return raw
	}

	_, err := svc.Authenticate(context.Background(), sign(TokenAccess))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Refresh(context.Background(), sign(TokenRefresh))
	assert.ErrorIs(t, err, ErrInvalidToken)

	userID, err := (&Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "admin"}}).UserID()
	assert.Error(t, err)
	assert.Zero(t, userID)
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("short", time.Minute, time.Hour)
	assert.Error(t, err)
}

func TestAuthenticatorMiddleware(t *testing.T) {
	repo := newStubRepo(t, &User{ID: 9, Email: "mod@example.com", PasswordHash: hashPassword(t, "mod-password"), IsActive: true})
	svc, _ := newTestService(t, repo)
	pair, err := svc.Login(context.Background(), "mod@example.com", "mod-password")
	require.NoError(t, err)

	authn := NewAuthenticator(svc, stubRoles{9: rbac.NewRoleSet(rbac.RoleModerator)}, nil)
	var seen rbac.Actor
	handler := authn.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = rbac.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("anonymous", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/courses", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.False(t, seen.Authenticated)
	})

	t.Run("bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/courses", nil)
		req.Header.Set("Authorization", "Bearer "+pair.Access)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.True(t, seen.Authenticated)
		assert.Equal(t, int64(9), seen.ID)
		assert.True(t, seen.IsModerator())
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/courses", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestHandlerTokenEndpoints(t *testing.T) {
	repo := newStubRepo(t, &User{ID: 5, Email: "dave@example.com", PasswordHash: hashPassword(t, "dave-password"), IsActive: true})
	svc, _ := newTestService(t, repo)
	h := NewHandler(nil, svc)

	router := chiRouter(h)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"email":"dave@example.com","password":"dave-password"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"refresh"`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"email":"dave@example.com","password":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"email":"not-an-email"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"field":"email"`)
}
