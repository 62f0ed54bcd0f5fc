package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/learnhub/learnhub/internal/platform/httpx"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	issuer *TokenIssuer
	store  RefreshStore
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, issuer *TokenIssuer, store RefreshStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, issuer: issuer, store: store, logger: logger, now: time.Now}
}

// Login validates email/password credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if !user.IsActive {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issue(ctx, user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.repo.TouchLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		s.logger.Warn("stamp last login", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed, so replaying it fails.
func (s *Service) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	claims, err := s.issuer.Parse(raw, TokenRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	owner, err := s.store.Consume(ctx, claims.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if owner != userID {
		return TokenPair{}, ErrInvalidToken
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil || !user.IsActive {
		return TokenPair{}, ErrInvalidToken
	}
	return s.issue(ctx, userID)
}

// Authenticate resolves an access token to an active user.
func (s *Service) Authenticate(ctx context.Context, raw string) (*User, error) {
	claims, err := s.issuer.Parse(raw, TokenAccess)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}
	return user, nil
}

func (s *Service) issue(ctx context.Context, userID int64) (TokenPair, error) {
	pair, jti, err := s.issuer.IssuePair(userID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.Save(ctx, jti, userID, s.issuer.RefreshTTL()); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}
