package auth

import (
	"fmt"
	"time"

	"github.com/learnhub/learnhub/internal/platform/httpx"
)

// Authentication failures. Both map to 401.
var (
	ErrInvalidCredentials = fmt.Errorf("%w: no active account found with the given credentials", httpx.ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: token is invalid or expired", httpx.ErrUnauthorized)
)

// User is the authentication view of an account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	LastLogin    *time.Time
}

// TokenType distinguishes access from refresh tokens.
type TokenType string

// Token types carried in the "typ" claim.
const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// TokenPair is returned by login and refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
