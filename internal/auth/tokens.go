package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the JWT payload for access and refresh tokens. The subject holds
// the user id and the registered ID holds a unique token id.
type Claims struct {
	TokenType TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: jwt secret must be at least 16 bytes")
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// RefreshTTL returns the lifetime of refresh tokens.
func (i *TokenIssuer) RefreshTTL() time.Duration {
	return i.refreshTTL
}

// IssuePair signs a fresh access/refresh pair for userID and returns the
// refresh token id so the caller can record it.
func (i *TokenIssuer) IssuePair(userID int64) (TokenPair, string, error) {
	access, _, err := i.sign(userID, TokenAccess, i.accessTTL)
	if err != nil {
		return TokenPair{}, "", err
	}
	refresh, jti, err := i.sign(userID, TokenRefresh, i.refreshTTL)
	if err != nil {
		return TokenPair{}, "", err
	}
	return TokenPair{Access: access, Refresh: refresh}, jti, nil
}

func (i *TokenIssuer) sign(userID int64, typ TokenType, ttl time.Duration) (string, string, error) {
	now := i.now()
	jti := uuid.NewString()
	claims := Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", "", fmt.Errorf("auth: sign %s token: %w", typ, err)
	}
	return signed, jti, nil
}

// Parse verifies the signature, expiry and token type.
func (i *TokenIssuer) Parse(raw string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != want {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
