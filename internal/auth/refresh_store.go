package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshStore tracks outstanding refresh token ids so each one is usable
// exactly once.
type RefreshStore interface {
	Save(ctx context.Context, jti string, userID int64, ttl time.Duration) error
	Consume(ctx context.Context, jti string) (int64, error)
}

// RedisRefreshStore keeps refresh token ids in Redis with the token lifetime
// as TTL.
type RedisRefreshStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRefreshStore constructs a RedisRefreshStore.
func NewRedisRefreshStore(client redis.UniversalClient) *RedisRefreshStore {
	return &RedisRefreshStore{client: client, prefix: "learnhub:refresh:"}
}

// Save records jti as issued to userID.
func (s *RedisRefreshStore) Save(ctx context.Context, jti string, userID int64, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+jti, userID, ttl).Err(); err != nil {
		return fmt.Errorf("auth: save refresh token: %w", err)
	}
	return nil
}

// Consume atomically removes jti and returns its owner. Unknown, expired or
// already used ids yield ErrInvalidToken.
func (s *RedisRefreshStore) Consume(ctx context.Context, jti string) (int64, error) {
	val, err := s.client.GetDel(ctx, s.prefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrInvalidToken
	}
	if err != nil {
		return 0, fmt.Errorf("auth: consume refresh token: %w", err)
	}
	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

var _ RefreshStore = (*RedisRefreshStore)(nil)
