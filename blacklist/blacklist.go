// Package blacklist records revoked token identifiers until the tokens they
// name would have expired on their own.
//
// Entries carry a TTL equal to the token's remaining lifetime, so the
// registry never grows past the set of live tokens. A lookup failure is an
// error, never a silent "not revoked".
package blacklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces blacklist keys in Redis.
const DefaultPrefix = "jwt:blacklist:"

const marker = "blacklisted"

var (
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("blacklist backend unavailable")
	// ErrEmptyTokenID is returned when no jti was supplied.
	ErrEmptyTokenID = errors.New("token id is empty")
)

// Registry tracks revoked token ids.
type Registry interface {
	Add(ctx context.Context, tokenID string, ttl time.Duration) error
	Contains(ctx context.Context, tokenID string) (bool, error)
}

// RedisRegistry stores one key per revoked jti.
type RedisRegistry struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisRegistry returns a registry on redisClient. An empty prefix
// selects [DefaultPrefix].
func NewRedisRegistry(redisClient redis.UniversalClient, prefix string) *RedisRegistry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisRegistry{redis: redisClient, prefix: prefix}
}

// Add revokes tokenID for ttl. A non-positive ttl means the token has
// already expired and nothing is written.
func (r *RedisRegistry) Add(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return ErrEmptyTokenID
	}
	if ttl <= 0 {
		return nil
	}
	if err := r.redis.Set(ctx, r.prefix+tokenID, marker, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Contains reports whether tokenID is revoked.
func (r *RedisRegistry) Contains(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, ErrEmptyTokenID
	}
	n, err := r.redis.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n == 1, nil
}
