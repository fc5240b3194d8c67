package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces verification keys in Redis.
const DefaultRedisPrefix = "email_verification:"

// consumeLua deletes KEYS[1] only when it holds ARGV[1].
// Returns 1 when consumed, 0 on mismatch and -1 when the key is absent.
// The comparison runs inside Redis, where response timing is dominated by the
// round trip, so it is not constant time.
var consumeLua = redis.NewScript(`
local value = redis.call('GET', KEYS[1])
if not value then
  return -1
end
if ARGV[1] ~= '' and value == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`)

// RedisStore keeps codes as plain string keys with a native TTL.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption customizes a [RedisStore].
type RedisOption func(*RedisStore)

// WithRedisPrefix overrides [DefaultRedisPrefix].
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRedisTTL overrides [DefaultTTL].
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewRedisStore returns a store backed by redisClient.
func NewRedisStore(redisClient redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		redis:  redisClient,
		prefix: DefaultRedisPrefix,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

// Save writes value with a fresh TTL, replacing any previous code.
func (s *RedisStore) Save(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if err := s.redis.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Find returns the live code for key.
func (s *RedisStore) Find(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}
	value, err := s.redis.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, true, nil
}

// Delete removes the code for key, if any.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ValidateAndDelete runs the compare-and-delete script in a single round
// trip, so two concurrent callers cannot both consume the same code.
func (s *RedisStore) ValidateAndDelete(ctx context.Context, key, candidate string) (bool, error) {
	outcome, err := s.Consume(ctx, key, candidate)
	return outcome == Consumed, err
}

// Consume is ValidateAndDelete that also reports whether a code was present.
func (s *RedisStore) Consume(ctx context.Context, key, candidate string) (Outcome, error) {
	if key == "" {
		return Absent, ErrInvalidKey
	}
	res, err := consumeLua.Run(ctx, s.redis, []string{s.key(key)}, candidate).Int64()
	if err != nil {
		return Absent, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch res {
	case 1:
		return Consumed, nil
	case 0:
		return Mismatch, nil
	default:
		return Absent, nil
	}
}
