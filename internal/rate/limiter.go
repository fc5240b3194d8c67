package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Bucket names a throttled action.
type Bucket string

const (
	EmailSend    Bucket = "email_send"
	EmailVerify  Bucket = "email_verify"
	Signup       Bucket = "signup"
	Login        Bucket = "login"
	LoginByEmail Bucket = "login_email"
	Refresh      Bucket = "refresh"
)

// Rule is a request budget per window. A zero Limit disables the rule.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Enabled reports whether the rule throttles anything.
func (r Rule) Enabled() bool {
	return r.Limit > 0 && r.Window > 0
}

// Limiter enforces fixed-window budgets using Redis counters.
type Limiter struct {
	redis redis.UniversalClient
	rules map[Bucket]Rule
}

// New creates a [Limiter] with one rule per bucket. Buckets without a rule
// are not throttled.
func New(redisClient redis.UniversalClient, rules map[Bucket]Rule) *Limiter {
	copied := make(map[Bucket]Rule, len(rules))
	for b, r := range rules {
		copied[b] = r
	}
	return &Limiter{redis: redisClient, rules: copied}
}

// Allow consumes one unit of id's budget in bucket.
func (l *Limiter) Allow(ctx context.Context, bucket Bucket, id string) error {
	rule, ok := l.rules[bucket]
	if !ok || !rule.Enabled() || id == "" {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, key(bucket, id), rule.Window)
	if err != nil {
		return err
	}
	if count > int64(rule.Limit) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears id's counter in bucket, used after a successful login.
func (l *Limiter) Reset(ctx context.Context, bucket Bucket, id string) error {
	if id == "" {
		return nil
	}
	if err := l.redis.Del(ctx, key(bucket, id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Remaining returns the unused budget of id in bucket without consuming it.
func (l *Limiter) Remaining(ctx context.Context, bucket Bucket, id string) (int, error) {
	rule, ok := l.rules[bucket]
	if !ok || !rule.Enabled() {
		return -1, nil
	}
	count, err := l.redis.Get(ctx, key(bucket, id)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return rule.Limit, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	left := rule.Limit - int(count)
	if left < 0 {
		left = 0
	}
	return left, nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func key(bucket Bucket, id string) string {
	return "rl:" + string(bucket) + ":" + id
}
