package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTokenPrefix = "refresh_token:"
	defaultUserPrefix  = "user_tokens:"
)

// ErrUnavailable wraps backend failures.
var ErrUnavailable = errors.New("refresh registry unavailable")

// Registry records redeemable refresh token ids.
type Registry interface {
	Record(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error
	Lookup(ctx context.Context, tokenID string) (int64, bool, error)
	Redeem(ctx context.Context, tokenID string) (int64, bool, error)
	Revoke(ctx context.Context, tokenID string) error
	RevokeAll(ctx context.Context, userID int64) (int, error)
}

// RedisRegistry implements [Registry] with one string key per token and one
// set per user.
type RedisRegistry struct {
	redis       redis.UniversalClient
	tokenPrefix string
	userPrefix  string
}

// NewRedisRegistry returns a registry on redisClient.
func NewRedisRegistry(redisClient redis.UniversalClient) *RedisRegistry {
	return &RedisRegistry{
		redis:       redisClient,
		tokenPrefix: defaultTokenPrefix,
		userPrefix:  defaultUserPrefix,
	}
}

func (r *RedisRegistry) tokenKey(tokenID string) string {
	return r.tokenPrefix + tokenID
}

func (r *RedisRegistry) userKey(userID int64) string {
	return r.userPrefix + strconv.FormatInt(userID, 10)
}

// Record stores tokenID for userID in a single MULTI block.
func (r *RedisRegistry) Record(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return errors.New("invalid refresh record")
	}
	userKey := r.userKey(userID)
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.tokenKey(tokenID), strconv.FormatInt(userID, 10), ttl)
		pipe.SAdd(ctx, userKey, tokenID)
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Lookup returns the owner of tokenID when it is still redeemable.
func (r *RedisRegistry) Lookup(ctx context.Context, tokenID string) (int64, bool, error) {
	if tokenID == "" {
		return 0, false, nil
	}
	raw, err := r.redis.Get(ctx, r.tokenKey(tokenID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return userID, true, nil
}

// Redeem atomically removes tokenID and returns its owner. Of several
// concurrent callers at most one sees ok == true.
func (r *RedisRegistry) Redeem(ctx context.Context, tokenID string) (int64, bool, error) {
	if tokenID == "" {
		return 0, false, nil
	}
	raw, err := r.redis.GetDel(ctx, r.tokenKey(tokenID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	if err := r.redis.SRem(ctx, r.userKey(userID), tokenID).Err(); err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return userID, true, nil
}

// Revoke drops tokenID and removes it from its owner's set. Unknown ids are
// not an error.
func (r *RedisRegistry) Revoke(ctx context.Context, tokenID string) error {
	userID, ok, err := r.Lookup(ctx, tokenID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.tokenKey(tokenID))
		pipe.SRem(ctx, r.userKey(userID), tokenID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RevokeAll drops every refresh token of userID and reports how many were
// recorded.
func (r *RedisRegistry) RevokeAll(ctx context.Context, userID int64) (int, error) {
	userKey := r.userKey(userID)
	ids, err := r.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.tokenKey(id))
	}
	keys = append(keys, userKey)
	if err := r.redis.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return len(ids), nil
}
