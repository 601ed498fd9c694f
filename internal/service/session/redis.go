package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisScope stores values under "<prefix>:<key>" with no expiry.
type RedisScope struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedisScope returns a scope rooted at prefix.
func NewRedisScope(rdb redis.Cmdable, prefix string) *RedisScope {
	return &RedisScope{rdb: rdb, prefix: prefix}
}

func (s *RedisScope) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.rdb.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get %s: %w", s.key(key), err)
	}
	return value, true, nil
}

func (s *RedisScope) SetIfAbsent(ctx context.Context, key, value string) (string, error) {
	set, err := s.rdb.SetNX(ctx, s.key(key), value, 0).Result()
	if err != nil {
		return "", fmt.Errorf("failed to save %s: %w", s.key(key), err)
	}
	if set {
		return value, nil
	}

	// Lost the race to another request of the same visitor.
	stored, ok, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%s vanished after SETNX", s.key(key))
	}
	return stored, nil
}

func (s *RedisScope) key(key string) string {
	return scopedKey(s.prefix, key)
}

// RedisScopes gives each visitor its own key prefix.
type RedisScopes struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedisScopes builds visitor scopes under "<prefix>:visitor:<id>".
func NewRedisScopes(rdb redis.Cmdable, prefix string) *RedisScopes {
	return &RedisScopes{rdb: rdb, prefix: prefix}
}

func (r *RedisScopes) Scope(visitorID string) Scope {
	return NewRedisScope(r.rdb, visitorPrefix(r.prefix, visitorID))
}

func visitorPrefix(prefix, visitorID string) string {
	return scopedKey(prefix, "visitor:"+visitorID)
}

func scopedKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", prefix, key)
}
