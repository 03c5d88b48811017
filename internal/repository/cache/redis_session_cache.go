// Package cache holds the Redis backed ephemeral stores shared by every
// instance of the API.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trawell-be/internal/repository/contract"
	"trawell-be/pkg/profiling"

	"github.com/redis/go-redis/v9"
)

const SessionKeyPrefix = "profiling_session:"

type RedisSessionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ contract.SessionCache = &RedisSessionCache{}

func NewRedisSessionCache(rdb *redis.Client, ttl time.Duration) *RedisSessionCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisSessionCache{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string {
	return SessionKeyPrefix + id
}

// Save refreshes the TTL on every write.
func (c *RedisSessionCache) Save(ctx context.Context, session *profiling.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	return c.rdb.Set(ctx, sessionKey(session.ID), raw, c.ttl).Err()
}

func (c *RedisSessionCache) Get(ctx context.Context, sessionID string) (*profiling.Session, bool, error) {
	raw, err := c.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var s profiling.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &s, true, nil
}

func (c *RedisSessionCache) Delete(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, sessionKey(sessionID)).Err()
}
