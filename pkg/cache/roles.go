// Package cache holds short-lived lookups that sit in front of Postgres.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/clearance"
)

const roleKeyPrefix = "clearance:role:"

// RoleCache caches a user's project role so that every request does not
// need a membership query. A miss is never an error.
type RoleCache interface {
	Get(ctx context.Context, projectID, userID uuid.UUID) (clearance.Role, bool)
	Set(ctx context.Context, projectID, userID uuid.UUID, role clearance.Role)
	Invalidate(ctx context.Context, projectID, userID uuid.UUID)
}

// store is the slice of the Redis client the role cache uses.
type store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisRoleCache struct {
	client store
	ttl    time.Duration
	logger *zap.Logger
}

var _ RoleCache = (*redisRoleCache)(nil)

// NewRoleCache returns a Redis-backed cache, or a no-op cache when client is nil.
func NewRoleCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) RoleCache {
	if client == nil {
		return NoopRoleCache{}
	}
	return newRedisRoleCache(client, ttl, logger)
}

func newRedisRoleCache(client store, ttl time.Duration, logger *zap.Logger) *redisRoleCache {
	return &redisRoleCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("role-cache"),
	}
}

// RoleKey is the Redis key for a membership.
func RoleKey(projectID, userID uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s", roleKeyPrefix, projectID, userID)
}

func (c *redisRoleCache) Get(ctx context.Context, projectID, userID uuid.UUID) (clearance.Role, bool) {
	val, err := c.client.Get(ctx, RoleKey(projectID, userID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Role cache read failed", zap.Error(err))
		}
		return "", false
	}
	role := clearance.Role(val)
	if !role.Valid() {
		// Stale value from an older deployment.
		c.Invalidate(ctx, projectID, userID)
		return "", false
	}
	return role, true
}

func (c *redisRoleCache) Set(ctx context.Context, projectID, userID uuid.UUID, role clearance.Role) {
	if err := c.client.Set(ctx, RoleKey(projectID, userID), string(role), c.ttl).Err(); err != nil {
		c.logger.Warn("Role cache write failed", zap.Error(err))
	}
}

func (c *redisRoleCache) Invalidate(ctx context.Context, projectID, userID uuid.UUID) {
	if err := c.client.Del(ctx, RoleKey(projectID, userID)).Err(); err != nil {
		c.logger.Warn("Role cache invalidation failed", zap.Error(err))
	}
}

// NoopRoleCache always misses.
type NoopRoleCache struct{}

var _ RoleCache = NoopRoleCache{}

func (NoopRoleCache) Get(context.Context, uuid.UUID, uuid.UUID) (clearance.Role, bool) {
	return "", false
}

func (NoopRoleCache) Set(context.Context, uuid.UUID, uuid.UUID, clearance.Role) {}

func (NoopRoleCache) Invalidate(context.Context, uuid.UUID, uuid.UUID) {}
