package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/id"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration. Returns nil
// when no address is configured; the profile cache is optional.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Info("REDIS_ADDR not provided; profile cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Ping verifies connectivity. A disabled cache always reports healthy.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Ping(ctx).Err()
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

const profileCacheTTL = 5 * time.Minute

// ProfileCache is a redis-backed cache of user/group display profiles used
// by view enrichment. All operations are best-effort.
type ProfileCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewProfileCache constructs the cache. A nil Redis yields a nil cache,
// which callers treat as a permanent miss.
func NewProfileCache(r *Redis, logger *zap.Logger) *ProfileCache {
	if r == nil || r.Client == nil {
		return nil
	}
	return &ProfileCache{client: r.Client, logger: logger}
}

// GetUserProfile returns the cached user profile, false on miss or error.
func (c *ProfileCache) GetUserProfile(ctx context.Context, userID id.ID) (*domain.UserProfile, bool) {
	if c == nil {
		return nil, false
	}
	var profile domain.UserProfile
	if !c.get(ctx, "profile:user:"+userID.String(), &profile) {
		return nil, false
	}
	return &profile, true
}

// SetUserProfile stores the user profile with a short TTL.
func (c *ProfileCache) SetUserProfile(ctx context.Context, profile domain.UserProfile) {
	if c == nil {
		return
	}
	c.set(ctx, "profile:user:"+profile.ID.String(), profile)
}

// GetGroupProfile returns the cached group profile, false on miss or error.
func (c *ProfileCache) GetGroupProfile(ctx context.Context, groupID id.ID) (*domain.GroupProfile, bool) {
	if c == nil {
		return nil, false
	}
	var profile domain.GroupProfile
	if !c.get(ctx, "profile:group:"+groupID.String(), &profile) {
		return nil, false
	}
	return &profile, true
}

// SetGroupProfile stores the group profile with a short TTL.
func (c *ProfileCache) SetGroupProfile(ctx context.Context, profile domain.GroupProfile) {
	if c == nil {
		return
	}
	c.set(ctx, "profile:group:"+profile.ID.String(), profile)
}

func (c *ProfileCache) get(ctx context.Context, key string, target any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, target); err != nil {
		c.logger.Warn("corrupt cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *ProfileCache) set(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, profileCacheTTL).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
