package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/guild-ticket-bot/internal/domain"
)

const configCacheTTL = 5 * time.Minute

// ConfigCache is a redis read-through decorator over a
// TicketConfigRepository. Writes and counter increments invalidate the
// cached document. Cache failures degrade to the inner repository.
type ConfigCache struct {
	inner  TicketConfigRepository
	client *redis.Client
	logger *zap.Logger
}

// NewConfigCache wraps the repository with a redis cache.
func NewConfigCache(inner TicketConfigRepository, client *redis.Client, logger *zap.Logger) *ConfigCache {
	return &ConfigCache{inner: inner, client: client, logger: logger}
}

func configCacheKey(guildID string) string {
	return "ticket-config:" + guildID
}

// Get returns the cached document when present, loading and caching it
// otherwise.
func (c *ConfigCache) Get(ctx context.Context, guildID string) (*domain.TicketConfig, error) {
	key := configCacheKey(guildID)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cfg domain.TicketConfig
		if err := json.Unmarshal(raw, &cfg); err == nil {
			return &cfg, nil
		}
		// corrupt entry; drop it and fall through
		_ = c.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("config cache read failed", zap.String("guild_id", guildID), zap.Error(err))
	}

	cfg, err := c.inner.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(cfg); err == nil {
		if err := c.client.Set(ctx, key, encoded, configCacheTTL).Err(); err != nil {
			c.logger.Warn("config cache write failed", zap.String("guild_id", guildID), zap.Error(err))
		}
	}
	return cfg, nil
}

// Upsert writes through and invalidates the cache.
func (c *ConfigCache) Upsert(ctx context.Context, cfg *domain.TicketConfig) error {
	if err := c.inner.Upsert(ctx, cfg); err != nil {
		return err
	}
	c.invalidate(ctx, cfg.GuildID)
	return nil
}

// NextTicketNumber always hits the inner repository, then invalidates.
func (c *ConfigCache) NextTicketNumber(ctx context.Context, guildID string) (uint64, error) {
	counter, err := c.inner.NextTicketNumber(ctx, guildID)
	if err != nil {
		return 0, err
	}
	c.invalidate(ctx, guildID)
	return counter, nil
}

func (c *ConfigCache) invalidate(ctx context.Context, guildID string) {
	if err := c.client.Del(ctx, configCacheKey(guildID)).Err(); err != nil {
		c.logger.Warn("config cache invalidation failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

var _ TicketConfigRepository = (*ConfigCache)(nil)
