package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bunpmc/clinic-scheduling/internal/booking"
)

const unifiedListKey = "cache:appointments:unified"

// unifiedListCache keeps the serialized unified list between mutations.
// Every failure is a cache miss: the caller falls back to a direct fetch and
// the request still succeeds.
type unifiedListCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewUnifiedListCache builds the booking service's list cache on top of a
// shared Redis client.
func NewUnifiedListCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) booking.UnifiedCache {
	return &unifiedListCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (c *unifiedListCache) Get(ctx context.Context) ([]booking.UnifiedAppointment, bool) {
	raw, err := c.client.Get(ctx, unifiedListKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Msg("unified list cache read failed")
		}
		return nil, false
	}

	var list []booking.UnifiedAppointment
	if err := json.Unmarshal(raw, &list); err != nil {
		c.log.Warn().Err(err).Msg("unified list cache entry corrupt, dropping")
		_ = c.client.Del(ctx, unifiedListKey).Err()
		return nil, false
	}

	return list, true
}

func (c *unifiedListCache) Set(ctx context.Context, list []booking.UnifiedAppointment) {
	raw, err := json.Marshal(list)
	if err != nil {
		c.log.Warn().Err(err).Msg("unified list cache encode failed")
		return
	}

	if err := c.client.Set(ctx, unifiedListKey, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("unified list cache write failed")
	}
}

func (c *unifiedListCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, unifiedListKey).Err(); err != nil {
		c.log.Warn().Err(err).Msg("unified list cache invalidate failed")
	}
}
