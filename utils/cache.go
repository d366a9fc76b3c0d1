package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"astrobook/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const slotCachePrefix = "slots:"

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis (db %d): %w", db, err)
	}
	return client, nil
}

// RedisSlotCache stores computed slot lists with one expiring key per (day, service).
// A per-day set indexes the services cached for that day so a day can be dropped at once.
type RedisSlotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisSlotCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSlotCache {
	return &RedisSlotCache{client: client, ttl: ttl, logger: logger}
}

func slotKey(day, serviceID string) string { return slotCachePrefix + day + ":" + serviceID }

func slotDayIndex(day string) string { return slotCachePrefix + day }

func (c *RedisSlotCache) Get(ctx context.Context, serviceID, day string) ([]models.Slot, bool) {
	data, err := c.client.Get(ctx, slotKey(day, serviceID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("slot cache read failed", zap.String("day", day), zap.Error(err))
		}
		return nil, false
	}
	var slots []models.Slot
	if err := json.Unmarshal(data, &slots); err != nil {
		c.logger.Warn("slot cache entry unreadable", zap.String("day", day), zap.Error(err))
		return nil, false
	}
	return slots, true
}

func (c *RedisSlotCache) Set(ctx context.Context, serviceID, day string, slots []models.Slot) {
	if slots == nil {
		slots = []models.Slot{}
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return
	}
	index := slotDayIndex(day)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, slotKey(day, serviceID), data, c.ttl)
	// The index only has to outlive the newest entry; extra members are harmless.
	pipe.SAdd(ctx, index, serviceID)
	pipe.Expire(ctx, index, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("slot cache write failed", zap.String("day", day), zap.Error(err))
	}
}

// InvalidateDay drops every cached service entry for the day.
func (c *RedisSlotCache) InvalidateDay(ctx context.Context, day string) {
	index := slotDayIndex(day)
	services, err := c.client.SMembers(ctx, index).Result()
	if err != nil {
		c.logger.Warn("slot cache invalidation failed", zap.String("day", day), zap.Error(err))
		return
	}
	keys := make([]string, 0, len(services)+1)
	keys = append(keys, index)
	for _, id := range services {
		keys = append(keys, slotKey(day, id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("slot cache invalidation failed", zap.String("day", day), zap.Error(err))
	}
}
