package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"accreditation/internal/catalog"
	"accreditation/internal/model"
)

// CriteriaCache is a read-through Redis cache in front of a CriteriaSource.
// Cache failures fall back to the source.
type CriteriaCache struct {
	client *redis.Client
	source catalog.CriteriaSource
	ttl    time.Duration
	logger *zap.Logger
}

var _ catalog.CriteriaSource = (*CriteriaCache)(nil)

// NewCriteriaCache creates a new criteria cache
func NewCriteriaCache(client *redis.Client, source catalog.CriteriaSource, logger *zap.Logger) *CriteriaCache {
	return &CriteriaCache{
		client: client,
		source: source,
		ttl:    time.Hour,
		logger: logger,
	}
}

// Key helpers
func (c *CriteriaCache) areasKey() string {
	return "catalog:areas"
}

func (c *CriteriaCache) criteriaKey(areaID string) string {
	return fmt.Sprintf("catalog:area:%s:criteria", areaID)
}

func (c *CriteriaCache) indicatorsKey(criteriaID string) string {
	return fmt.Sprintf("catalog:criteria:%s:indicators", criteriaID)
}

func (c *CriteriaCache) GetAreas(ctx context.Context) ([]model.Area, error) {
	var areas []model.Area
	err := c.readThrough(ctx, c.areasKey(), &areas, func() (interface{}, error) {
		return c.source.GetAreas(ctx)
	})
	return areas, err
}

func (c *CriteriaCache) GetCriteriaByAreaID(ctx context.Context, areaID string) ([]model.Criterion, error) {
	var criteria []model.Criterion
	err := c.readThrough(ctx, c.criteriaKey(areaID), &criteria, func() (interface{}, error) {
		return c.source.GetCriteriaByAreaID(ctx, areaID)
	})
	return criteria, err
}

func (c *CriteriaCache) GetIndicatorsByCriteriaID(ctx context.Context, criteriaID string) ([]model.Indicator, error) {
	var indicators []model.Indicator
	err := c.readThrough(ctx, c.indicatorsKey(criteriaID), &indicators, func() (interface{}, error) {
		return c.source.GetIndicatorsByCriteriaID(ctx, criteriaID)
	})
	return indicators, err
}

// Invalidate drops every cached catalog key
func (c *CriteriaCache) Invalidate(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, "catalog:*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (c *CriteriaCache) readThrough(ctx context.Context, key string, dst interface{}, load func() (interface{}, error)) error {
	data, err := c.client.Get(ctx, key).Result()
	if err == nil {
		if err := json.Unmarshal([]byte(data), dst); err == nil {
			return nil
		}
	} else if err != redis.Nil {
		c.logger.Warn("criteria cache read failed", zap.String("key", key), zap.Error(err))
	}

	value, err := load()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("criteria cache write failed", zap.String("key", key), zap.Error(err))
	}
	return json.Unmarshal(payload, dst)
}
