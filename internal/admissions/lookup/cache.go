package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/models"

	"github.com/redis/go-redis/v9"
)

// YearCache holds academic-year records between lookups. Implementations
// report failures as misses.
type YearCache interface {
	Get(ctx context.Context, pool models.Pool) (*models.AcademicYear, bool)
	Set(ctx context.Context, year *models.AcademicYear)
}

const yearKeyPrefix = "admissions:academic-year:"

// RedisYearCache stores academic years as JSON under
// admissions:academic-year:<pool>.
type RedisYearCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisYearCache(client redis.Cmdable, ttl time.Duration, log logger.Logger) *RedisYearCache {
	return &RedisYearCache{client: client, ttl: ttl, logger: log}
}

func yearKey(pool models.Pool) string {
	return yearKeyPrefix + string(pool)
}

func (c *RedisYearCache) Get(ctx context.Context, pool models.Pool) (*models.AcademicYear, bool) {
	raw, err := c.client.Get(ctx, yearKey(pool)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Academic year cache read failed", map[string]interface{}{"pool": pool, "error": err})
		}
		return nil, false
	}
	var year models.AcademicYear
	if err := json.Unmarshal(raw, &year); err != nil {
		c.logger.Warn("Discarding malformed cached academic year", map[string]interface{}{"pool": pool, "error": err})
		return nil, false
	}
	return &year, true
}

func (c *RedisYearCache) Set(ctx context.Context, year *models.AcademicYear) {
	if year == nil || c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(year)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, yearKey(year.Pool), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Academic year cache write failed", map[string]interface{}{"pool": year.Pool, "error": err})
	}
}

// Invalidate drops a cached year, e.g. after staff open admissions.
func (c *RedisYearCache) Invalidate(ctx context.Context, pool models.Pool) error {
	return c.client.Del(ctx, yearKey(pool)).Err()
}

type noCache struct{}

func (noCache) Get(context.Context, models.Pool) (*models.AcademicYear, bool) { return nil, false }
func (noCache) Set(context.Context, *models.AcademicYear) {}
