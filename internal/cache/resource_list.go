package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"campusfinder/internal/domain"
	"campusfinder/internal/pkg/logger"
	"campusfinder/internal/pkg/observability"
)

const (
	listGenerationKey = "resources:list:gen"
	listKeyPrefix     = "resources:list:v"
)

// ResourceList caches the public resource listing. Get hands out the
// generation it read; Set only writes under that generation, so a listing
// built before an Invalidate can never be served after it.
type ResourceList interface {
	Get(ctx context.Context) (items []domain.Resource, generation int64, ok bool)
	Set(ctx context.Context, generation int64, items []domain.Resource)
	Invalidate(ctx context.Context)
}

// Noop is used when no Redis is configured.
type Noop struct{}

func (Noop) Get(context.Context) ([]domain.Resource, int64, bool) { return nil, 0, false }
func (Noop) Set(context.Context, int64, []domain.Resource)         {}
func (Noop) Invalidate(context.Context)                            {}

type RedisResourceList struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func NewRedisResourceList(client *redis.Client, ttl time.Duration, metrics *observability.Metrics) *RedisResourceList {
	return &RedisResourceList{client: client, ttl: ttl, metrics: metrics}
}

func (c *RedisResourceList) Get(ctx context.Context) ([]domain.Resource, int64, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("resource cache: read generation")
		return nil, -1, false
	}

	raw, err := c.client.Get(ctx, listKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.RecordCache(ctx, c.metrics, "resources:list", false)
		return nil, gen, false
	}
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("resource cache: get")
		return nil, -1, false
	}

	var items []domain.Resource
	if err := json.Unmarshal(raw, &items); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("resource cache: decode")
		return nil, gen, false
	}
	observability.RecordCache(ctx, c.metrics, "resources:list", true)
	return items, gen, true
}

// Set stores items for generation. A negative generation means Get could not
// talk to Redis and nothing is written.
func (c *RedisResourceList) Set(ctx context.Context, generation int64, items []domain.Resource) {
	if generation < 0 {
		return
	}
	raw, err := json.Marshal(items)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("resource cache: encode")
		return
	}
	if err := c.client.Set(ctx, listKey(generation), raw, c.ttl).Err(); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("resource cache: set")
	}
}

// Invalidate bumps the generation; old entries expire on their own.
func (c *RedisResourceList) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, listGenerationKey).Err(); err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("resource cache: invalidate")
	}
}

func (c *RedisResourceList) generation(ctx context.Context) (int64, error) {
	val, err := c.client.Get(ctx, listGenerationKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

func listKey(gen int64) string {
	return listKeyPrefix + strconv.FormatInt(gen, 10)
}
