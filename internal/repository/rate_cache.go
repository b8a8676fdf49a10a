package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/redis/go-redis/v9"

	"github.com/sjperalta/pratiche-api/internal/models"
	"github.com/sjperalta/pratiche-api/pkg/logger"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent
var ErrCacheMiss = errors.New("cache miss")

// Cache is a string key/value store with expiry
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisCache stores values in redis
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a cache on an existing redis client
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// CachedRateRepository serves the rate table from a cache, loading a whole
// rate type from the next repository on a miss. Cache failures fall through
// to the database.
type CachedRateRepository struct {
	next  RateRepository
	cache Cache
	ttl   time.Duration
}

// NewCachedRateRepository wraps next with a cache
func NewCachedRateRepository(next RateRepository, cache Cache, ttl time.Duration) *CachedRateRepository {
	return &CachedRateRepository{next: next, cache: cache, ttl: ttl}
}

func rateCacheKey(rateType string) string {
	return "pratiche:rates:" + rateType
}

func (c *CachedRateRepository) FindCandidates(ctx context.Context, rateType string, ref civil.Date) ([]models.InterestRate, error) {
	rates, err := c.List(ctx, rateType)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.InterestRate, 0, len(rates))
	for _, rate := range rates {
		if !civil.DateOf(rate.ValidFrom).After(ref) {
			candidates = append(candidates, rate)
		}
	}
	return candidates, nil
}

func (c *CachedRateRepository) List(ctx context.Context, rateType string) ([]models.InterestRate, error) {
	if rateType == "" {
		return c.next.List(ctx, rateType)
	}

	key := rateCacheKey(rateType)
	raw, err := c.cache.Get(ctx, key)
	if err == nil {
		var rates []models.InterestRate
		if err := json.Unmarshal([]byte(raw), &rates); err == nil {
			return rates, nil
		}
		logger.Warn("Discarding undecodable rate cache entry", "key", key)
	} else if !errors.Is(err, ErrCacheMiss) {
		logger.Warn("Rate cache unavailable", "key", key, "error", err)
	}

	rates, err := c.next.List(ctx, rateType)
	if err != nil {
		return nil, err
	}
	c.store(ctx, rateType, rates)
	return rates, nil
}

// Refresh reloads every rate type into the cache
func (c *CachedRateRepository) Refresh(ctx context.Context) error {
	for _, rateType := range []string{models.RateTypeLegal, models.RateTypeMoratory} {
		rates, err := c.next.List(ctx, rateType)
		if err != nil {
			return fmt.Errorf("failed to load %s rates: %w", rateType, err)
		}
		if err := c.set(ctx, rateType, rates); err != nil {
			return fmt.Errorf("failed to cache %s rates: %w", rateType, err)
		}
	}
	return nil
}

func (c *CachedRateRepository) store(ctx context.Context, rateType string, rates []models.InterestRate) {
	if err := c.set(ctx, rateType, rates); err != nil {
		logger.Warn("Failed to cache rates", "type", rateType, "error", err)
	}
}

func (c *CachedRateRepository) set(ctx context.Context, rateType string, rates []models.InterestRate) error {
	payload, err := json.Marshal(rates)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, rateCacheKey(rateType), string(payload), c.ttl)
}
