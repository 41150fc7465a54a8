package services

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/logger"
)

// CachedSearch is a completed search result kept hot for repeat queries.
type CachedSearch struct {
	Query        string      `json:"query"`
	ProductIDs   []uuid.UUID `json:"product_ids"`
	ResultsCount int         `json:"results_count"`
}

type SearchCache interface {
	Get(ctx context.Context, query string, platforms []string) (*CachedSearch, error)
	Set(ctx context.Context, query string, platforms []string, result *CachedSearch) error
}

// CacheKey hashes the query plus the sorted platform set, so the same search
// against the same sources hits the same entry regardless of platform order.
func CacheKey(query string, platforms []string) string {
	sorted := append([]string(nil), platforms...)
	sort.Strings(sorted)
	raw := fmt.Sprintf("search_%s_%s", strings.ToLower(strings.TrimSpace(query)), strings.Join(sorted, "_"))
	return fmt.Sprintf("zillaprice:search:%x", md5.Sum([]byte(raw)))
}

type redisSearchCache struct {
	log *logger.Logger
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSearchCache(log *logger.Logger) (SearchCache, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisSearchCache{
		log: log.With("service", "RedisSearchCache"),
		rdb: rdb,
		ttl: time.Hour,
	}, nil
}

func (c *redisSearchCache) Get(ctx context.Context, query string, platforms []string) (*CachedSearch, error) {
	raw, err := c.rdb.Get(ctx, CacheKey(query, platforms)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out CachedSearch
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *redisSearchCache) Set(ctx context.Context, query string, platforms []string, result *CachedSearch) error {
	if result == nil {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, CacheKey(query, platforms), raw, c.ttl).Err()
}

// noopSearchCache stands in when redis is not configured; every lookup misses.
type noopSearchCache struct{}

func NewNoopSearchCache() SearchCache {
	return noopSearchCache{}
}

func (noopSearchCache) Get(ctx context.Context, query string, platforms []string) (*CachedSearch, error) {
	return nil, nil
}

func (noopSearchCache) Set(ctx context.Context, query string, platforms []string, result *CachedSearch) error {
	return nil
}
