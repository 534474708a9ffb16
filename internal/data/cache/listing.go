package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursemart-backend/internal/aggregation"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
)

const DefaultListingTTL = 10 * time.Minute

// ListingCache stores rendered listing pages. Failures never surface to
// callers: a broken cache behaves as a miss.
type ListingCache interface {
	Get(ctx context.Context, key string) (*aggregation.Page, bool)
	Set(ctx context.Context, key string, page *aggregation.Page)
	Invalidate(ctx context.Context, prefix string)
}

// Key joins prefix and parts into a cache key, e.g. courses:list:go:title:1:10.
func Key(prefix string, parts ...any) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteByte(':')
		fmt.Fprint(&b, p)
	}
	return b.String()
}

type redisListingCache struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisListingCache connects and pings. An empty address is an error so
// callers can fall back to Noop.
func NewRedisListingCache(cfg Config, baseLog *logger.Logger) (ListingCache, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisListingCache(rdb, cfg.TTL, baseLog), nil
}

func newRedisListingCache(rdb *goredis.Client, ttl time.Duration, baseLog *logger.Logger) *redisListingCache {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	return &redisListingCache{rdb: rdb, ttl: ttl, log: baseLog.With("cache", "RedisListingCache")}
}

func (c *redisListingCache) Get(ctx context.Context, key string) (*aggregation.Page, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("listing cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var page aggregation.Page
	if err := json.Unmarshal(raw, &page); err != nil {
		c.log.Warn("listing cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	if page.Items == nil {
		page.Items = []aggregation.Record{}
	}
	return &page, true
}

func (c *redisListingCache) Set(ctx context.Context, key string, page *aggregation.Page) {
	if page == nil {
		return
	}
	raw, err := json.Marshal(page)
	if err != nil {
		c.log.Warn("listing cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("listing cache set failed", "key", key, "error", err)
	}
}

// Invalidate deletes every key under prefix using SCAN.
func (c *redisListingCache) Invalidate(ctx context.Context, prefix string) {
	iter := c.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Warn("listing cache scan failed", "prefix", prefix, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("listing cache invalidate failed", "prefix", prefix, "error", err)
	}
}

func (c *redisListingCache) Close() error { return c.rdb.Close() }

type noopListingCache struct{}

// Noop never stores anything.
func Noop() ListingCache { return noopListingCache{} }

func (noopListingCache) Get(context.Context, string) (*aggregation.Page, bool) { return nil, false }
func (noopListingCache) Set(context.Context, string, *aggregation.Page)        {}
func (noopListingCache) Invalidate(context.Context, string)                   {}
