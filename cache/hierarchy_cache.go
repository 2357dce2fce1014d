package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"LabelDesk/config"
	"LabelDesk/logger"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
)

const (
	hierarchyPrefix = "labeldesk:hierarchy"
	generationKey   = hierarchyPrefix + ":gen"
)

// RedisDescendantCache stores descendant label sets in Redis. Keys embed a
// generation counter; Invalidate bumps the counter so every older entry is
// ignored and later expires.
type RedisDescendantCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDescendantCache 创建基于Redis的子厂牌缓存
func NewRedisDescendantCache(client *redis.Client, ttl time.Duration) *RedisDescendantCache {
	return &RedisDescendantCache{client: client, ttl: ttl}
}

func (c *RedisDescendantCache) generation(ctx context.Context) (string, error) {
	gen, err := c.client.Get(ctx, generationKey).Result()
	if err == redis.Nil {
		return "0", nil
	}
	return gen, err
}

func descendantKey(gen, labelID string) string {
	return fmt.Sprintf("%s:%s:%s", hierarchyPrefix, gen, labelID)
}

// Get returns the cached descendant ids of labelID, along with the generation
// it read. The generation is returned on a miss too; pass it back to Set so a
// set computed before an Invalidate lands under the old generation.
func (c *RedisDescendantCache) Get(ctx context.Context, labelID string) ([]string, string, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		logger.Warn("读取层级缓存版本失败", logger.ErrorField(err))
		return nil, "", false
	}
	raw, err := c.client.Get(ctx, descendantKey(gen, labelID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("读取层级缓存失败", logger.String("labelId", labelID), logger.ErrorField(err))
		}
		return nil, gen, false
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, gen, false
	}
	return ids, gen, true
}

// Set caches the descendant ids of labelID under generation gen.
func (c *RedisDescendantCache) Set(ctx context.Context, gen, labelID string, ids []string) {
	if gen == "" {
		return
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, descendantKey(gen, labelID), raw, c.ttl).Err(); err != nil {
		logger.Warn("写入层级缓存失败", logger.String("labelId", labelID), logger.ErrorField(err))
	}
}

// Invalidate drops every cached set.
func (c *RedisDescendantCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("failed to bump hierarchy cache generation: %w", err)
	}
	return nil
}

// MemoryDescendantCache keeps descendant sets in process, keyed by generation
// like the Redis cache.
type MemoryDescendantCache struct {
	mu  sync.Mutex
	gen uint64
	c   *gocache.Cache
}

func NewMemoryDescendantCache(ttl time.Duration) *MemoryDescendantCache {
	return &MemoryDescendantCache{c: gocache.New(ttl, 2*ttl)}
}

func (m *MemoryDescendantCache) Get(_ context.Context, labelID string) ([]string, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gen := strconv.FormatUint(m.gen, 10)
	v, ok := m.c.Get(gen + ":" + labelID)
	if !ok {
		return nil, gen, false
	}
	ids := v.([]string)
	return append([]string(nil), ids...), gen, true
}

// Set is dropped when gen is no longer current.
func (m *MemoryDescendantCache) Set(_ context.Context, gen, labelID string, ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != strconv.FormatUint(m.gen, 10) {
		return
	}
	m.c.SetDefault(gen+":"+labelID, append([]string(nil), ids...))
}

func (m *MemoryDescendantCache) Invalidate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.c.Flush()
	return nil
}

// DescendantCache is implemented by both caches.
type DescendantCache interface {
	Get(ctx context.Context, labelID string) (ids []string, gen string, ok bool)
	Set(ctx context.Context, gen, labelID string, ids []string)
	Invalidate(ctx context.Context) error
}

// New builds the cache selected by CACHE_BACKEND. "none" returns nil and a nil
// closer; callers treat a nil cache as disabled.
func New(cfg *config.Config) (DescendantCache, func() error, error) {
	ttl := time.Duration(cfg.CacheTTLSecs) * time.Second
	switch cfg.CacheBackend {
	case "redis":
		client, err := ConnectRedis(cfg)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisDescendantCache(client, ttl), client.Close, nil
	case "memory", "":
		return NewMemoryDescendantCache(ttl), nil, nil
	case "none":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported CACHE_BACKEND %q", cfg.CacheBackend)
	}
}
