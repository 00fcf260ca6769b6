package fundamentals

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/pkg/fileutil"
	"github.com/wonny/diamond/pkg/redis"
)

// Cache persists fundamentals records between runs
type Cache interface {
	Get(ctx context.Context, symbols []string) (map[string]*contracts.Fundamentals, error)
	Put(ctx context.Context, records map[string]*contracts.Fundamentals) error
}

// FileCache keeps every record in one JSON object keyed by symbol
type FileCache struct {
	path string
	mu   sync.Mutex
}

// NewFileCache creates a file-backed cache
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

func (c *FileCache) load() (map[string]*contracts.Fundamentals, error) {
	all := make(map[string]*contracts.Fundamentals)
	if err := fileutil.ReadJSON(c.path, &all); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]*contracts.Fundamentals), nil
		}
		return make(map[string]*contracts.Fundamentals), err
	}
	return all, nil
}

// Get returns the cached records of symbols. A corrupt file reads as
// empty and the decode error is returned alongside.
func (c *FileCache) Get(ctx context.Context, symbols []string) (map[string]*contracts.Fundamentals, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	all, err := c.load()
	out := make(map[string]*contracts.Fundamentals, len(symbols))
	for _, s := range symbols {
		if f, ok := all[s]; ok && f != nil {
			out[s] = f
		}
	}
	return out, err
}

// Put merges records into the file and rewrites it atomically
func (c *FileCache) Put(ctx context.Context, records map[string]*contracts.Fundamentals) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 손상된 파일은 덮어씀
	all, _ := c.load()
	for s, f := range records {
		all[s] = f
	}
	if err := fileutil.WriteJSONAtomic(c.path, all); err != nil {
		return fmt.Errorf("save fundamentals cache: %w", err)
	}
	return nil
}

// RedisCache stores one key per symbol
type RedisCache struct {
	cache *redis.Cache
}

// NewRedisCache creates a redis-backed cache
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{cache: redis.NewCache(client, "diamond")}
}

// Get looks up each symbol; misses are omitted
func (c *RedisCache) Get(ctx context.Context, symbols []string) (map[string]*contracts.Fundamentals, error) {
	out := make(map[string]*contracts.Fundamentals, len(symbols))
	for _, s := range symbols {
		var f contracts.Fundamentals
		found, err := c.cache.Get(ctx, redis.FundamentalsKey(s), &f)
		if err != nil {
			return out, err
		}
		if found {
			out[s] = &f
		}
	}
	return out, nil
}

// Put writes every record with the fundamentals TTL
func (c *RedisCache) Put(ctx context.Context, records map[string]*contracts.Fundamentals) error {
	for s, f := range records {
		if err := c.cache.Set(ctx, redis.FundamentalsKey(s), f, redis.TTLFundamentals); err != nil {
			return fmt.Errorf("cache fundamentals %s: %w", s, err)
		}
	}
	return nil
}
