package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/psgc-resolver/app/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCacheService cache in-process có giới hạn số entry
type LRUCacheService struct {
	freshness
	cache *lru.Cache[string, *models.CacheEntry]
	size  int

	hits   atomic.Int64
	misses atomic.Int64
}

// NewLRUCacheService tạo mới LRUCacheService
func NewLRUCacheService(size int, opts CacheOptions) (*LRUCacheService, error) {
	cache, err := lru.New[string, *models.CacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("không thể tạo LRU cache: %w", err)
	}
	return &LRUCacheService{
		freshness: newFreshness(opts),
		cache:     cache,
		size:      size,
	}, nil
}

// Get lấy entry từ cache
func (lcs *LRUCacheService) Get(ctx context.Context, key string) (*models.CacheEntry, bool, error) {
	entry, ok := lcs.cache.Get(key)
	if !ok {
		lcs.misses.Add(1)
		return nil, false, nil
	}
	lcs.hits.Add(1)
	return entry.Clone(), true, nil
}

// Set lưu payload vào cache
func (lcs *LRUCacheService) Set(ctx context.Context, key string, payload []byte) error {
	lcs.cache.Add(key, models.NewCacheEntry(key, append([]byte(nil), payload...), lcs.now()))
	return nil
}

// Delete xóa key khỏi cache
func (lcs *LRUCacheService) Delete(ctx context.Context, key string) error {
	lcs.cache.Remove(key)
	return nil
}

// Clear xóa tất cả cache
func (lcs *LRUCacheService) Clear(ctx context.Context) error {
	lcs.cache.Purge()
	return nil
}

// GetStats lấy thống kê cache
func (lcs *LRUCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	hits, misses := lcs.hits.Load(), lcs.misses.Load()
	return &CacheStats{
		Driver:     "lru",
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: int64(lcs.cache.Len()),
		TTLSeconds: int(lcs.ttl.Seconds()),
	}, nil
}

// Close không cần cho LRU
func (lcs *LRUCacheService) Close() error {
	return nil
}
