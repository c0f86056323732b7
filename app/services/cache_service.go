package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/psgc-resolver/app/models"
)

// CacheService service quản lý cache in-memory
type CacheService struct {
	freshness
	cache map[string]*models.CacheEntry
	mu    sync.RWMutex

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCacheService tạo mới CacheService
func NewCacheService(opts CacheOptions) *CacheService {
	return &CacheService{
		freshness: newFreshness(opts),
		cache:     make(map[string]*models.CacheEntry),
	}
}

// Get lấy entry từ cache
func (cs *CacheService) Get(ctx context.Context, key string) (*models.CacheEntry, bool, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, exists := cs.cache[key]
	if !exists {
		cs.misses.Add(1)
		return nil, false, nil
	}
	cs.hits.Add(1)
	return entry.Clone(), true, nil
}

// Set lưu payload vào cache
func (cs *CacheService) Set(ctx context.Context, key string, payload []byte) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache[key] = models.NewCacheEntry(key, append([]byte(nil), payload...), cs.now())
	return nil
}

// Delete xóa item khỏi cache
func (cs *CacheService) Delete(ctx context.Context, key string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
	return nil
}

// Clear xóa toàn bộ cache
func (cs *CacheService) Clear(ctx context.Context) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache = make(map[string]*models.CacheEntry)
	return nil
}

// Size lấy kích thước cache
func (cs *CacheService) Size() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return len(cs.cache)
}

// GetStats lấy thống kê cache
func (cs *CacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	cs.mu.RLock()
	total := len(cs.cache)
	cs.mu.RUnlock()

	hits, misses := cs.hits.Load(), cs.misses.Load()
	return &CacheStats{
		Driver:     "memory",
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: int64(total),
		TTLSeconds: int(cs.ttl.Seconds()),
	}, nil
}

// CleanupExpired xóa các item đã hết hạn, trả về số item bị xóa
func (cs *CacheService) CleanupExpired() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	removed := 0
	for key, entry := range cs.cache {
		if !cs.IsFresh(entry) {
			delete(cs.cache, key)
			removed++
		}
	}
	return removed
}

// StartCleanupWorker khởi động worker dọn dẹp cache cho tới khi ctx bị hủy.
// Không cần cho tính đúng đắn, chỉ giới hạn bộ nhớ.
func (cs *CacheService) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cs.CleanupExpired()
			}
		}
	}()
}

// Close đóng kết nối (không cần thiết cho in-memory cache)
func (cs *CacheService) Close() error {
	return nil
}
