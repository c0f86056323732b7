package services

import (
	"context"
	"time"

	"github.com/psgc-resolver/app/models"
)

// CacheStats thống kê cache
type CacheStats struct {
	Driver     string  `json:"driver"`
	HitRate    float64 `json:"hit_rate"`
	TotalHits  int64   `json:"total_hits"`
	TotalMiss  int64   `json:"total_miss"`
	TotalItems int64   `json:"total_items"`
	TTLSeconds int     `json:"ttl_seconds"`
}

// ICacheService interface cache response PSGC theo URL.
// Get trả về entry kể cả khi đã cũ, caller tự kiểm tra bằng IsFresh.
type ICacheService interface {
	// Get lấy entry theo key
	Get(ctx context.Context, key string) (*models.CacheEntry, bool, error)

	// Set lưu payload với timestamp hiện tại
	Set(ctx context.Context, key string, payload []byte) error

	// IsFresh kiểm tra entry còn trong cửa sổ freshness
	IsFresh(entry *models.CacheEntry) bool

	// Delete xóa key khỏi cache
	Delete(ctx context.Context, key string) error

	// Clear xóa tất cả cache
	Clear(ctx context.Context) error

	// GetStats lấy thống kê cache
	GetStats(ctx context.Context) (*CacheStats, error)

	// Close đóng kết nối (nếu cần)
	Close() error
}

// Clock nguồn thời gian, inject được trong test
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock clock thật
var SystemClock Clock = systemClock{}

// DefaultCacheTTL cửa sổ freshness mặc định
const DefaultCacheTTL = 5 * time.Minute

// CacheOptions cấu hình chung cho mọi backend
type CacheOptions struct {
	TTL   time.Duration
	Clock Clock
}

func (o CacheOptions) withDefaults() CacheOptions {
	if o.TTL == 0 {
		o.TTL = DefaultCacheTTL
	}
	if o.Clock == nil {
		o.Clock = SystemClock
	}
	return o
}

// freshness logic kiểm tra TTL dùng chung
type freshness struct {
	ttl   time.Duration
	clock Clock
}

func newFreshness(opts CacheOptions) freshness {
	opts = opts.withDefaults()
	return freshness{ttl: opts.TTL, clock: opts.Clock}
}

// IsFresh entry còn hạn nếu tuổi nhỏ hơn TTL; TTL âm tắt cache
func (f freshness) IsFresh(entry *models.CacheEntry) bool {
	if entry == nil || f.ttl <= 0 {
		return false
	}
	return entry.Age(f.clock.Now()) < f.ttl
}

func (f freshness) now() time.Time { return f.clock.Now() }

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
