package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/psgc-resolver/app/models"
	"go.uber.org/zap"
)

// HybridCacheService cache service kết hợp Redis (L1) + MongoDB (L2)
type HybridCacheService struct {
	redisCache *RedisCacheService // L1 cache - nhanh
	mongoCache *MongoCacheService // L2 cache - persistent
	logger     *zap.Logger
}

// NewHybridCacheService tạo mới hybrid cache service
func NewHybridCacheService(redisCache *RedisCacheService, mongoCache *MongoCacheService, logger *zap.Logger) *HybridCacheService {
	return &HybridCacheService{
		redisCache: redisCache,
		mongoCache: mongoCache,
		logger:     logger,
	}
}

// Get lấy entry từ cache (Redis trước, MongoDB sau)
func (hcs *HybridCacheService) Get(ctx context.Context, key string) (*models.CacheEntry, bool, error) {
	entry, found, err := hcs.redisCache.Get(ctx, key)
	if err != nil {
		hcs.logger.Warn("Lỗi Redis cache, fallback MongoDB", zap.Error(err))
	} else if found {
		return entry, true, nil
	}

	entry, found, err = hcs.mongoCache.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	// Chỉ đồng bộ lên Redis khi entry còn fresh, tránh làm mới timestamp của dữ liệu cũ
	if hcs.mongoCache.IsFresh(entry) {
		payload := append([]byte(nil), entry.Payload...)
		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := hcs.redisCache.Set(bgCtx, key, payload); err != nil {
				hcs.logger.Warn("Lỗi sync MongoDB->Redis", zap.Error(err), zap.String("key", key))
			}
		}()
	}

	hcs.logger.Debug("L2 cache hit (MongoDB)", zap.String("key", key))
	return entry, true, nil
}

// Set lưu payload vào cả Redis và MongoDB
func (hcs *HybridCacheService) Set(ctx context.Context, key string, payload []byte) error {
	return hcs.both(
		func() error { return hcs.redisCache.Set(ctx, key, payload) },
		func() error { return hcs.mongoCache.Set(ctx, key, payload) },
	)
}

// IsFresh dùng cửa sổ freshness của L2
func (hcs *HybridCacheService) IsFresh(entry *models.CacheEntry) bool {
	return hcs.mongoCache.IsFresh(entry)
}

// Delete xóa key khỏi cả hai tầng
func (hcs *HybridCacheService) Delete(ctx context.Context, key string) error {
	return hcs.both(
		func() error { return hcs.redisCache.Delete(ctx, key) },
		func() error { return hcs.mongoCache.Delete(ctx, key) },
	)
}

// Clear xóa toàn bộ cache (cả Redis và MongoDB)
func (hcs *HybridCacheService) Clear(ctx context.Context) error {
	if err := hcs.both(
		func() error { return hcs.redisCache.Clear(ctx) },
		func() error { return hcs.mongoCache.Clear(ctx) },
	); err != nil {
		return err
	}
	hcs.logger.Info("Cleared hybrid cache (Redis + MongoDB)")
	return nil
}

// GetStats lấy thống kê cache (kết hợp từ cả 2)
func (hcs *HybridCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	redisStats, redisErr := hcs.redisCache.GetStats(ctx)
	mongoStats, mongoErr := hcs.mongoCache.GetStats(ctx)

	switch {
	case redisErr != nil && mongoErr != nil:
		return nil, fmt.Errorf("cả Redis và MongoDB đều lỗi: %w", errors.Join(redisErr, mongoErr))
	case redisErr != nil:
		return mongoStats, nil
	case mongoErr != nil:
		return redisStats, nil
	}

	hits := redisStats.TotalHits + mongoStats.TotalHits
	// Miss ở L1 thường là hit ở L2, chỉ miss ở L2 mới tính là miss thật
	misses := mongoStats.TotalMiss
	return &CacheStats{
		Driver:     "hybrid",
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: mongoStats.TotalItems,
		TTLSeconds: mongoStats.TTLSeconds,
	}, nil
}

// Close đóng kết nối cả 2 cache
func (hcs *HybridCacheService) Close() error {
	return hcs.both(hcs.redisCache.Close, hcs.mongoCache.Close)
}

// WarmUpFromMongoDB làm nóng L1 in-process của MongoDB cache
func (hcs *HybridCacheService) WarmUpFromMongoDB(ctx context.Context, limit int) error {
	return hcs.mongoCache.WarmUp(ctx, limit)
}

// both chạy song song hai thao tác và gộp lỗi
func (hcs *HybridCacheService) both(l1, l2 func() error) error {
	errCh := make(chan error, 2)
	go func() { errCh <- l1() }()
	go func() { errCh <- l2() }()

	var errs []error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			hcs.logger.Warn("Lỗi cache tier", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
