package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// CacheConfig cấu hình chọn backend cache
type CacheConfig struct {
	Driver          string        // memory | lru | redis | mongo | hybrid
	TTL             time.Duration // cửa sổ freshness
	L1Size          int           // kích thước LRU (lru, mongo L1)
	RedisURL        string
	MongoURI        string
	MongoDatabase   string
	CleanupInterval time.Duration // chỉ dùng cho memory
	Clock           Clock
}

// NewCacheFromConfig tạo cache theo driver; hàm cleanup trả về đóng các kết nối đã mở
func NewCacheFromConfig(ctx context.Context, cfg CacheConfig, logger *zap.Logger) (ICacheService, func(), error) {
	opts := CacheOptions{TTL: cfg.TTL, Clock: cfg.Clock}
	if cfg.L1Size <= 0 {
		cfg.L1Size = 10000
	}

	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		cache := NewCacheService(opts)
		cleanupCtx, cancel := context.WithCancel(context.Background())
		if cfg.CleanupInterval > 0 {
			cache.StartCleanupWorker(cleanupCtx, cfg.CleanupInterval)
		}
		return cache, cancel, nil

	case "lru":
		cache, err := NewLRUCacheService(cfg.L1Size, opts)
		if err != nil {
			return nil, nil, err
		}
		return cache, func() {}, nil

	case "redis":
		cache, err := NewRedisCacheService(cfg.RedisURL, opts, logger)
		if err != nil {
			return nil, nil, err
		}
		return cache, func() { closeCache(cache, logger) }, nil

	case "mongo":
		client, db, err := connectMongo(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		cache, err := NewMongoCacheService(db, cfg.L1Size, opts, logger)
		if err != nil {
			disconnectMongo(client, logger)
			return nil, nil, err
		}
		warmUp(ctx, cache, cfg.L1Size/2, logger)
		return cache, func() { disconnectMongo(client, logger) }, nil

	case "hybrid":
		redisCache, err := NewRedisCacheService(cfg.RedisURL, opts, logger)
		if err != nil {
			return nil, nil, err
		}
		client, db, err := connectMongo(ctx, cfg, logger)
		if err != nil {
			closeCache(redisCache, logger)
			return nil, nil, err
		}
		mongoCache, err := NewMongoCacheService(db, cfg.L1Size, opts, logger)
		if err != nil {
			closeCache(redisCache, logger)
			disconnectMongo(client, logger)
			return nil, nil, err
		}
		warmUp(ctx, mongoCache, cfg.L1Size/2, logger)
		cache := NewHybridCacheService(redisCache, mongoCache, logger)
		return cache, func() {
			closeCache(cache, logger)
			disconnectMongo(client, logger)
		}, nil
	}

	return nil, nil, fmt.Errorf("cache driver không hỗ trợ: %q", cfg.Driver)
}

func connectMongo(ctx context.Context, cfg CacheConfig, logger *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	logger.Info("Connecting to MongoDB", zap.String("database", cfg.MongoDatabase))

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("lỗi kết nối MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		disconnectMongo(client, logger)
		return nil, nil, fmt.Errorf("lỗi ping MongoDB: %w", err)
	}

	name := cfg.MongoDatabase
	if name == "" {
		name = "psgc_resolver"
	}
	return client, client.Database(name), nil
}

func disconnectMongo(client *mongo.Client, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Error("Error disconnecting MongoDB", zap.Error(err))
	}
}

func closeCache(cache ICacheService, logger *zap.Logger) {
	if err := cache.Close(); err != nil {
		logger.Warn("Lỗi đóng cache", zap.Error(err))
	}
}

func warmUp(ctx context.Context, cache *MongoCacheService, limit int, logger *zap.Logger) {
	if err := cache.WarmUp(ctx, limit); err != nil {
		logger.Warn("Failed to warm up cache", zap.Error(err))
	}
}
