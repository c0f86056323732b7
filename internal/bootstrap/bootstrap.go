// Package bootstrap khởi tạo config, logger và các service dùng chung cho các binary
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/psgc-resolver/app/config"
	"github.com/psgc-resolver/app/services"
	"github.com/psgc-resolver/internal/matcher"
	"github.com/psgc-resolver/internal/search"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// LoadConfig load app.yaml bằng viper và resolver.yaml vào config.C
func LoadConfig() {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	// Set defaults
	viper.SetDefault("app.port", "8080")
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.resolver_config", "config/resolver.yaml")
	viper.SetDefault("cache.driver", "memory")
	viper.SetDefault("redis.url", "redis://localhost:6379")
	viper.SetDefault("mongo.url", "mongodb://localhost:27017/psgc_resolver")
	viper.SetDefault("mongo.database", "psgc_resolver")
	viper.SetDefault("meilisearch.enabled", false)
	viper.SetDefault("meilisearch.url", "http://localhost:7700")
	viper.SetDefault("meilisearch.index", "psgc")
	viper.SetDefault("ratelimit.requests_per_second", 50)
	viper.SetDefault("ratelimit.burst", 100)

	// APP_PORT, CACHE_DRIVER, REDIS_URL, ...
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Cannot read config file: %v", err)
	}

	if err := config.Load(viper.GetString("app.resolver_config")); err != nil {
		log.Printf("Warning: Cannot read resolver config, using defaults: %v", err)
		config.ApplyEnv(&config.C)
	}
}

// InitLogger khởi tạo structured logger
func InitLogger() *zap.Logger {
	var cfg zap.Config
	if viper.GetString("app.env") == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		log.Fatal("Cannot initialize logger:", err)
	}
	return logger
}

// Stack các service dùng chung
type Stack struct {
	Cache   services.ICacheService
	PSGC    *services.PSGCService
	Index   *search.PSGCIndex // nil nếu search tắt hoặc không kết nối được
	Matcher matcher.Config
	cleanup func()
}

// Close đóng kết nối cache
func (s *Stack) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// NewStack tạo cache, PSGCService và search index theo config
func NewStack(ctx context.Context, logger *zap.Logger) (*Stack, error) {
	cfg := config.C

	strictness, err := matcher.ParseStrictness(cfg.Matcher.Strictness)
	if err != nil {
		return nil, err
	}

	cache, cleanup, err := services.NewCacheFromConfig(ctx, services.CacheConfig{
		Driver:          viper.GetString("cache.driver"),
		TTL:             cfg.Cache.TTL.Std(),
		L1Size:          cfg.Cache.L1Size,
		RedisURL:        viper.GetString("redis.url"),
		MongoURI:        viper.GetString("mongo.url"),
		MongoDatabase:   viper.GetString("mongo.database"),
		CleanupInterval: cfg.Cache.CleanupInterval.Std(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("lỗi khởi tạo cache: %w", err)
	}

	psgc := services.NewPSGCService(services.PSGCConfig{
		BaseURL:   cfg.PSGC.BaseURL,
		Timeout:   cfg.PSGC.Timeout.Std(),
		RateLimit: cfg.PSGC.RateLimit,
		Burst:     cfg.PSGC.Burst,
		UserAgent: cfg.PSGC.UserAgent,
	}, cache, logger)

	stack := &Stack{
		Cache: cache,
		PSGC:  psgc,
		Matcher: matcher.Config{
			Strictness:      strictness,
			MinSubstringLen: cfg.Matcher.MinSubstringLen,
			FuzzyThreshold:  cfg.Matcher.FuzzyThreshold,
			JWWeight:        cfg.Matcher.JWWeight,
			LevWeight:       cfg.Matcher.LevWeight,
		},
		cleanup: cleanup,
	}

	if viper.GetBool("meilisearch.enabled") {
		index, err := search.NewPSGCIndex(search.Config{
			Host:      viper.GetString("meilisearch.url"),
			APIKey:    viper.GetString("meilisearch.master_key"),
			IndexName: viper.GetString("meilisearch.index"),
		}, logger)
		if err != nil {
			logger.Warn("Meilisearch không khả dụng, tắt search", zap.Error(err))
		} else {
			stack.Index = index
			psgc.SetIndexer(index)
		}
	}

	logger.Info("Resolver stack ready",
		zap.String("cache_driver", viper.GetString("cache.driver")),
		zap.String("psgc_base_url", cfg.PSGC.BaseURL),
		zap.String("strictness", string(strictness)),
		zap.Bool("search", stack.Index != nil))
	return stack, nil
}
