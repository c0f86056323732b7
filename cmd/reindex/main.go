package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/psgc-resolver/app/models"
	"github.com/psgc-resolver/app/services"
	"github.com/psgc-resolver/internal/bootstrap"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// reindex cấu hình index Meilisearch rồi fetch toàn bộ cây PSGC, mỗi danh sách
// fetch được đẩy vào index qua PSGCService
func main() {
	depthFlag := flag.String("depth", "barangay", "cấp sâu nhất cần index (region|province|city|barangay)")
	concurrency := flag.Int("concurrency", 4, "số nhánh region fetch song song")
	clearCache := flag.Bool("clear-cache", true, "xóa cache trước để mọi danh sách đều được fetch và index")
	flag.Parse()

	bootstrap.LoadConfig()
	viper.Set("meilisearch.enabled", true)

	logger := bootstrap.InitLogger()
	defer logger.Sync()

	depth, err := models.ParseLevel(*depthFlag)
	if err != nil {
		logger.Fatal("Invalid depth", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := bootstrap.NewStack(ctx, logger)
	if err != nil {
		logger.Fatal("Failed to initialize resolver", zap.Error(err))
	}
	defer stack.Close()

	if stack.Index == nil {
		logger.Fatal("Meilisearch không khả dụng")
	}
	if err := stack.Index.ConfigureIndex(ctx); err != nil {
		logger.Fatal("Lỗi cấu hình index", zap.Error(err))
	}

	admin := services.NewAdminService(stack.PSGC, nil, logger)
	if *clearCache {
		if err := admin.ClearCache(ctx); err != nil {
			logger.Fatal("Lỗi clear cache", zap.Error(err))
		}
	}

	result, err := admin.WarmUp(ctx, depth, *concurrency)
	if err != nil {
		logger.Fatal("Reindex thất bại", zap.Error(err))
	}

	stack.PSGC.WaitIndexing()

	logger.Info("Reindex hoàn thành",
		zap.Any("records", result.Records),
		zap.Strings("failures", result.Failures),
		zap.Int64("took_ms", result.ProcessingTimeMs))
}
