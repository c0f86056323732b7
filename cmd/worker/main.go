package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/psgc-resolver/app/config"
	"github.com/psgc-resolver/app/models"
	"github.com/psgc-resolver/app/services"
	"github.com/psgc-resolver/internal/bootstrap"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Worker giữ cache PSGC luôn fresh bằng cách warm up theo lịch
func main() {
	bootstrap.LoadConfig()

	logger := bootstrap.InitLogger()
	defer logger.Sync()

	logger.Info("Starting PSGC cache worker")

	stack, err := bootstrap.NewStack(context.Background(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize resolver", zap.Error(err))
	}
	defer stack.Close()

	depth, err := models.ParseLevel(config.C.WarmUp.Depth)
	if err != nil {
		logger.Fatal("Invalid warmup depth", zap.Error(err))
	}
	admin := services.NewAdminService(stack.PSGC, nil, logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	run := func() {
		jobCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if _, err := admin.WarmUp(jobCtx, depth, config.C.WarmUp.Concurrency); err != nil {
			logger.Error("Warm up thất bại", zap.Error(err))
		}
	}

	scheduler := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := scheduler.AddFunc(config.C.WarmUp.Schedule, run); err != nil {
		logger.Fatal("Invalid warmup schedule", zap.String("schedule", config.C.WarmUp.Schedule), zap.Error(err))
	}

	// Chạy ngay một lần khi khởi động
	go run()
	scheduler.Start()

	logger.Info("Worker scheduled",
		zap.String("schedule", config.C.WarmUp.Schedule),
		zap.Stringer("depth", depth))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	stop()

	select {
	case <-scheduler.Stop().Done():
	case <-time.After(30 * time.Second):
		logger.Warn("Warm up job chưa kết thúc, thoát")
	}

	logger.Info("Worker exited")
}
