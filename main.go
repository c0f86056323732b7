package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psgc-resolver/app/config"
	"github.com/psgc-resolver/app/controllers"
	"github.com/psgc-resolver/app/services"
	"github.com/psgc-resolver/internal/bootstrap"
	"github.com/psgc-resolver/internal/middleware"
	"github.com/psgc-resolver/routes"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	bootstrap.LoadConfig()

	// 2. Khởi tạo logger
	logger := bootstrap.InitLogger()
	defer logger.Sync()

	logger.Info("Starting PSGC Address Resolver")

	// 3. Cache, PSGC client, search index
	stack, err := bootstrap.NewStack(context.Background(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize resolver", zap.Error(err))
	}
	defer stack.Close()

	// 4. Khởi tạo services
	formService := services.NewFormSessionService(services.FormSessionConfig{
		MaxSessions:  config.C.Sessions.MaxSessions,
		SessionTTL:   config.C.Sessions.TTL.Std(),
		FetchTimeout: config.C.Sessions.FetchTimeout.Std(),
		Strictness:   stack.Matcher.Strictness,
		Matcher:      stack.Matcher,
	}, stack.PSGC, logger)
	defer formService.Purge()
	adminService := services.NewAdminService(stack.PSGC, formService, logger)

	// 5. Khởi tạo controllers
	var searcher controllers.PSGCSearcher
	if stack.Index != nil {
		searcher = stack.Index
	}
	ctrl := routes.Controllers{
		PSGC:    controllers.NewPSGCController(stack.PSGC, searcher, logger),
		Address: controllers.NewAddressController(formService, stack.Cache, config.RequestTimeout(), logger),
		Admin:   controllers.NewAdminController(adminService, logger),
	}

	// 6. Khởi tạo Gin router
	if viper.GetString("app.env") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	limiter := middleware.NewRateLimiter(
		viper.GetFloat64("ratelimit.requests_per_second"),
		viper.GetInt("ratelimit.burst"),
		10*time.Minute,
		logger)
	routes.SetupAllRoutes(router, ctrl, routes.Options{Logger: logger, RateLimiter: limiter})

	// 7. Khởi động server
	port := viper.GetString("app.port")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("PSGC Address Resolver starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
