package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/psgc-resolver/app/controllers"
	"github.com/psgc-resolver/internal/metrics"
	"github.com/psgc-resolver/internal/middleware"
	"go.uber.org/zap"
)

// Controllers các controller được mount vào router
type Controllers struct {
	PSGC    *controllers.PSGCController
	Address *controllers.AddressController
	Admin   *controllers.AdminController
}

// Options middleware tùy chọn
type Options struct {
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter // nil thì không giới hạn
}

// SetupAPIRoutes thiết lập tất cả API routes
func SetupAPIRoutes(router *gin.Engine, ctrl Controllers, limiter *middleware.RateLimiter) {
	// API v1 group
	v1 := router.Group("/v1")
	if limiter != nil {
		v1.Use(limiter.Handler())
	}
	{
		// Danh sách PSGC
		psgc := v1.Group("/psgc")
		{
			psgc.GET("/regions", ctrl.PSGC.GetRegions)
			psgc.GET("/regions/:region/provinces", ctrl.PSGC.GetProvinces)
			psgc.GET("/provinces/:province/cities-municipalities", ctrl.PSGC.GetCitiesMunicipalities)
			psgc.GET("/cities-municipalities/:city/barangays", ctrl.PSGC.GetBarangays)
			psgc.GET("/search", ctrl.PSGC.Search)
		}

		// Resolve một lần
		v1.POST("/addresses/resolve", ctrl.Address.ResolveAddress)

		// Form session
		forms := v1.Group("/address-forms")
		{
			forms.POST("", ctrl.Address.CreateForm)
			forms.GET("/:sessionID", ctrl.Address.GetForm)
			forms.POST("/:sessionID/open", ctrl.Address.OpenLevel)
			forms.POST("/:sessionID/select", ctrl.Address.SelectOption)
			forms.POST("/:sessionID/clear", ctrl.Address.ClearLevel)
			forms.DELETE("/:sessionID", ctrl.Address.DeleteForm)
		}

		// Admin routes
		admin := v1.Group("/admin")
		{
			admin.POST("/cache/warmup", ctrl.Admin.WarmUpCache)
			admin.POST("/cache/invalidate", ctrl.Admin.InvalidateCache)
			admin.DELETE("/cache", ctrl.Admin.ClearCache)
			admin.GET("/stats", ctrl.Admin.GetStats)
			admin.GET("/export/:level", ctrl.Admin.ExportData)
		}

		// Health check route
		v1.GET("/health", ctrl.Address.HealthCheck)
	}
}

// SetupHealthRoutes thiết lập health check routes
func SetupHealthRoutes(router *gin.Engine, addressController *controllers.AddressController) {
	router.GET("/health", addressController.HealthCheck)
	router.GET("/ready", addressController.HealthCheck)
	router.GET("/live", addressController.HealthCheck)
}

// SetupMetricsRoutes thiết lập metrics routes (cho Prometheus)
func SetupMetricsRoutes(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// SetupAllRoutes thiết lập tất cả routes
func SetupAllRoutes(router *gin.Engine, ctrl Controllers, opts Options) {
	setupMiddleware(router, opts)

	SetupWebRoutes(router)
	SetupHealthRoutes(router, ctrl.Address)
	SetupAPIRoutes(router, ctrl, opts.RateLimiter)
	SetupMetricsRoutes(router)

	// 404 handler
	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"error":      "Route not found",
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"request_id": middleware.RequestIDFrom(c),
		})
	})
}

// setupMiddleware thiết lập middleware cho router
func setupMiddleware(router *gin.Engine, opts Options) {
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if opts.Logger != nil {
		router.Use(middleware.Logger(opts.Logger))
	}
	router.Use(metrics.GinMiddleware())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, middleware.RequestIDHeader)
	corsCfg.ExposeHeaders = []string{middleware.RequestIDHeader}
	router.Use(cors.New(corsCfg))
}
