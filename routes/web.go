package routes

import (
	"github.com/gin-gonic/gin"
)

// SetupWebRoutes thiết lập web routes
func SetupWebRoutes(router *gin.Engine) {
	web := router.Group("/")
	{
		// Home page
		web.GET("/", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"message": "PSGC Address Resolver",
				"version": "1.0.0",
				"docs":    "/docs",
			})
		})

		// API documentation
		web.GET("/docs", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"api": "PSGC Address Resolver API v1",
				"endpoints": map[string]string{
					"regions":     "GET /v1/psgc/regions",
					"provinces":   "GET /v1/psgc/regions/:region/provinces",
					"cities":      "GET /v1/psgc/provinces/:province/cities-municipalities",
					"barangays":   "GET /v1/psgc/cities-municipalities/:city/barangays",
					"search":      "GET /v1/psgc/search?q=&level=&parent=",
					"resolve":     "POST /v1/addresses/resolve",
					"form_create": "POST /v1/address-forms",
					"form_get":    "GET /v1/address-forms/:sessionID",
					"form_open":   "POST /v1/address-forms/:sessionID/open",
					"form_select": "POST /v1/address-forms/:sessionID/select",
					"form_clear":  "POST /v1/address-forms/:sessionID/clear",
					"health":      "GET /v1/health",
					"metrics":     "GET /metrics",
				},
			})
		})
	}
}
