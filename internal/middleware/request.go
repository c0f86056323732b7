package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psgc-resolver/helpers/utils"
	"go.uber.org/zap"
)

// RequestIDHeader header mang request ID
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID gắn request ID cho mỗi request, giữ nguyên nếu client đã gửi
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = utils.GenerateUUID()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestIDFrom lấy request ID của context
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Logger log mỗi request bằng zap
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", RequestIDFrom(c)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("HTTP request", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("HTTP request", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	}
}
