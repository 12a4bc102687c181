package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/watchfeed/internal/logger"
	"go.uber.org/zap"
)

// GinLoggerMiddleware logs HTTP requests with structured fields in place of gin.Logger
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", statusCode),
			zap.Int("response_size", c.Writer.Size()),
			zap.Duration("latency", time.Since(startTime)),
		}
		if requestID := c.GetString(requestIDKey); requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}

		// Determine log level based on status code
		switch {
		case statusCode >= 500:
			logger.Log.Error("HTTP request", fields...)
		case statusCode >= 400:
			logger.Log.Warn("HTTP request", fields...)
		default:
			logger.Log.Debug("HTTP request", fields...)
		}
	}
}
