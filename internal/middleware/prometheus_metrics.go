package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/watchfeed/internal/metrics"
)

// MetricsMiddleware collects HTTP metrics for Prometheus
func MetricsMiddleware() gin.HandlerFunc {
	m := metrics.Get()

	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		// Route template keeps label cardinality bounded; unmatched paths share one label
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		// Numeric status codes let queries like status=~"5.." match
		status := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(startTime).Seconds())
	}
}
