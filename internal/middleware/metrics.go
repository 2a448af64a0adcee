package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/college-admin-api/internal/service"
)

// Metrics records per-route request counters and latency. The scrape
// endpoint itself is excluded to keep the series clean.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
