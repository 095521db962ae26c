package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/activity-log-api/internal/service"
)

// unmatchedRoute labels requests that hit no registered route, keeping raw
// paths out of the label set.
const unmatchedRoute = "unmatched"

// Metrics observes request count and latency per route template. Scrapes of
// scrapePath are not observed.
func Metrics(metricsSvc *service.MetricsService, scrapePath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || (scrapePath != "" && c.Request.URL.Path == scrapePath) {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
