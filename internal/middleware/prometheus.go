package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"linguachat-backend/pkg/metrics"
)

// Prometheus records request count, duration and in-flight gauge per route
func Prometheus(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.IncrementHTTPRequestsInFlight()

		c.Next()

		m.DecrementHTTPRequestsInFlight()

		// FullPath gives the route template so cardinality stays bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
