package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"venue-backend/metrics"
)

// Metrics records request counts and latencies. The route template is used
// as the path label so path parameters do not explode cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		metrics.RequestCounter.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.RequestDurationHistogram.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
