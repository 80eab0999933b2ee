package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/metrics"
)

// unmatchedRoute labels requests that hit no registered route, so probing
// arbitrary paths cannot grow the label set.
const unmatchedRoute = "unmatched"

// Metrics records request latency labelled by route template rather than raw path.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.APILatency.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
