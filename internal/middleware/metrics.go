package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/palace-events/events-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics records method, route template, status and latency for each request. Calendar streams
// are tracked by the stream gauge instead, since their duration is the connection lifetime.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if isEventStream(c) {
			return
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, routeLabel(c), c.Writer.Status(), time.Since(start))
	}
}

func routeLabel(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return unmatchedRoute
}

func isEventStream(c *gin.Context) bool {
	return strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream")
}
