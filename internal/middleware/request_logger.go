package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys other middleware fill in for the access log
const (
	rateLimitRemainingKey = "rate_limit_remaining"
	circuitStateKey       = "circuit_state"
)

// RequestLogger writes one access log line per request, carrying the request
// id and whatever the rate limiter and circuit breaker decided about it.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("route", routeOf(c)),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if remaining, ok := c.Get(rateLimitRemainingKey); ok {
			fields = append(fields, zap.Any("rate_limit_remaining", remaining))
		}
		if state := c.GetString(circuitStateKey); state != "" {
			fields = append(fields, zap.String("circuit", state))
		}
		if c.Request.Context().Err() != nil {
			fields = append(fields, zap.Bool("client_gone", true))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			logger.Error("request failed", fields...)
		case status >= 400:
			logger.Warn("request rejected", fields...)
		default:
			logger.Info("request served", fields...)
		}
	}
}

// routeOf prefers the registered route pattern so ids in paths do not
// explode log cardinality
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}
