// Package middleware provides the admission gate and panic recovery for the
// HTTP surface.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"examprep/internal/observability"
	"examprep/internal/services"
)

// RateLimit gates requests per client IP. A denied request is answered with
// 429 before any downstream handler runs and consumes no quota slot.
func RateLimit(limiter *services.RateLimiter, logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.Request.Context(), c.ClientIP(), time.Now()) {
			logger.Warn(c.Request.Context(), "Request denied by admission gate", map[string]interface{}{
				"client_ip": c.ClientIP(),
				"path":      c.Request.URL.Path,
			})
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Please wait a minute before making more requests",
			})
			return
		}
		c.Next()
	}
}
