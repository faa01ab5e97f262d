package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cognis/internal/pkg/ratelimit"
	"cognis/internal/pkg/response"
)

// RateLimit throttles by client IP under scope.
func RateLimit(limiter ratelimit.Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			rateLimitedTotal.WithLabelValues(scope).Inc()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter().Seconds()))))
			response.Abort(c, http.StatusTooManyRequests, response.CodeRateLimited, "Too many requests, try again later")
			return
		}

		c.Next()
	}
}
