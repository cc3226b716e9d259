package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	routeStatusRead  = "licenses:read"
	routeStatusBatch = "licenses:batch"
	routeCommand     = "licenses:command"
	routeUsage       = "usage:evaluate"
)

// limit applies the fixed-window limiter per client IP and route.
func (s *Server) limit(routeID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.enforceRateLimit(c, routeID) {
			c.Next()
		}
	}
}

func (s *Server) enforceRateLimit(c *gin.Context, routeID string) bool {
	if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
		return true
	}
	key := fmt.Sprintf("ip:%s:route:%s", c.ClientIP(), routeID)
	decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.rateLimitRequests, s.rateLimitWindow)
	if err != nil {
		if s.rateLimitFailClosed {
			writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable")
			return false
		}
		return true
	}
	writeRateLimitHeaders(c, decision)
	if !decision.Allowed {
		writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
		return false
	}
	return true
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if decision.ResetAt.IsZero() {
		return
	}
	c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
	if !decision.Allowed {
		retryAfter := int64(decision.RetryAfter(time.Now()).Seconds())
		c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
	}
}
