package security

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// ValidationRateLimit caps check-in scans per client over a sliding window.
// A gate scanner should never come close to the limit; a replayed code dump
// will. Nil redis disables the limit rather than the endpoint.
func (r *RateLimiter) ValidationRateLimit(max int64, window time.Duration) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if r.redis == nil {
			return e.Next()
		}

		key := fmt.Sprintf("ratelimit:validate:%s", r.clientKey(e))
		ctx := e.Request.Context()

		count, err := r.redis.Incr(ctx, key).Result()
		if err == nil {
			if count == 1 {
				r.redis.Expire(ctx, key, window)
			}
			if count > max {
				return apis.NewApiError(http.StatusTooManyRequests, "Too many requests. Please try again later.", nil)
			}
		}

		return e.Next()
	}
}

// AntiBot rejects obvious scraper user agents on public endpoints.
func (r *RateLimiter) AntiBot() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		userAgent := e.Request.Header.Get("User-Agent")
		if r.isSuspiciousUserAgent(userAgent) {
			return apis.NewForbiddenError("Access denied", nil)
		}
		return e.Next()
	}
}

func (r *RateLimiter) clientKey(e *core.RequestEvent) string {
	if e.Auth != nil {
		return fmt.Sprintf("user:%s", e.Auth.Id)
	}
	return e.RealIP()
}

func (r *RateLimiter) isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}
