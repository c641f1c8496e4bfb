package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateLimit enforces a fixed-window budget per user (per client IP before
// authentication) for one API surface. The window counter lives in redis so
// every instance shares it. On redis failure requests pass through; limiting
// is protection, not correctness.
func RateLimit(rdb *redis.Client, logger zerolog.Logger, surface string, perHour int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if perHour <= 0 {
			c.Next()
			return
		}

		subject := c.ClientIP()
		if claims, exists := c.Get("access_claims"); exists {
			if ac, ok := claims.(interface{ GetSubject() (string, error) }); ok {
				if sub, err := ac.GetSubject(); err == nil && sub != "" {
					subject = sub
				}
			}
		}

		window := time.Now().Unix() / 3600
		key := fmt.Sprintf("ratelimit:%s:%s:%d", surface, subject, window)

		count, err := rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			logger.Warn().Err(err).Str("surface", surface).Msg("rate limit check failed, allowing request")
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(c.Request.Context(), key, time.Hour)
		}

		if count > int64(perHour) {
			retryAfter := 3600 - int(time.Now().Unix()%3600)
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
