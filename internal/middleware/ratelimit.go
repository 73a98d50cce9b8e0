package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RateLimits are the per-client request budgets; zero disables a window
type RateLimits struct {
	PerSecond int
	PerDay    int
}

// RateLimiter counts requests per client IP in Redis
type RateLimiter struct {
	rdb    *redis.Client
	limits RateLimits
	now    func() time.Time
}

// NewRateLimiter creates a limiter backed by rdb
func NewRateLimiter(rdb *redis.Client, limits RateLimits) *RateLimiter {
	return &RateLimiter{rdb: rdb, limits: limits, now: time.Now}
}

// Handler returns the fiber middleware. Redis failures let the request through.
func (l *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.Context()
		now := l.now()
		client := c.IP()

		if l.limits.PerSecond > 0 {
			key := fmt.Sprintf("rl:client:%s:second:%d", client, now.Unix())
			count, err := l.incr(ctx, key, 2*time.Second)
			if err == nil && count > int64(l.limits.PerSecond) {
				c.Set("X-RateLimit-Limit-Second", strconv.Itoa(l.limits.PerSecond))
				c.Set("X-RateLimit-Remaining-Second", "0")
				c.Set("X-RateLimit-Reset-Second", strconv.FormatInt(now.Unix()+1, 10))
				c.Set("Retry-After", "1")

				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error":       "rate_limit_exceeded",
					"message":     "Too many requests per second",
					"limit_type":  "per_second",
					"limit":       l.limits.PerSecond,
					"retry_after": 1,
				})
			}
		}

		if l.limits.PerDay > 0 {
			key := fmt.Sprintf("rl:client:%s:day:%s", client, now.Format("2006-01-02"))
			count, err := l.incr(ctx, key, 25*time.Hour)
			if err == nil {
				if count > int64(l.limits.PerDay) {
					tomorrow := now.AddDate(0, 0, 1)
					midnight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, tomorrow.Location())
					retryAfter := int64(midnight.Sub(now).Seconds())

					c.Set("X-RateLimit-Limit-Day", strconv.Itoa(l.limits.PerDay))
					c.Set("X-RateLimit-Remaining-Day", "0")
					c.Set("X-RateLimit-Reset-Day", strconv.FormatInt(midnight.Unix(), 10))
					c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

					return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
						"error":       "daily_quota_exceeded",
						"message":     "Daily quota exceeded",
						"limit_type":  "per_day",
						"limit":       l.limits.PerDay,
						"used":        count,
						"retry_after": retryAfter,
						"reset_at":    midnight.Format(time.RFC3339),
					})
				}
				c.Set("X-RateLimit-Remaining-Day", strconv.FormatInt(int64(l.limits.PerDay)-count, 10))
			}
		}

		c.Set("X-RateLimit-Limit-Second", strconv.Itoa(l.limits.PerSecond))
		c.Set("X-RateLimit-Limit-Day", strconv.Itoa(l.limits.PerDay))

		return c.Next()
	}
}

// incr counts one request and refreshes the window TTL in the same transaction,
// so a counter key is never left without an expiry
func (l *RateLimiter) incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var count *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("rate limit counter unavailable")
		return 0, err
	}
	return count.Val(), nil
}
