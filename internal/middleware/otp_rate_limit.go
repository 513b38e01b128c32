package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/scolarfaso/backend/internal/config"
)

// OTPRateLimit caps how many OTP requests a single IP can issue per day.
// This sits in front of the per-phone limit inside the OTP service: the
// service limit protects a phone number, this one protects the SMS budget
// against one client cycling through many numbers.
func OTPRateLimit(redisClient *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()

		if c.Request.Method != "POST" {
			c.Next()
			return
		}

		// Rate limit key: otp_limit:{ip}:{date}, resets at midnight
		today := time.Now().Format("2006-01-02")
		key := fmt.Sprintf("otp_limit:%s:%s", c.ClientIP(), today)

		count, err := redisClient.Get(ctx, key).Int()
		if err == redis.Nil {
			now := time.Now()
			midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
			if err := redisClient.Set(ctx, key, 1, midnight.Sub(now)).Err(); err != nil {
				// Redis error - don't block the request
				c.Next()
				return
			}
		} else if err != nil {
			c.Next()
			return
		} else if count >= cfg.OTPRequestsPerIPPerDay {
			ttl, _ := redisClient.TTL(ctx, key).Result()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":             "otp_request_limit_exceeded",
				"message":           "Too many code requests today. Please try again tomorrow.",
				"retry_after_hours": int(ttl.Hours()),
			})
			c.Abort()
			return
		} else {
			redisClient.Incr(ctx, key)
		}

		c.Next()
	}
}
