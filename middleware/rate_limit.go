package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"

	"listings/utils"
)

// RateLimitConfig holds all rate limiter instances
type RateLimitConfig struct {
	LoginLimiter        fiber.Handler
	CreateSampleLimiter fiber.Handler
	AdminWriteLimiter   fiber.Handler
	CacheControlLimiter fiber.Handler
}

func newLimiter(storage fiber.Storage, max int, expiration time.Duration, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		Storage: storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": message,
			})
		},
	})
}

// NewRateLimitConfig creates all rate limiters on Redis storage so every
// server worker shares the same counters.
func NewRateLimitConfig(rdb redis.UniversalClient) *RateLimitConfig {
	storage := redisstorage.NewFromConnection(rdb)

	return &RateLimitConfig{
		// Strictest: brute force protection
		LoginLimiter: newLimiter(storage, 10, 5*time.Minute,
			"Too many login attempts. Please try again later."),
		CreateSampleLimiter: newLimiter(storage, 30, time.Minute,
			"Too many properties created. Please slow down."),
		AdminWriteLimiter: newLimiter(storage, 120, time.Minute,
			"Too many requests. Please try again later."),
		// Cache clear/refresh hit Redis and the database on every call
		CacheControlLimiter: newLimiter(storage, 20, time.Minute,
			"Too many cache operations. Please try again later."),
	}
}
