package server

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

// Querier is the database surface the readiness probe needs
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// ReadyState tracks initialization state for health checks
type ReadyState struct {
	db          Querier
	rdb         redis.UniversalClient
	schemaReady atomic.Bool
	redisReady  atomic.Bool
}

// NewReadyState creates a new ReadyState instance
func NewReadyState(db Querier, rdb redis.UniversalClient) *ReadyState {
	return &ReadyState{db: db, rdb: rdb}
}

// MarkSchemaReady marks the database schema as usable
func (r *ReadyState) MarkSchemaReady() {
	r.schemaReady.Store(true)
}

// MarkRedisReady marks the Redis connection as established
func (r *ReadyState) MarkRedisReady() {
	r.redisReady.Store(true)
}

// IsFullyReady returns true if all initialization steps are complete
func (r *ReadyState) IsFullyReady() bool {
	return r.schemaReady.Load() && r.redisReady.Load()
}

// IsSchemaReady returns true if the schema has been confirmed
func (r *ReadyState) IsSchemaReady() bool {
	return r.schemaReady.Load()
}

// IsRedisReady returns true if Redis initialization is complete
func (r *ReadyState) IsRedisReady() bool {
	return r.redisReady.Load()
}

var (
	errDatabaseCheck = errors.New("database check failed")
	errRedisCheck    = errors.New("redis check failed")
)

// Check queries the properties table and pings Redis
func (r *ReadyState) Check(ctx context.Context) error {
	if r.db == nil {
		return errDatabaseCheck
	}
	var count int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM properties").Scan(&count); err != nil {
		return errDatabaseCheck
	}

	if r.rdb == nil {
		return errRedisCheck
	}
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return errRedisCheck
	}
	return nil
}

// RegisterHealthRoutes adds the live and ready probes to router
func RegisterHealthRoutes(router fiber.Router, startTime time.Time, readyState *ReadyState) {
	// Live endpoint - just checks if server is running
	router.Get("/health/live", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "live",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(startTime).String(),
		})
	})

	router.Get("/health/ready", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		health := fiber.Map{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(startTime).String(),
		}

		if readyState == nil || !readyState.IsFullyReady() {
			health["status"] = "initializing"
			if readyState != nil {
				health["schema_ready"] = readyState.IsSchemaReady()
				health["redis_ready"] = readyState.IsRedisReady()
			}
			return c.Status(fiber.StatusServiceUnavailable).JSON(health)
		}

		if err := readyState.Check(ctx); err != nil {
			health["status"] = "unhealthy"
			health["error"] = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(health)
		}

		health["status"] = "ready"
		return c.JSON(health)
	})
}
