package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"listings/handlers"
	"listings/metrics"
	"listings/middleware"
	feed "listings/websocket"
)

// Dependencies are the collaborators SetupRoutes wires into handlers
type Dependencies struct {
	Properties    handlers.PropertyService
	Auth          handlers.Authenticator
	Redis         redis.UniversalClient
	JWTSecret     []byte
	TokenTTL      time.Duration
	EnableMetrics bool
	StaticRoot    string
	// Feed enables the /ws/properties change stream when set
	Feed *feed.Hub
}

// SetupRoutes registers the listing pages, the admin API and /metrics
func SetupRoutes(app *fiber.App, deps Dependencies) {
	if deps.EnableMetrics {
		app.Use(metrics.PrometheusMiddleware())
		app.Get("/metrics", PrometheusHandler())
	}

	rateLimits := middleware.NewRateLimitConfig(deps.Redis)

	// Only cache clear/refresh requests count against the cache limiter
	cacheActions := func(c *fiber.Ctx) error {
		if c.Query("clear_cache") == "true" || c.Query("refresh_cache") == "true" {
			return rateLimits.CacheControlLimiter(c)
		}
		return c.Next()
	}

	propertiesHandler := handlers.NewPropertiesHandler(deps.Properties)
	cacheHandler := handlers.NewCacheHandler(deps.Properties)
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.JWTSecret, deps.TokenTTL)

	if deps.StaticRoot != "" {
		app.Static("/static", deps.StaticRoot, fiber.Static{
			Compress: true,
			MaxAge:   3600,
		})
	}

	if deps.Feed != nil {
		app.Use("/ws", feed.UpgradeRequired)
		app.Get("/ws/properties", feed.Handler(deps.Feed))
	}

	// Listing pages
	app.Get("/", cacheActions, propertiesHandler.List)
	app.Get("/uncached/", propertiesHandler.ListUncached)
	app.Post("/create-sample/", rateLimits.CreateSampleLimiter, propertiesHandler.CreateSample)
	app.Get("/properties/:id", propertiesHandler.Detail)
	app.Get("/cache-metrics/", cacheActions, cacheHandler.Metrics)
	app.Get("/api/cache-metrics/", cacheHandler.MetricsAPI)

	api := app.Group("/api/v1")
	api.Get("/properties", cacheActions, propertiesHandler.List)
	api.Get("/properties/:id", propertiesHandler.Detail)
	api.Post("/auth/login", rateLimits.LoginLimiter, authHandler.Login)

	// Admin writes
	requireAdmin := middleware.AdminJWTMiddleware(deps.JWTSecret)
	api.Post("/properties", requireAdmin, rateLimits.AdminWriteLimiter, propertiesHandler.Create)
	api.Put("/properties/:id", requireAdmin, rateLimits.AdminWriteLimiter, propertiesHandler.Update)
	api.Delete("/properties/:id", requireAdmin, rateLimits.AdminWriteLimiter, propertiesHandler.Delete)
}
