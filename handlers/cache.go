package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"listings/utils"
)

// CacheHandler exposes Redis cache statistics
type CacheHandler struct {
	svc PropertyService
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(svc PropertyService) *CacheHandler {
	return &CacheHandler{svc: svc}
}

func (h *CacheHandler) payload(c *fiber.Ctx) fiber.Map {
	ctx := c.UserContext()
	m, analysis := h.svc.CacheMetrics(ctx)
	cached, count := h.svc.CacheStatus(ctx)
	return fiber.Map{
		"metrics":                 m,
		"analysis":                analysis,
		"properties_cached":       cached,
		"cached_properties_count": count,
	}
}

// Metrics reports cache statistics with a performance analysis.
// ?clear_cache=true and ?refresh_cache=true act on the listings cache and redirect back.
func (h *CacheHandler) Metrics(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if c.Query("clear_cache") == "true" {
		if err := h.svc.ClearCache(ctx); err != nil {
			utils.LogRequestError(c, "Failed to clear properties cache", err)
		}
		return c.Redirect("/cache-metrics/", fiber.StatusFound)
	}

	if c.Query("refresh_cache") == "true" {
		if _, err := h.svc.RefreshCache(ctx); err != nil {
			utils.LogRequestError(c, "Failed to refresh properties cache", err)
		}
		return c.Redirect("/cache-metrics/", fiber.StatusFound)
	}

	return c.JSON(h.payload(c))
}

// MetricsAPI returns the same statistics stamped with the current time
func (h *CacheHandler) MetricsAPI(c *fiber.Ctx) error {
	body := h.payload(c)
	body["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	return c.JSON(body)
}
