package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"listings/cache"
	"listings/models"
	"listings/services"
	"listings/store"
	"listings/utils"
)

// PropertyService is the listings behaviour the HTTP layer depends on
type PropertyService interface {
	List(ctx context.Context) ([]models.Property, error)
	ListUncached(ctx context.Context) ([]models.Property, error)
	Get(ctx context.Context, id int64) (*models.Property, error)
	Create(ctx context.Context, in models.PropertyInput) (*models.Property, error)
	Update(ctx context.Context, id int64, in models.PropertyInput) (*models.Property, error)
	Delete(ctx context.Context, id int64) error
	ClearCache(ctx context.Context) error
	RefreshCache(ctx context.Context) ([]models.Property, error)
	CacheStatus(ctx context.Context) (cached bool, count *int)
	CacheMetrics(ctx context.Context) (cache.CacheMetrics, cache.Analysis)
}

// handleServiceError maps service errors onto HTTP responses
func handleServiceError(c *fiber.Ctx, msg string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Property not found"})
	case errors.Is(err, services.ErrInvalidProperty):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		utils.LogRequestError(c, msg, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}

func wantsJSON(c *fiber.Ctx) bool {
	return strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON) ||
		strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON)
}

func propertyID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid property id")
	}
	return int64(id), nil
}
