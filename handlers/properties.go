package handlers

import (
	"github.com/gofiber/fiber/v2"

	"listings/cache"
	"listings/models"
	"listings/utils"
)

// Defaults applied to fields omitted from a create-sample request
const (
	DefaultSampleTitle       = "Sample Property"
	DefaultSampleDescription = "This is a sample property description"
	DefaultSamplePrice       = 250000.00
	DefaultSampleLocation    = "Sample Location"
)

// PropertiesHandler serves listing pages and the admin listing API
type PropertiesHandler struct {
	svc PropertyService
}

// NewPropertiesHandler creates a new properties handler
func NewPropertiesHandler(svc PropertyService) *PropertiesHandler {
	return &PropertiesHandler{svc: svc}
}

type sampleRequest struct {
	Title       string   `json:"title" form:"title"`
	Description string   `json:"description" form:"description"`
	Price       *float64 `json:"price" form:"price"`
	Location    string   `json:"location" form:"location"`
}

func (r sampleRequest) input() models.PropertyInput {
	in := models.PropertyInput{
		Title:       r.Title,
		Description: r.Description,
		Price:       DefaultSamplePrice,
		Location:    r.Location,
	}
	if in.Title == "" {
		in.Title = DefaultSampleTitle
	}
	if in.Description == "" {
		in.Description = DefaultSampleDescription
	}
	if r.Price != nil {
		in.Price = *r.Price
	}
	if in.Location == "" {
		in.Location = DefaultSampleLocation
	}
	return in
}

// List returns all listings through the cache. ?clear_cache=true drops the cache
// and redirects back to the list.
func (h *PropertiesHandler) List(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if c.Query("clear_cache") == "true" {
		if err := h.svc.ClearCache(ctx); err != nil {
			utils.LogRequestError(c, "Failed to clear properties cache", err)
		}
		return c.Redirect("/", fiber.StatusFound)
	}

	properties, err := h.svc.List(ctx)
	if err != nil {
		return handleServiceError(c, "Failed to list properties", err)
	}

	cached, count := h.svc.CacheStatus(ctx)
	return c.JSON(fiber.Map{
		"properties":       properties,
		"total_properties": len(properties),
		"is_cached":        cached,
		"cache_key":        cache.AllPropertiesKey,
		"cached_count":     count,
	})
}

// ListUncached always reads listings from the database
func (h *PropertiesHandler) ListUncached(c *fiber.Ctx) error {
	properties, err := h.svc.ListUncached(c.UserContext())
	if err != nil {
		return handleServiceError(c, "Failed to list properties", err)
	}

	c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate, max-age=0")
	return c.JSON(fiber.Map{
		"properties":       properties,
		"total_properties": len(properties),
		"is_cached":        false,
		"cache_key":        "none",
	})
}

// CreateSample creates a listing from form or JSON fields, filling in sample
// defaults, then redirects to the list. JSON clients get the created listing.
func (h *PropertiesHandler) CreateSample(c *fiber.Ctx) error {
	var req sampleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	p, err := h.svc.Create(c.UserContext(), req.input())
	if err != nil {
		return handleServiceError(c, "Failed to create sample property", err)
	}

	if wantsJSON(c) {
		return c.Status(fiber.StatusCreated).JSON(p)
	}
	return c.Redirect("/", fiber.StatusFound)
}

// Detail returns one listing through the detail cache
func (h *PropertiesHandler) Detail(c *fiber.Ctx) error {
	id, err := propertyID(c)
	if err != nil {
		return err
	}

	p, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return handleServiceError(c, "Failed to load property", err)
	}
	return c.JSON(p)
}

// Create stores a listing from a JSON body (admin API)
func (h *PropertiesHandler) Create(c *fiber.Ctx) error {
	var in models.PropertyInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	p, err := h.svc.Create(c.UserContext(), in)
	if err != nil {
		return handleServiceError(c, "Failed to create property", err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// Update overwrites a listing (admin API)
func (h *PropertiesHandler) Update(c *fiber.Ctx) error {
	id, err := propertyID(c)
	if err != nil {
		return err
	}

	var in models.PropertyInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	p, err := h.svc.Update(c.UserContext(), id, in)
	if err != nil {
		return handleServiceError(c, "Failed to update property", err)
	}
	return c.JSON(p)
}

// Delete removes a listing (admin API)
func (h *PropertiesHandler) Delete(c *fiber.Ctx) error {
	id, err := propertyID(c)
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.UserContext(), id); err != nil {
		return handleServiceError(c, "Failed to delete property", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
