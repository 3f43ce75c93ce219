package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"listings/cache"
	"listings/metrics"
	"listings/models"
	"listings/utils"
)

// ErrInvalidProperty wraps input validation failures
var ErrInvalidProperty = errors.New("invalid property")

var validate = validator.New()

// PropertyService serves listings through the Redis cache and keeps the cache
// consistent with writes.
type PropertyService struct {
	repo     PropertyRepository
	cache    *cache.PropertyCache
	notifier ChangeNotifier
}

// ChangeNotifier is told about listing writes once they are persisted
type ChangeNotifier interface {
	PropertyChanged(ctx context.Context, action string, id int64, p *models.Property)
}

// NewPropertyService creates a PropertyService. c may be nil to disable caching.
func NewPropertyService(repo PropertyRepository, c *cache.PropertyCache) *PropertyService {
	return &PropertyService{repo: repo, cache: c}
}

// SetNotifier attaches n to receive created, updated and deleted events
func (s *PropertyService) SetNotifier(n ChangeNotifier) {
	s.notifier = n
}

// List returns all listings newest first, from cache when present
func (s *PropertyService) List(ctx context.Context) ([]models.Property, error) {
	if s.cache != nil {
		properties, ok, err := s.cache.GetAll(ctx)
		if err != nil {
			utils.LogWarn("Properties cache read failed, using database", "error", err)
		} else if ok {
			utils.LogDebug("Properties served from cache", "count", len(properties))
			return properties, nil
		}
	}

	properties, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetAll(ctx, properties); err != nil {
			utils.LogWarn("Failed to cache properties", "error", err)
		} else {
			utils.LogDebug("Properties cached", "count", len(properties))
		}
	}
	return properties, nil
}

// ListUncached always reads from the database
func (s *PropertyService) ListUncached(ctx context.Context) ([]models.Property, error) {
	return s.repo.List(ctx)
}

// Get returns one listing, from the detail cache when present
func (s *PropertyService) Get(ctx context.Context, id int64) (*models.Property, error) {
	if s.cache != nil {
		p, ok, err := s.cache.GetProperty(ctx, id)
		if err != nil {
			utils.LogWarn("Property cache read failed, using database", "id", id, "error", err)
		} else if ok {
			return p, nil
		}
	}

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetProperty(ctx, p); err != nil {
			utils.LogWarn("Failed to cache property", "id", id, "error", err)
		}
	}
	return p, nil
}

// Create validates and stores a new listing
func (s *PropertyService) Create(ctx context.Context, in models.PropertyInput) (*models.Property, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	p, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	metrics.IncrementPropertyOperation("create")
	s.invalidate(ctx, p.ID, "created", p.Title)
	s.notify(ctx, "created", p.ID, p)
	return p, nil
}

// Update validates and overwrites a listing, logging title and price changes
func (s *PropertyService) Update(ctx context.Context, id int64, in models.PropertyInput) (*models.Property, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	old, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}

	if old.Title != p.Title {
		utils.LogInfo("Property title changed", "id", id, "from", old.Title, "to", p.Title)
	}
	if old.Price != p.Price {
		utils.LogInfo("Property price changed", "id", id, "from", old.Price, "to", p.Price)
	}

	metrics.IncrementPropertyOperation("update")
	s.invalidate(ctx, id, "updated", p.Title)
	s.notify(ctx, "updated", id, p)
	return p, nil
}

// Delete removes a listing
func (s *PropertyService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	metrics.IncrementPropertyOperation("delete")
	s.invalidate(ctx, id, "deleted", "")
	s.notify(ctx, "deleted", id, nil)
	return nil
}

// ClearCache drops the cached collection
func (s *PropertyService) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Clear(ctx)
}

// RefreshCache drops the cached collection and reloads it from the database
func (s *PropertyService) RefreshCache(ctx context.Context) ([]models.Property, error) {
	if err := s.ClearCache(ctx); err != nil {
		return nil, err
	}
	return s.List(ctx)
}

// CacheStatus reports whether the collection is cached and how many listings it holds.
// count is nil when nothing is cached.
func (s *PropertyService) CacheStatus(ctx context.Context) (cached bool, count *int) {
	if s.cache == nil {
		return false, nil
	}
	n, ok, err := s.cache.CachedCount(ctx)
	if err != nil {
		utils.LogWarn("Failed to read cached properties count", "error", err)
		return false, nil
	}
	if !ok {
		return false, nil
	}
	return true, &n
}

// CacheMetrics gathers Redis statistics and grades them
func (s *PropertyService) CacheMetrics(ctx context.Context) (cache.CacheMetrics, cache.Analysis) {
	if s.cache == nil {
		m := cache.CacheMetrics{UsedMemoryHuman: "0B", RedisVersion: "unknown", Error: "cache disabled"}
		return m, cache.Analyze(m)
	}
	m := s.cache.Metrics(ctx)
	return m, cache.Analyze(m)
}

func (s *PropertyService) invalidate(ctx context.Context, id int64, action, title string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		utils.LogError("Error invalidating cache", err, "id", id, "action", action)
		return
	}
	utils.LogInfo("Cache invalidated", "id", id, "action", action, "title", title)
}

func (s *PropertyService) notify(ctx context.Context, action string, id int64, p *models.Property) {
	if s.notifier != nil {
		s.notifier.PropertyChanged(ctx, action, id, p)
	}
}

func validateInput(in models.PropertyInput) error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProperty, err)
	}
	return nil
}
