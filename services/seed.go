package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"listings/cache"
	"listings/models"
	"listings/store"
	"listings/utils"
)

// SeedService inserts fixture listings
type SeedService struct {
	repo  PropertyRepository
	cache *cache.PropertyCache
	out   io.Writer
}

// NewSeedService creates a SeedService. c may be nil when no cache is attached.
func NewSeedService(repo PropertyRepository, c *cache.PropertyCache, out io.Writer) *SeedService {
	return &SeedService{repo: repo, cache: c, out: outOrStdout(out)}
}

// SeedSamples bulk-inserts the sample listings when the table is empty and
// returns the number of rows inserted.
func (s *SeedService) SeedSamples(ctx context.Context) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		_, _ = warning.Fprintln(s.out, "Sample properties already exist.")
		return 0, nil
	}

	inserted, err := s.repo.BulkCreate(ctx, models.SampleProperties)
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx)
	_, _ = success.Fprintf(s.out, "Created %d sample properties.\n", inserted)
	return inserted, nil
}

// SeedCatalog get-or-creates every catalogue listing by title
func (s *SeedService) SeedCatalog(ctx context.Context) (created, existing int, err error) {
	for _, in := range models.CatalogProperties {
		_, err := s.repo.FindByTitle(ctx, in.Title)
		switch {
		case err == nil:
			existing++
			_, _ = warning.Fprintf(s.out, "Property already exists: %s\n", in.Title)
			continue
		case !errors.Is(err, store.ErrNotFound):
			return created, existing, err
		}

		if _, err := s.repo.Create(ctx, in); err != nil {
			return created, existing, fmt.Errorf("failed to create %q: %w", in.Title, err)
		}
		created++
		_, _ = success.Fprintf(s.out, "Created property: %s\n", in.Title)
	}

	if created > 0 {
		s.invalidate(ctx)
	}
	return created, existing, nil
}

func (s *SeedService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(ctx); err != nil {
		utils.LogWarn("Failed to clear properties cache after seeding", "error", err)
	}
}
