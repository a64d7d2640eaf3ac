package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/storage"
)

// CategoryService serves category lookups through a small in-process cache.
// Categories are read-only from this service, so TTL expiry is the only
// invalidation needed.
type CategoryService struct {
	store *storage.Store
	cache *cache.LRU[[]core.Category]
}

func NewCategoryService(store *storage.Store, cacheSize int, cacheTTL time.Duration) *CategoryService {
	return &CategoryService{
		store: store,
		cache: cache.NewLRU[[]core.Category](cacheSize, cacheTTL),
	}
}

// ListForUser returns the active categories visible to the user: global
// ones plus their own.
func (s *CategoryService) ListForUser(ctx context.Context, userID int64) ([]core.Category, error) {
	key := strconv.FormatInt(userID, 10)
	if categories, ok := s.cache.Get(key); ok {
		return categories, nil
	}

	categories, err := s.store.ListCategoriesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	s.cache.Set(key, categories)
	return categories, nil
}

// CleanExpired sweeps expired cache entries; the cache janitor calls this.
func (s *CategoryService) CleanExpired() int {
	return s.cache.CleanExpired()
}
