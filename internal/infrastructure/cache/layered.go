package cache

import (
	"context"
	"errors"

	"irecStatApp/internal/domain/model"
	"irecStatApp/internal/domain/repository"
)

// LayeredCache reads through a local cache to a shared one. Hits from the
// shared layer are not copied into the local layer, so no entry outlives
// its TTL.
type LayeredCache struct {
	local  repository.AnalyticsCache
	shared repository.AnalyticsCache
}

var _ repository.AnalyticsCache = (*LayeredCache)(nil)

// NewLayeredCache combines local and shared.
func NewLayeredCache(local, shared repository.AnalyticsCache) *LayeredCache {
	return &LayeredCache{local: local, shared: shared}
}

func (c *LayeredCache) Get(ctx context.Context, kind model.DatasetKind, key string) (model.Dataset, bool, error) {
	v, ok, err := c.local.Get(ctx, kind, key)
	if err != nil || ok {
		return v, ok, err
	}
	return c.shared.Get(ctx, kind, key)
}

// Set writes both layers. A failure of the shared layer is returned after
// the local write has succeeded.
func (c *LayeredCache) Set(ctx context.Context, kind model.DatasetKind, key string, value model.Dataset) error {
	if err := c.local.Set(ctx, kind, key, value); err != nil {
		return err
	}
	return c.shared.Set(ctx, kind, key, value)
}

func (c *LayeredCache) Clear(ctx context.Context, kinds ...model.DatasetKind) error {
	return errors.Join(c.local.Clear(ctx, kinds...), c.shared.Clear(ctx, kinds...))
}

// Stats reports the shared layer, falling back to the local one.
func (c *LayeredCache) Stats(ctx context.Context) (model.CacheStats, error) {
	stats, err := c.shared.Stats(ctx)
	if err == nil {
		stats.Backend = "layered"
		return stats, nil
	}
	local, lerr := c.local.Stats(ctx)
	if lerr != nil {
		return local, errors.Join(err, lerr)
	}
	local.Backend = "layered"
	return local, nil
}
