package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irecStatApp/internal/domain/model"
	"irecStatApp/internal/infrastructure/cache"
)

func TestLayeredCache(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	local := cache.NewMemoryCacheWithClock(nil, clock.Now)
	shared, mr := newRedisRepo(t)
	layered := cache.NewLayeredCache(local, shared)

	value := &model.TokenizationMetrics{ProjectID: "p"}
	require.NoError(t, layered.Set(ctx, model.DatasetTokenization, "p", value))

	got, ok, err := layered.Get(ctx, model.DatasetTokenization, "p")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, value, got, "local layer should answer first")

	require.NoError(t, local.Clear(ctx))
	got, ok, err = layered.Get(ctx, model.DatasetTokenization, "p")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "p", got.(*model.TokenizationMetrics).ProjectID)

	stats, err := layered.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "layered", stats.Backend)
	assert.Equal(t, 1, stats.Entries[model.DatasetTokenization])

	mr.FastForward(16 * time.Minute)
	_, ok, err = layered.Get(ctx, model.DatasetTokenization, "p")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, layered.Set(ctx, model.DatasetSupply, "all", &model.SupplyOverview{}))
	require.NoError(t, layered.Clear(ctx, model.DatasetSupply))
	_, ok, _ = layered.Get(ctx, model.DatasetSupply, "all")
	assert.False(t, ok)
}
