package app_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irecStatApp/config"
	"irecStatApp/internal/app"
	"irecStatApp/internal/app/dto"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	cfg.RedisAddr = ""
	cfg.ClickhouseAddr = ""
	cfg.KafkaBrokers = nil
	cfg.SQLitePath = filepath.Join(t.TempDir(), "irec.db")
	cfg.EventBufferSize = 8
	return cfg
}

func TestNewApp_DirectChannelWithRedisAndSQLite(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisAddr = mr.Addr()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.NewApp(ctx, nil, cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Cleanup(context.Background())) }()

	assert.Nil(t, a.KafkaProducer)
	assert.IsType(t, &app.EventProcessor{}, a.EventProcessor)
	go a.EventProcessor.Run(ctx)

	require.NoError(t, a.Publish(ctx, []*dto.ProjectDTO{projectUpdate("IREC-BR-9", "2000")}))
	require.Eventually(t, func() bool { return a.Registry.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	stats, err := a.Analytics.CacheStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "layered", stats.Backend)
	require.Eventually(t, func() bool {
		s, err := a.Analytics.CacheStats(ctx)
		return err == nil && s.Entries["analytics"] == 1
	}, 5*time.Second, 10*time.Millisecond)

	res, err := a.Analytics.ProjectAnalytics(ctx, "IREC-BR-9")
	require.NoError(t, err)
	assert.Equal(t, "IREC-BR-9", res.ProjectID)
}

func TestNewApp_FallsBackToMemoryCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisAddr = "127.0.0.1:1"
	cfg.SQLitePath = ""

	a, err := app.NewApp(context.Background(), nil, cfg)
	require.NoError(t, err)
	defer a.Cleanup(context.Background())

	stats, err := a.Analytics.CacheStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "memory", stats.Backend)
}
