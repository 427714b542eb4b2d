package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irecStatApp/internal/app"
	"irecStatApp/internal/app/dto"
	"irecStatApp/internal/domain/model"
	"irecStatApp/internal/domain/service"
	"irecStatApp/internal/infrastructure/cache"
)

// MockBroadcaster records every broadcast.
type MockBroadcaster struct {
	broadcasts []*model.RealTimeStats
	mu         sync.Mutex
}

func (b *MockBroadcaster) BroadcastRealTimeStats(stats *model.RealTimeStats) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcasts = append(b.broadcasts, stats)
}

func (b *MockBroadcaster) GetBroadcasts() []*model.RealTimeStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*model.RealTimeStats(nil), b.broadcasts...)
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *outcomeRecorder) ProjectUpdate(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[string]int)
	}
	r.outcomes[outcome]++
}

func (r *outcomeRecorder) get(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[outcome]
}

type failingWarmer struct{}

func (failingWarmer) Warm(context.Context, model.ProjectRecord) (*model.RealTimeStats, error) {
	return nil, errors.New("boom")
}

func projectUpdate(id, retired string) *dto.ProjectDTO {
	return &dto.ProjectDTO{
		ID:            id,
		TotalSupply:   "100000",
		CurrentSupply: "60000",
		Retired:       retired,
		Vintage:       "2023",
		Methodology:   "I-REC Standard",
		Registry:      "I-REC",
		Country:       "BR",
		Technology:    "wind",
		CurrentPrice:  "1.20",
	}
}

func newAnalytics(registry *app.ProjectRegistry) *service.AnalyticsService {
	return service.NewAnalyticsService(registry, cache.NewMemoryCache(nil), nil)
}

func TestEventProcessor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan *dto.ProjectDTO, 10)
	registry := app.NewProjectRegistry()
	analytics := newAnalytics(registry)
	broadcaster := &MockBroadcaster{}
	recorder := &outcomeRecorder{}

	processor := app.NewEventProcessor(updates, registry, analytics, broadcaster, recorder, nil)
	done := make(chan error, 1)
	go func() { done <- processor.Run(ctx) }()

	updates <- projectUpdate("IREC-BR-1", "30000")
	updates <- projectUpdate("IREC-BR-2", "10000")
	// Same content again: the registry already holds it.
	updates <- projectUpdate("IREC-BR-1", "30000")

	require.Eventually(t, func() bool {
		return recorder.get(app.OutcomeApplied) == 2 && recorder.get(app.OutcomeUnchanged) == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, registry.Len())
	broadcasts := broadcaster.GetBroadcasts()
	require.Len(t, broadcasts, 2)
	assert.Equal(t, "IREC-BR-1", broadcasts[0].ProjectID)

	// Warm put the datasets in the cache already.
	stats, err := analytics.CacheStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries[model.DatasetAnalytics])

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("processor did not stop")
	}
}

func TestEventProcessor_Outcomes(t *testing.T) {
	ctx := context.Background()
	registry := app.NewProjectRegistry()
	recorder := &outcomeRecorder{}
	p := app.NewEventProcessor(nil, registry, newAnalytics(registry), nil, recorder, nil)

	outcome, err := p.Process(ctx, projectUpdate("", "0"))
	assert.Error(t, err)
	assert.Equal(t, app.OutcomeRejected, outcome)

	first := projectUpdate("IREC-BR-1", "1000")
	first.UpdateID = "u-1"
	outcome, err = p.Process(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, app.OutcomeApplied, outcome)

	// New update id, identical content.
	second := projectUpdate("IREC-BR-1", "1000")
	second.UpdateID = "u-2"
	outcome, err = p.Process(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, app.OutcomeUnchanged, outcome)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = p.Process(cancelled, projectUpdate("IREC-BR-3", "0"))
	assert.ErrorIs(t, err, app.ErrContextCancelled)

	assert.Equal(t, 1, recorder.get(app.OutcomeRejected))
	assert.Equal(t, 1, recorder.get(app.OutcomeUnchanged))
}

func TestEventProcessor_RevertedContentIsApplied(t *testing.T) {
	ctx := context.Background()
	registry := app.NewProjectRegistry()
	recorder := &outcomeRecorder{}
	p := app.NewEventProcessor(nil, registry, newAnalytics(registry), nil, recorder, nil)

	for _, retired := range []string{"10000", "20000", "10000"} {
		outcome, err := p.Process(ctx, projectUpdate("IREC-BR-1", retired))
		require.NoError(t, err)
		assert.Equal(t, app.OutcomeApplied, outcome, "retired %s", retired)
	}

	got, err := registry.GetProject(ctx, "IREC-BR-1")
	require.NoError(t, err)
	assert.Equal(t, "10000", got.Retired)
	assert.Zero(t, recorder.get(app.OutcomeDuplicate))
}

func TestEventProcessor_RedeliveryIsDuplicate(t *testing.T) {
	ctx := context.Background()
	registry := app.NewProjectRegistry()
	p := app.NewEventProcessor(nil, registry, newAnalytics(registry), nil, nil, nil)

	observed := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	first := projectUpdate("IREC-BR-1", "10000")
	first.ObservedAt = observed
	outcome, err := p.Process(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, app.OutcomeApplied, outcome)

	newer := projectUpdate("IREC-BR-1", "20000")
	newer.ObservedAt = observed.Add(time.Minute)
	outcome, err = p.Process(ctx, newer)
	require.NoError(t, err)
	assert.Equal(t, app.OutcomeApplied, outcome)

	// The first message delivered again must not roll the project back.
	redelivered := projectUpdate("IREC-BR-1", "10000")
	redelivered.ObservedAt = observed
	outcome, err = p.Process(ctx, redelivered)
	require.NoError(t, err)
	assert.Equal(t, app.OutcomeDuplicate, outcome)

	got, err := registry.GetProject(ctx, "IREC-BR-1")
	require.NoError(t, err)
	assert.Equal(t, "20000", got.Retired)
}

func TestEventProcessor_WarmFailure(t *testing.T) {
	registry := app.NewProjectRegistry()
	broadcaster := &MockBroadcaster{}
	p := app.NewEventProcessor(nil, registry, failingWarmer{}, broadcaster, nil, nil)

	outcome, err := p.Process(context.Background(), projectUpdate("IREC-BR-1", "0"))
	assert.Error(t, err)
	assert.Equal(t, app.OutcomeRejected, outcome)
	assert.Empty(t, broadcaster.GetBroadcasts())
}

func TestEventProcessor_StopsOnClosedChannel(t *testing.T) {
	updates := make(chan *dto.ProjectDTO)
	registry := app.NewProjectRegistry()
	p := app.NewEventProcessor(updates, registry, newAnalytics(registry), nil, nil, nil)
	close(updates)
	assert.NoError(t, p.Run(context.Background()))
}

func TestProjectRegistry(t *testing.T) {
	ctx := context.Background()
	r := app.NewProjectRegistry()

	assert.True(t, r.Upsert(model.ProjectRecord{ID: "b", Retired: "1"}))
	assert.True(t, r.Upsert(model.ProjectRecord{ID: "a"}))
	assert.False(t, r.Upsert(model.ProjectRecord{ID: "b", Retired: "1"}))
	assert.True(t, r.Upsert(model.ProjectRecord{ID: "b", Retired: "2"}))

	list, err := r.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)

	p, err := r.GetProject(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "2", p.Retired)

	_, err = r.GetProject(ctx, "zzz")
	assert.ErrorIs(t, err, service.ErrProjectNotFound)
}
