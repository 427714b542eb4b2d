// Package service holds the analytics core: seeded synthesis of itemized
// events, aggregation, derived metrics and the cached composition of
// per-project datasets. It depends only on domain models and repository
// interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"irecStatApp/internal/domain/model"
	"irecStatApp/internal/domain/repository"
	"irecStatApp/internal/domain/useCases"
)

var (
	// ErrProjectNotFound is returned when a project id is not known to the
	// project source.
	ErrProjectNotFound = errors.New("project not found")
	// ErrUnknownDataset is returned for a dataset kind outside the fixed set.
	ErrUnknownDataset = errors.New("unknown dataset kind")
)

const (
	supplyKey           = "all"
	defaultTopN         = 10
	defaultPriceDays    = 30
	breakdownTolerance  = 0.1
	realTimeWindow      = 24 * time.Hour
	persistenceDeadline = 5 * time.Second
)

// AnalyticsService composes datasets from project records through the
// cache. A miss or expiry recomputes the whole dataset; concurrent misses
// for the same key share one computation. Cache and persistence failures are
// logged and never fail a request.
type AnalyticsService struct {
	projects repository.ProjectSource
	cache    repository.AnalyticsCache
	storage  repository.AnalyticsPersistence
	synth    *Synthesizer
	recorder Recorder
	log      *slog.Logger
	now      func() time.Time
	topN     int
	group    singleflight.Group

	refreshMu   sync.Mutex
	refreshStop chan struct{}
	refreshDone chan struct{}
	sweepMu     sync.Mutex
}

var _ useCases.AnalyticsService = (*AnalyticsService)(nil)

// Option configures an AnalyticsService.
type Option func(*AnalyticsService)

// WithPersistence stores every freshly composed analytics result.
func WithPersistence(p repository.AnalyticsPersistence) Option {
	return func(s *AnalyticsService) { s.storage = p }
}

// WithRecorder reports cache and compute measurements to r.
func WithRecorder(r Recorder) Option {
	return func(s *AnalyticsService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *AnalyticsService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock sets the clock used for GeneratedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *AnalyticsService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTopN sets the length of the top retiree and trader lists.
func WithTopN(n int) Option {
	return func(s *AnalyticsService) {
		if n > 0 {
			s.topN = n
		}
	}
}

// NewAnalyticsService creates the service. synth may be nil, in which case
// the default synthesis configuration is used.
func NewAnalyticsService(projects repository.ProjectSource, c repository.AnalyticsCache, synth *Synthesizer, opts ...Option) *AnalyticsService {
	if synth == nil {
		synth = NewSynthesizer(DefaultSynthesisConfig(), nil)
	}
	s := &AnalyticsService{
		projects: projects,
		cache:    c,
		synth:    synth,
		recorder: nopRecorder{},
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		topN:     defaultTopN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// cached returns the value under (kind, key), computing and storing it on a
// miss.
func cached[T model.Dataset](ctx context.Context, s *AnalyticsService, kind model.DatasetKind, key string, compute func(context.Context) (T, error)) (T, error) {
	v, ok, err := lookup[T](ctx, s.cache, kind, key)
	if err != nil {
		s.log.Warn("cache read failed, recomputing",
			slog.String("dataset", string(kind)), slog.String("key", key), slog.Any("error", err))
	}
	if ok {
		s.recorder.CacheHit(kind)
		return v, nil
	}
	s.recorder.CacheMiss(kind)

	res, err, _ := s.group.Do(flightKey(kind, key), func() (any, error) {
		start := time.Now()
		fresh, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		s.recorder.ObserveCompute(kind, time.Since(start))
		s.store(ctx, kind, key, fresh)
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// lookup reads a typed value. A value of an unexpected type counts as a
// miss.
func lookup[T model.Dataset](ctx context.Context, c repository.AnalyticsCache, kind model.DatasetKind, key string) (T, bool, error) {
	var zero T
	v, ok, err := c.Get(ctx, kind, key)
	if err != nil || !ok {
		return zero, false, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false, nil
	}
	return typed, true, nil
}

func flightKey(kind model.DatasetKind, key string) string {
	return string(kind) + "/" + key
}

// replace stores value once any in-flight compute of the same entry has
// finished, so an older result cannot land after it.
func (s *AnalyticsService) replace(ctx context.Context, kind model.DatasetKind, key string, value model.Dataset) {
	_, _, _ = s.group.Do(flightKey(kind, key), func() (any, error) { return value, nil })
	s.store(ctx, kind, key, value)
}

func (s *AnalyticsService) store(ctx context.Context, kind model.DatasetKind, key string, value model.Dataset) {
	if err := s.cache.Set(ctx, kind, key, value); err != nil {
		s.log.Warn("cache write failed",
			slog.String("dataset", string(kind)), slog.String("key", key), slog.Any("error", err))
	}
}

func (s *AnalyticsService) project(ctx context.Context, id string) (model.ProjectRecord, error) {
	p, err := s.projects.GetProject(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return model.ProjectRecord{}, err
		}
		return model.ProjectRecord{}, fmt.Errorf("failed to load project %s: %w", id, err)
	}
	return p, nil
}

// ProjectAnalytics returns the full analytics of one project.
func (s *AnalyticsService) ProjectAnalytics(ctx context.Context, projectID string) (*model.AnalyticsResult, error) {
	return cached(ctx, s, model.DatasetAnalytics, projectID, func(ctx context.Context) (*model.AnalyticsResult, error) {
		p, err := s.project(ctx, projectID)
		if err != nil {
			return nil, err
		}
		return s.composeAnalytics(ctx, p), nil
	})
}

// Certificates returns the retirement certificates of one project.
func (s *AnalyticsService) Certificates(ctx context.Context, projectID string) (*model.CertificateList, error) {
	return cached(ctx, s, model.DatasetCertificates, projectID, func(ctx context.Context) (*model.CertificateList, error) {
		p, err := s.project(ctx, projectID)
		if err != nil {
			return nil, err
		}
		return s.composeCertificates(p), nil
	})
}

// PaymentMethods returns the payment mix of one project's retirements.
func (s *AnalyticsService) PaymentMethods(ctx context.Context, projectID string) (*model.PaymentMethodBreakdown, error) {
	return cached(ctx, s, model.DatasetPaymentMethods, projectID, func(ctx context.Context) (*model.PaymentMethodBreakdown, error) {
		p, err := s.project(ctx, projectID)
		if err != nil {
			return nil, err
		}
		return s.composePaymentMethods(p), nil
	})
}

// Tokenization returns the on-chain circulation metrics of one project.
func (s *AnalyticsService) Tokenization(ctx context.Context, projectID string) (*model.TokenizationMetrics, error) {
	return cached(ctx, s, model.DatasetTokenization, projectID, func(ctx context.Context) (*model.TokenizationMetrics, error) {
		p, err := s.project(ctx, projectID)
		if err != nil {
			return nil, err
		}
		return s.composeTokenization(p), nil
	})
}

// RealTimeStats returns the last-24h retirement activity of one project.
func (s *AnalyticsService) RealTimeStats(ctx context.Context, projectID string) (*model.RealTimeStats, error) {
	return cached(ctx, s, model.DatasetRealTimeStats, projectID, func(ctx context.Context) (*model.RealTimeStats, error) {
		p, err := s.project(ctx, projectID)
		if err != nil {
			return nil, err
		}
		return s.composeRealTime(p), nil
	})
}

// Supply returns the portfolio-wide supply overview.
func (s *AnalyticsService) Supply(ctx context.Context) (*model.SupplyOverview, error) {
	return cached(ctx, s, model.DatasetSupply, supplyKey, func(ctx context.Context) (*model.SupplyOverview, error) {
		projects, err := s.projects.ListProjects(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list projects: %w", err)
		}
		return s.composeSupply(projects), nil
	})
}

// Projects lists known projects ordered by id.
func (s *AnalyticsService) Projects(ctx context.Context) ([]model.ProjectRecord, error) {
	projects, err := s.projects.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

// ClearCache drops cached datasets of the given kinds, or all of them.
func (s *AnalyticsService) ClearCache(ctx context.Context, kinds ...model.DatasetKind) error {
	for _, k := range kinds {
		if !k.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownDataset, k)
		}
	}
	if err := s.cache.Clear(ctx, kinds...); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// CacheStats reports fresh entries per dataset kind.
func (s *AnalyticsService) CacheStats(ctx context.Context) (model.CacheStats, error) {
	return s.cache.Stats(ctx)
}

// Warm recomputes every per-project dataset of project, replaces the cached
// entries and invalidates the portfolio overview. It returns the fresh
// real-time stats so callers can broadcast them.
func (s *AnalyticsService) Warm(ctx context.Context, project model.ProjectRecord) (*model.RealTimeStats, error) {
	if project.ID == "" {
		return nil, fmt.Errorf("cannot warm project without id")
	}
	start := time.Now()
	s.replace(ctx, model.DatasetAnalytics, project.ID, s.composeAnalytics(ctx, project))
	s.recorder.ObserveCompute(model.DatasetAnalytics, time.Since(start))
	s.replace(ctx, model.DatasetCertificates, project.ID, s.composeCertificates(project))
	s.replace(ctx, model.DatasetPaymentMethods, project.ID, s.composePaymentMethods(project))
	s.replace(ctx, model.DatasetTokenization, project.ID, s.composeTokenization(project))
	rt := s.composeRealTime(project)
	s.replace(ctx, model.DatasetRealTimeStats, project.ID, rt)

	if err := s.cache.Clear(ctx, model.DatasetSupply); err != nil {
		s.log.Warn("failed to invalidate supply overview", slog.Any("error", err))
	}
	return rt, nil
}

func (s *AnalyticsService) retirements(p model.ProjectRecord, anchor time.Time) []model.ItemizedEvent {
	events := s.synth.Synthesize(p, SynthesisOptions{Kind: model.EventRetirement, Anchor: anchor})
	s.recorder.EventsSynthesized(model.EventRetirement, len(events))
	return events
}

func (s *AnalyticsService) transfers(p model.ProjectRecord, anchor time.Time) []model.ItemizedEvent {
	events := s.synth.Synthesize(p, SynthesisOptions{Kind: model.EventTransfer, Anchor: anchor})
	s.recorder.EventsSynthesized(model.EventTransfer, len(events))
	return events
}

func (s *AnalyticsService) composeAnalytics(ctx context.Context, p model.ProjectRecord) *model.AnalyticsResult {
	anchor := s.synth.Anchor()
	retirements := s.retirements(p, anchor)
	transfers := s.transfers(p, anchor)
	all := append(append(make([]model.ItemizedEvent, 0, len(retirements)+len(transfers)), retirements...), transfers...)

	result := &model.AnalyticsResult{
		ProjectID:   p.ID,
		GeneratedAt: s.now().UTC(),
		Totals: model.AnalyticsTotals{
			TotalSupply:        p.TotalQuantity(),
			Retired:            p.RetiredQuantity(),
			Available:          p.AvailableQuantity(),
			RetiredInEvents:    SumEvents(retirements),
			TransferVolume:     SumEvents(transfers),
			RetirementCount:    len(retirements),
			TransferCount:      len(transfers),
			UniqueParticipants: UniqueParticipants(all),
		},
		Time:                  AggregateByTime(retirements),
		PaymentMethods:        Breakdown(retirements, ByPaymentMethod),
		Statuses:              Breakdown(all, ByStatus),
		ParticipantCategories: Breakdown(retirements, ByParticipantCategory),
		TopRetirees:           TopN(retirements, ByParticipant, s.topN),
		TopTraders:            TopN(transfers, ByParticipant, s.topN),
		Trends: model.Trends{
			Retirements24h: CompareWindows(retirements, anchor, 24*time.Hour).Trend,
			Retirements7d:  CompareWindows(retirements, anchor, 7*24*time.Hour).Trend,
			Retirements30d: CompareWindows(retirements, anchor, 30*24*time.Hour).Trend,
			Volume24h:      CompareWindows(transfers, anchor, 24*time.Hour).Trend,
			Volume7d:       CompareWindows(transfers, anchor, 7*24*time.Hour).Trend,
		},
		PriceHistory: s.synth.SynthesizePriceHistory(p, defaultPriceDays, anchor),
	}
	result.Metrics = DeriveMetrics(p, *result)

	warnings := ValidateProject(p)
	warnings = append(warnings, ValidateTotals(p.ID, model.EventRetirement, retirements, p.RetiredQuantity().Floor(), DefaultTolerance)...)
	warnings = append(warnings, ValidateTotals(p.ID, model.EventTransfer, transfers, p.CirculatingQuantity().Floor(), DefaultTolerance)...)
	warnings = append(warnings, ValidateBreakdown(p.ID, "paymentMethods", result.PaymentMethods, breakdownTolerance)...)
	warnings = append(warnings, ValidateBreakdown(p.ID, "statuses", result.Statuses, breakdownTolerance)...)
	warnings = append(warnings, ValidateBreakdown(p.ID, "participantCategories", result.ParticipantCategories, breakdownTolerance)...)
	result.Warnings = warnings
	s.reportWarnings(model.DatasetAnalytics, warnings)

	s.persist(ctx, result, all)
	return result
}

func (s *AnalyticsService) reportWarnings(kind model.DatasetKind, warnings []model.DataQualityWarning) {
	for _, w := range warnings {
		s.recorder.ValidationWarning(w.Code)
		s.log.Warn("data quality warning",
			slog.String("dataset", string(kind)),
			slog.String("project_id", w.ProjectID),
			slog.String("code", w.Code),
			slog.String("message", w.Message))
	}
}

// persist stores the snapshot under its own deadline, detached from the
// caller's cancellation.
func (s *AnalyticsService) persist(ctx context.Context, result *model.AnalyticsResult, events []model.ItemizedEvent) {
	if s.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistenceDeadline)
	defer cancel()
	if err := s.storage.SaveSnapshot(ctx, result); err != nil {
		s.log.Warn("failed to persist analytics snapshot",
			slog.String("project_id", result.ProjectID), slog.Any("error", err))
		return
	}
	if err := s.storage.SaveEvents(ctx, events); err != nil {
		s.log.Warn("failed to persist itemized events",
			slog.String("project_id", result.ProjectID), slog.Any("error", err))
	}
}

func (s *AnalyticsService) composeCertificates(p model.ProjectRecord) *model.CertificateList {
	events := s.retirements(p, s.synth.Anchor())
	if w := ValidateProject(p); len(w) > 0 {
		s.reportWarnings(model.DatasetCertificates, w)
	}
	return &model.CertificateList{
		ProjectID:    p.ID,
		Certificates: events,
		Total:        SumEvents(events),
		GeneratedAt:  s.now().UTC(),
	}
}

func (s *AnalyticsService) composePaymentMethods(p model.ProjectRecord) *model.PaymentMethodBreakdown {
	events := s.retirements(p, s.synth.Anchor())
	return &model.PaymentMethodBreakdown{
		ProjectID:   p.ID,
		Methods:     Breakdown(events, ByPaymentMethod),
		Total:       SumEvents(events),
		EventCount:  len(events),
		GeneratedAt: s.now().UTC(),
	}
}

func (s *AnalyticsService) composeTokenization(p model.ProjectRecord) *model.TokenizationMetrics {
	events := s.transfers(p, s.synth.Anchor())
	volume := SumEvents(events)
	totals := model.AnalyticsTotals{TransferVolume: volume, TransferCount: len(events)}
	return &model.TokenizationMetrics{
		ProjectID:        p.ID,
		TokenizedSupply:  p.CirculatingQuantity(),
		TransferVolume:   volume,
		TransferCount:    len(events),
		EstimatedHolders: UniqueParticipants(events),
		AverageTradeSize: averageTradeSize(totals),
		MarketCap:        p.TotalQuantity().Mul(p.UnitPrice()),
		LiquidityScore:   LiquidityScore(p.AvailableQuantity(), p.TotalQuantity(), volume),
		GeneratedAt:      s.now().UTC(),
	}
}

func (s *AnalyticsService) composeRealTime(p model.ProjectRecord) *model.RealTimeStats {
	anchor := s.synth.Anchor()
	events := s.retirements(p, anchor)
	cmp := CompareWindows(events, anchor, realTimeWindow)
	return &model.RealTimeStats{
		ProjectID:          p.ID,
		RetiredLast24h:     cmp.Recent.Quantity,
		RetiredPrevious24h: cmp.Previous.Quantity,
		Trend24h:           cmp.Trend,
		EventsLast24h:      cmp.Recent.Count,
		EventsPerHour:      float64(cmp.Recent.Count) / realTimeWindow.Hours(),
		LastEventAt:        LatestTimestamp(events),
		GeneratedAt:        s.now().UTC(),
	}
}

func (s *AnalyticsService) composeSupply(projects []model.ProjectRecord) *model.SupplyOverview {
	total, retired, available := decimal.Zero, decimal.Zero, decimal.Zero
	for _, p := range projects {
		total = total.Add(p.TotalQuantity())
		retired = retired.Add(p.RetiredQuantity())
		available = available.Add(p.AvailableQuantity())
	}
	return &model.SupplyOverview{
		Projects:        len(projects),
		TotalSupply:     total,
		Retired:         retired,
		Available:       available,
		UtilizationRate: UtilizationRate(retired, total),
		ByCountry:       projectBreakdown(projects, func(p model.ProjectRecord) string { return p.Country }),
		ByTechnology:    projectBreakdown(projects, func(p model.ProjectRecord) string { return p.Technology }),
		ByVintage:       projectBreakdown(projects, func(p model.ProjectRecord) string { return p.Vintage }),
		ByMethodology:   projectBreakdown(projects, func(p model.ProjectRecord) string { return p.Methodology }),
		GeneratedAt:     s.now().UTC(),
	}
}

func projectBreakdown(projects []model.ProjectRecord, key func(model.ProjectRecord) string) []model.AggregateBucket {
	buckets := GroupBy(projects, func(p model.ProjectRecord) string { return unknownIfEmpty(key(p)) }, model.ProjectRecord.TotalQuantity)
	sortByQuantity(buckets)
	return buckets
}

// StartAutoRefresh clears the cache every interval. Calling it again
// replaces the running timer; a non-positive interval only stops it.
func (s *AnalyticsService) StartAutoRefresh(interval time.Duration) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	s.stopRefreshLocked()
	if interval <= 0 {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.refreshStop, s.refreshDone = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.RefreshNow(context.Background())
			}
		}
	}()
	s.log.Info("cache auto-refresh started", slog.Duration("interval", interval))
}

// StopAutoRefresh stops the timer. It is safe to call more than once.
func (s *AnalyticsService) StopAutoRefresh() {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	s.stopRefreshLocked()
}

func (s *AnalyticsService) stopRefreshLocked() {
	if s.refreshStop == nil {
		return
	}
	close(s.refreshStop)
	<-s.refreshDone
	s.refreshStop, s.refreshDone = nil, nil
}

// RefreshNow clears every cached dataset unless a refresh is already
// running. It reports whether it ran.
func (s *AnalyticsService) RefreshNow(ctx context.Context) bool {
	if !s.sweepMu.TryLock() {
		return false
	}
	defer s.sweepMu.Unlock()
	if err := s.cache.Clear(ctx); err != nil {
		s.log.Warn("cache refresh failed", slog.Any("error", err))
		return true
	}
	s.log.Debug("cache refreshed")
	return true
}
