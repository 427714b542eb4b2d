package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"irecStatApp/config"
	"irecStatApp/internal/app/dto"
	"irecStatApp/internal/domain/repository"
	"irecStatApp/internal/domain/service"
	ws "irecStatApp/internal/handlers/websocket"
	"irecStatApp/internal/infrastructure/cache"
	"irecStatApp/internal/infrastructure/metrics"
	"irecStatApp/internal/infrastructure/queue"
	"irecStatApp/internal/infrastructure/storage"
)

const connectTimeout = 3 * time.Second

// AppContext holds all app dependencies
type AppContext struct {
	Config         *config.Config
	Log            *slog.Logger
	Metrics        *metrics.Metrics
	Registry       *ProjectRegistry
	Analytics      *service.AnalyticsService
	Broadcaster    *ws.WebSocketBroadcaster
	EventProcessor Processor
	KafkaConsumer  *queue.KafkaConsumer
	KafkaProducer  *queue.KafkaProducer
	// Updates is the direct ingestion channel, used when Kafka is not
	// configured.
	Updates chan *dto.ProjectDTO

	memory      *cache.MemoryCache
	redis       *cache.RedisRepository
	persistence repository.AnalyticsPersistence
}

// NewApp initializes the app context with all dependencies
func NewApp(ctx context.Context, log *slog.Logger, cfg *config.Config) (*AppContext, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	synthCfg, err := cfg.SynthesisConfig()
	if err != nil {
		return nil, err
	}

	a := &AppContext{
		Config:   cfg,
		Log:      log,
		Metrics:  metrics.New(),
		Registry: NewProjectRegistry(),
	}

	analyticsCache := a.setupCache(ctx)
	a.setupPersistence(ctx)

	opts := []service.Option{
		service.WithRecorder(a.Metrics),
		service.WithLogger(log.With(slog.String("component", "analytics"))),
	}
	if a.persistence != nil {
		opts = append(opts, service.WithPersistence(a.persistence))
	}
	a.Analytics = service.NewAnalyticsService(a.Registry, analyticsCache, service.NewSynthesizer(synthCfg, nil), opts...)
	a.Analytics.StartAutoRefresh(cfg.CacheRefreshInterval)

	a.Broadcaster = ws.NewWebSocketBroadcaster(log)
	a.setupIngestion()
	return a, nil
}

// setupCache always keeps an in-process cache and layers Redis over it when
// Redis answers a ping.
func (a *AppContext) setupCache(ctx context.Context) repository.AnalyticsCache {
	ttls := a.Config.CacheTTLs()
	a.memory = cache.NewMemoryCache(ttls)
	if a.Config.RedisAddr == "" {
		a.Log.Info("analytics cache initialized", slog.String("backend", "memory"))
		return a.memory
	}

	redisRepo := cache.NewRedisRepository(
		cache.NewRedisClient(a.Config.RedisAddr, a.Config.RedisPassword, a.Config.RedisDB),
		a.Config.RedisPrefix, ttls)
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := redisRepo.Ping(pingCtx); err != nil {
		a.Log.Warn("redis unavailable, continuing with memory cache", slog.Any("error", err))
		_ = redisRepo.Close()
		return a.memory
	}
	a.redis = redisRepo
	a.Log.Info("analytics cache initialized", slog.String("backend", "layered"), slog.String("redis", a.Config.RedisAddr))
	return cache.NewLayeredCache(a.memory, redisRepo)
}

// setupPersistence prefers ClickHouse, then SQLite, then nothing.
func (a *AppContext) setupPersistence(ctx context.Context) {
	if a.Config.ClickhouseAddr != "" {
		chCtx, cancel := context.WithTimeout(ctx, time.Duration(a.Config.ClickhouseTimeout)*time.Second)
		repo, err := storage.NewClickHouseRepository(chCtx, storage.ClickHouseConfig{
			Addr:     a.Config.ClickhouseAddr,
			Database: a.Config.ClickhouseDatabase,
			Username: a.Config.ClickhouseUsername,
			Password: a.Config.ClickhousePassword,
			Timeout:  a.Config.ClickhouseTimeout,
		})
		cancel()
		if err == nil {
			a.persistence = repo
			a.Log.Info("persistent storage initialized", slog.String("backend", "clickhouse"))
			return
		}
		a.Log.Warn("failed to connect to ClickHouse, trying SQLite", slog.Any("error", err))
	}

	if a.Config.SQLitePath != "" {
		repo, err := storage.OpenSQLite(ctx, a.Config.SQLitePath)
		if err == nil {
			a.persistence = repo
			a.Log.Info("persistent storage initialized", slog.String("backend", "sqlite"), slog.String("path", repo.Path()))
			return
		}
		a.Log.Warn("failed to open SQLite", slog.Any("error", err))
	}
	a.Log.Warn("no persistent storage, snapshots are kept in cache only")
}

func (a *AppContext) setupIngestion() {
	a.Updates = make(chan *dto.ProjectDTO, a.Config.EventBufferSize)
	processor := NewEventProcessor(a.Updates, a.Registry, a.Analytics, a.Broadcaster, a.Metrics, a.Log)

	if !a.Config.KafkaEnabled() {
		a.EventProcessor = processor
		a.Log.Info("Kafka not configured, using direct channel")
		return
	}

	kafkaConfig := queue.KafkaConfig{
		Brokers:       a.Config.KafkaBrokers,
		Topic:         a.Config.KafkaTopic,
		ConsumerGroup: a.Config.KafkaConsumerGroup,
		BatchSize:     a.Config.KafkaBatchSize,
		BatchTimeout:  a.Config.KafkaBatchTimeout,
	}
	a.KafkaConsumer = queue.NewKafkaConsumer(kafkaConfig, a.Log)
	a.KafkaProducer = queue.NewKafkaProducer(kafkaConfig)
	a.EventProcessor = NewKafkaEventProcessor(a.KafkaConsumer, processor, a.Log)
	a.Log.Info("Kafka consumer and producer initialized", slog.String("topic", kafkaConfig.Topic))
}

// Publish hands updates to Kafka when configured, otherwise to the direct
// channel.
func (a *AppContext) Publish(ctx context.Context, updates []*dto.ProjectDTO) error {
	if a.KafkaProducer != nil {
		return a.KafkaProducer.PublishProjectBatch(ctx, updates)
	}
	for _, u := range updates {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a.Updates <- u:
		}
	}
	return nil
}

// RunSweeper drops expired entries from the memory cache every interval until
// ctx is done.
func (a *AppContext) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.memory.Sweep(); n > 0 {
				a.Log.Debug("expired cache entries swept", slog.Int("entries", n))
			}
		}
	}
}

// Cleanup performs graceful shutdown of all components. The direct channel
// is left open; the event processor stops on context cancellation.
func (a *AppContext) Cleanup(_ context.Context) error {
	a.Analytics.StopAutoRefresh()
	a.Broadcaster.Close()

	var errs []error
	if a.KafkaConsumer != nil {
		if err := a.KafkaConsumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close Kafka consumer: %w", err))
		}
	}
	if a.KafkaProducer != nil {
		if err := a.KafkaProducer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close Kafka producer: %w", err))
		}
	}
	if a.persistence != nil {
		if err := a.persistence.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	a.Log.Info("all resources cleaned up")
	return errors.Join(errs...)
}
