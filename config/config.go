package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"irecStatApp/internal/domain/model"
	"irecStatApp/internal/domain/service"
	"irecStatApp/internal/infrastructure/cache"
)

// Config holds all app configuration
type Config struct {
	Env string `env:"ENV" envDefault:"local"`

	// Server
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	// Redis; an empty address keeps the cache in process memory only.
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"irec"`

	// ClickHouse; an empty address falls back to SQLite.
	ClickhouseAddr     string `env:"CLICKHOUSE_ADDR"`
	ClickhouseDatabase string `env:"CLICKHOUSE_DATABASE" envDefault:"default"`
	ClickhouseUsername string `env:"CLICKHOUSE_USERNAME"`
	ClickhousePassword string `env:"CLICKHOUSE_PASSWORD"`
	ClickhouseTimeout  int    `env:"CLICKHOUSE_TIMEOUT" envDefault:"10"`

	// SQLite; an empty path disables local persistence.
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/irec.db"`

	// Kafka; no brokers means updates arrive on the direct channel.
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic         string   `env:"KAFKA_TOPIC" envDefault:"irec-projects"`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"irecstat-group"`
	KafkaBatchSize     int      `env:"KAFKA_BATCH_SIZE" envDefault:"500"`
	KafkaBatchTimeout  int      `env:"KAFKA_BATCH_TIMEOUT" envDefault:"3000"` // milliseconds

	// Cache
	TTLCertificates      time.Duration `env:"TTL_CERTIFICATES" envDefault:"5m"`
	TTLSupply            time.Duration `env:"TTL_SUPPLY" envDefault:"10m"`
	TTLPaymentMethods    time.Duration `env:"TTL_PAYMENT_METHODS" envDefault:"10m"`
	TTLTokenization      time.Duration `env:"TTL_TOKENIZATION" envDefault:"15m"`
	TTLRealTime          time.Duration `env:"TTL_REALTIME" envDefault:"30s"`
	TTLAnalytics         time.Duration `env:"TTL_ANALYTICS" envDefault:"15m"`
	CacheRefreshInterval time.Duration `env:"CACHE_REFRESH_INTERVAL" envDefault:"0"`
	CacheSweepInterval   time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"1m"`

	// Synthesis
	SynthLookbackDays    int     `env:"SYNTH_LOOKBACK_DAYS" envDefault:"365"`
	SynthIndividualShare float64 `env:"SYNTH_INDIVIDUAL_SHARE" envDefault:"0.7"`
	SynthCorporateShare  float64 `env:"SYNTH_CORPORATE_SHARE" envDefault:"0.66"`
	SynthPaymentWeights  string  `env:"SYNTH_PAYMENT_WEIGHTS" envDefault:"card:45,crypto:30,bank_transfer:20,other:5"`

	// App settings
	EventBufferSize int           `env:"EVENT_BUFFER_SIZE" envDefault:"10000"`
	DemoGenerator   bool          `env:"DEMO_GENERATOR" envDefault:"false"`
	DemoProjects    int           `env:"DEMO_PROJECTS" envDefault:"8"`
	DemoInterval    time.Duration `env:"DEMO_INTERVAL" envDefault:"5s"`
}

// LoadConfig loads configuration from environment variables, with optional
// .env file. Variables already set in the environment win over the file.
func LoadConfig(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.SynthesisConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// KafkaEnabled reports whether a broker list was configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTopic != ""
}

// CacheTTLs returns the per-dataset TTLs.
func (c *Config) CacheTTLs() cache.TTLs {
	return cache.TTLs{
		model.DatasetCertificates:   c.TTLCertificates,
		model.DatasetSupply:         c.TTLSupply,
		model.DatasetPaymentMethods: c.TTLPaymentMethods,
		model.DatasetTokenization:   c.TTLTokenization,
		model.DatasetRealTimeStats:  c.TTLRealTime,
		model.DatasetAnalytics:      c.TTLAnalytics,
	}
}

// SynthesisConfig returns the synthesizer constants. Settings left at zero
// keep the synthesizer defaults.
func (c *Config) SynthesisConfig() (service.SynthesisConfig, error) {
	weights, err := ParsePaymentWeights(c.SynthPaymentWeights)
	if err != nil {
		return service.SynthesisConfig{}, err
	}
	cfg := service.DefaultSynthesisConfig()
	cfg.LookbackDays = c.SynthLookbackDays
	cfg.IndividualShare = c.SynthIndividualShare
	cfg.CorporateShare = c.SynthCorporateShare
	if len(weights) > 0 {
		cfg.PaymentWeights = weights
	}
	return cfg, nil
}

// ParsePaymentWeights reads "method:weight" pairs separated by commas.
func ParsePaymentWeights(s string) ([]service.PaymentWeight, error) {
	var out []service.PaymentWeight
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		method, raw, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(method) == "" {
			return nil, fmt.Errorf("payment weight %q: want method:weight", pair)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || w < 0 {
			return nil, fmt.Errorf("payment weight %q: invalid weight", pair)
		}
		out = append(out, service.PaymentWeight{
			Method: model.PaymentMethod(strings.TrimSpace(method)),
			Weight: w,
		})
	}
	return out, nil
}
