package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"irecStatApp/internal/domain/model"
	"irecStatApp/internal/domain/repository"
)

const scanBatch = 200

// RedisRepository implements AnalyticsCache on Redis. Values are stored as
// JSON under "<prefix>:<kind>:<key>" and expire through Redis TTLs.
type RedisRepository struct {
	client *redis.Client
	prefix string
	ttls   TTLs
}

var _ repository.AnalyticsCache = (*RedisRepository)(nil)

// NewRedisClient opens a client for addr.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisRepository wraps client. An empty prefix defaults to "irec".
func NewRedisRepository(client *redis.Client, prefix string, ttls TTLs) *RedisRepository {
	if prefix == "" {
		prefix = "irec"
	}
	return &RedisRepository{client: client, prefix: prefix, ttls: ttls.withDefaults()}
}

// Ping checks connectivity.
func (r *RedisRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

func (r *RedisRepository) key(kind model.DatasetKind, key string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, kind, key)
}

func (r *RedisRepository) pattern(kind model.DatasetKind) string {
	return fmt.Sprintf("%s:%s:*", r.prefix, kind)
}

func (r *RedisRepository) Get(ctx context.Context, kind model.DatasetKind, key string) (model.Dataset, bool, error) {
	if _, err := r.ttls.For(kind); err != nil {
		return nil, false, err
	}
	raw, err := r.client.Get(ctx, r.key(kind, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s/%s: %v", ErrCacheUnavailable, kind, key, err)
	}

	value, err := model.NewDataset(kind)
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(raw, value); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal %s: %w", kind, err)
	}
	return value, true, nil
}

func (r *RedisRepository) Set(ctx context.Context, kind model.DatasetKind, key string, value model.Dataset) error {
	ttl, err := r.ttls.For(kind)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", kind, err)
	}
	if err := r.client.Set(ctx, r.key(kind, key), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s/%s: %v", ErrCacheUnavailable, kind, key, err)
	}
	return nil
}

func (r *RedisRepository) Clear(ctx context.Context, kinds ...model.DatasetKind) error {
	for _, kind := range kindsOrAll(kinds) {
		keys, err := r.scan(ctx, kind)
		if err != nil {
			return err
		}
		for start := 0; start < len(keys); start += scanBatch {
			end := min(start+scanBatch, len(keys))
			if err := r.client.Del(ctx, keys[start:end]...).Err(); err != nil {
				return fmt.Errorf("%w: clear %s: %v", ErrCacheUnavailable, kind, err)
			}
		}
	}
	return nil
}

func (r *RedisRepository) Stats(ctx context.Context) (model.CacheStats, error) {
	stats := model.CacheStats{Backend: "redis", Entries: make(map[model.DatasetKind]int)}
	for _, kind := range model.DatasetKinds() {
		keys, err := r.scan(ctx, kind)
		if err != nil {
			return stats, err
		}
		stats.Entries[kind] = len(keys)
		stats.Total += len(keys)
	}
	return stats, nil
}

// scan lists keys of one kind without blocking the server the way KEYS does.
func (r *RedisRepository) scan(ctx context.Context, kind model.DatasetKind) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, r.pattern(kind), scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", ErrCacheUnavailable, kind, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// Close closes the underlying client.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
