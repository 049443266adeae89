package readmodel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/carelog-systems/carelog-projector/internal/model"
)

// RedisConfig holds connection settings for the Redis read model.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	BatchSize int
}

// DefaultRedisConfig returns sensible defaults for the Redis store.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "rm",
		BatchSize: 500,
	}
}

// RedisStore keeps the read model in Redis for fast current-value lookups.
// Each record is stored as JSON under "<prefix>:<PK>:<SK>".
type RedisStore struct {
	client *redis.Client
	prefix string
	batch  int
}

// NewRedisStore creates a Redis-backed store and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStoreWithClient(client, cfg), nil
}

// NewRedisStoreWithClient wraps an existing client. Used by tests.
func NewRedisStoreWithClient(client *redis.Client, cfg RedisConfig) *RedisStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "rm"
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 500
	}
	return &RedisStore{client: client, prefix: prefix, batch: batch}
}

// Name implements Store.
func (s *RedisStore) Name() string { return "redis" }

// MaxBatchSize implements Store.
func (s *RedisStore) MaxBatchSize() int { return s.batch }

// Key returns the Redis key for a record identity.
func (s *RedisStore) Key(key model.RecordKey) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, key.PK, key.SK)
}

// PutBatch implements Store using a single pipeline of SETs. Commands that
// fail are reported back as the unprocessed subset.
func (s *RedisStore) PutBatch(ctx context.Context, records []model.IndexRecord) ([]model.IndexRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}

	payloads := make([][]byte, len(records))
	for i, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("marshal record %s/%s: %w", record.PK, record.SK, err)
		}
		payloads[i] = data
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StatusCmd, len(records))
	for i, record := range records {
		cmds[i] = pipe.Set(ctx, s.Key(record.Key()), payloads[i], 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		// Exec returns the first command error; sort out which ones failed.
		var unprocessed []model.IndexRecord
		for i, cmd := range cmds {
			if cmd.Err() != nil {
				unprocessed = append(unprocessed, records[i])
			}
		}
		if len(unprocessed) == 0 {
			// Pipeline-level failure before any command ran.
			return records, fmt.Errorf("redis pipeline: %w", err)
		}
		return unprocessed, nil
	}

	return nil, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
