package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	appredis "github.com/kitwiz/miniapp-backend/pkg/redis"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

type Record struct {
	Status   string `json:"status"`
	Response []byte `json:"response,omitempty"`
}

type Store interface {
	Lock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, key string, record *Record, ttl time.Duration) error
	ReleaseLock(ctx context.Context, key string) error
}

// RedisStore keeps idempotency records and in-flight locks in Redis.
type RedisStore struct {
	kv  appredis.KV
	log *slog.Logger
}

func NewRedisStore(kv appredis.KV, log *slog.Logger) Store {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{
		kv:  kv,
		log: log,
	}
}

func (s *RedisStore) Lock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	acquired, err := s.kv.SetNX(ctx, lockKey(key), []byte(StatusProcessing), lockTTL)
	if err != nil {
		s.log.Error("failed to acquire idempotency lock", slog.String("key", key), slog.Any("error", err))
		return false, err
	}

	return acquired, nil
}

// Get returns the stored record for key or nil when none exists.
func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	data, err := s.kv.Get(ctx, recordKey(key))
	if err != nil {
		if errors.Is(err, appredis.ErrCacheMiss) {
			return nil, nil
		}
		s.log.Error("failed to fetch idempotency record", slog.String("key", key), slog.Any("error", err))
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		s.log.Error("failed to decode idempotency record", slog.String("key", key), slog.Any("error", err))
		return nil, err
	}

	return &record, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, record *Record, ttl time.Duration) error {
	if record == nil {
		return nil
	}

	payload, err := json.Marshal(record)
	if err != nil {
		s.log.Error("failed to encode idempotency record", slog.String("key", key), slog.Any("error", err))
		return err
	}

	if err := s.kv.Set(ctx, recordKey(key), payload, ttl); err != nil {
		s.log.Error("failed to store idempotency record", slog.String("key", key), slog.Any("error", err))
		return err
	}

	return nil
}

func (s *RedisStore) ReleaseLock(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, lockKey(key)); err != nil {
		s.log.Error("failed to release idempotency lock", slog.String("key", key), slog.Any("error", err))
		return err
	}

	return nil
}

func recordKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}

func lockKey(key string) string {
	return fmt.Sprintf("idempotency:%s:lock", key)
}
