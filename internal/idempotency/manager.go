// Package idempotency replays stored results for operations retried under the same key.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const lockTTL = time.Minute

var ErrRequestInProgress = errors.New("request with this key is already in progress")

// Operation produces the serialized result to remember for the key.
type Operation func(ctx context.Context) ([]byte, error)

type Result struct {
	Response  []byte
	FromCache bool
}

type Manager interface {
	Execute(
		ctx context.Context,
		key string,
		ttl time.Duration,
		fn Operation,
	) (*Result, error)
}

type manager struct {
	store Store
	log   *slog.Logger
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store: store,
		log:   log,
	}
}

// Execute runs fn at most once per key within ttl. A completed record is replayed;
// a key locked by a concurrent caller yields ErrRequestInProgress. When fn fails nothing
// is stored and the key may be retried.
func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	if cached, err := m.completed(ctx, key); err != nil || cached != nil {
		return cached, err
	}

	locked, err := m.store.Lock(ctx, key, lockTTL)
	if err != nil {
		return nil, err
	}

	if !locked {
		// The holder may have finished between the first lookup and the lock attempt.
		if cached, err := m.completed(ctx, key); err != nil || cached != nil {
			return cached, err
		}
		return nil, ErrRequestInProgress
	}

	defer func() {
		if err := m.store.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
			m.log.Warn("idempotency lock not released", slog.String("key", key), slog.Any("error", err))
		}
	}()

	response, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	if err := m.store.Set(ctx, key, &Record{
		Status:   StatusCompleted,
		Response: response,
	}, ttl); err != nil {
		m.log.Warn("idempotency record not stored", slog.String("key", key), slog.Any("error", err))
	}

	return &Result{
		Response:  response,
		FromCache: false,
	}, nil
}

func (m *manager) completed(ctx context.Context, key string) (*Result, error) {
	record, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if record == nil || record.Status != StatusCompleted {
		return nil, nil
	}

	return &Result{Response: record.Response, FromCache: true}, nil
}
