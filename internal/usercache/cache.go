package usercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kitwiz/miniapp-backend/internal/domain"
	appredis "github.com/kitwiz/miniapp-backend/pkg/redis"
)

const (
	DefaultProfileTTL = 10 * time.Minute
	DefaultStatusTTL  = 2 * time.Minute
)

// Cache provides Redis-backed caching for user profiles and online statuses.
// A nil *Cache is valid and behaves as an always-empty cache.
type Cache struct {
	kv         appredis.KV
	profileTTL time.Duration
	statusTTL  time.Duration
}

// NewCache constructs a user cache backed by the provided key-value store.
func NewCache(kv appredis.KV) *Cache {
	return &Cache{
		kv:         kv,
		profileTTL: DefaultProfileTTL,
		statusTTL:  DefaultStatusTTL,
	}
}

// Get fetches a cached user profile. A miss returns nil without error.
func (c *Cache) Get(ctx context.Context, userID int64) (*domain.User, error) {
	var user domain.User
	ok, err := c.load(ctx, profileKey(userID), &user)
	if err != nil || !ok {
		return nil, err
	}
	return &user, nil
}

// Set stores the user profile, replacing any cached copy. Writers call it with the row
// their update returned.
func (c *Cache) Set(ctx context.Context, user *domain.User) error {
	if user == nil {
		return nil
	}
	return c.store(ctx, profileKey(user.ID), user, c.profileTTL, false)
}

// Fill caches a profile read from the database unless a writer got there first.
func (c *Cache) Fill(ctx context.Context, user *domain.User) error {
	if user == nil {
		return nil
	}
	return c.store(ctx, profileKey(user.ID), user, c.profileTTL, true)
}

// GetStatus fetches a cached online status. A miss returns nil without error.
func (c *Cache) GetStatus(ctx context.Context, userID int64) (*domain.UserStatus, error) {
	var status domain.UserStatus
	ok, err := c.load(ctx, statusKey(userID), &status)
	if err != nil || !ok {
		return nil, err
	}
	return &status, nil
}

// SetStatus writes the status through to the cache.
func (c *Cache) SetStatus(ctx context.Context, status *domain.UserStatus) error {
	if status == nil {
		return nil
	}
	return c.store(ctx, statusKey(status.UserID), status, c.statusTTL, false)
}

// FillStatus caches a status read from the database unless a writer got there first.
func (c *Cache) FillStatus(ctx context.Context, status *domain.UserStatus) error {
	if status == nil {
		return nil
	}
	return c.store(ctx, statusKey(status.UserID), status, c.statusTTL, true)
}

func (c *Cache) load(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.kv == nil {
		return false, nil
	}

	data, err := c.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, appredis.ErrCacheMiss) {
			return false, nil
		}
		return false, fmt.Errorf("get cached %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}

	return true, nil
}

// store writes value under key. With onlyIfAbsent a value already present wins, so a
// read that raced with a write cannot replace the fresher entry.
func (c *Cache) store(ctx context.Context, key string, value any, ttl time.Duration, onlyIfAbsent bool) error {
	if c == nil || c.kv == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s for cache: %w", key, err)
	}

	if onlyIfAbsent {
		if _, err := c.kv.SetNX(ctx, key, payload, ttl); err != nil {
			return fmt.Errorf("fill cached %s: %w", key, err)
		}
		return nil
	}

	if err := c.kv.Set(ctx, key, payload, ttl); err != nil {
		return fmt.Errorf("set cached %s: %w", key, err)
	}

	return nil
}

func profileKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func statusKey(userID int64) string {
	return fmt.Sprintf("user_status:%d", userID)
}
