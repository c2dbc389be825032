// Package health aggregates dependency checks for the readiness endpoint.
package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatusOK = "OK"

	defaultCheckTimeout = 2 * time.Second
)

// Checkable represents a component that can report its health status.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

type entry struct {
	check    Checkable
	critical bool
}

// Checker aggregates health checks for multiple components.
type Checker struct {
	log     *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]entry
}

// NewChecker instantiates a Checker with the provided logger.
func NewChecker(log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		log:     log,
		timeout: defaultCheckTimeout,
		checks:  make(map[string]entry),
	}
}

// AddCheck registers a component whose failure makes the service not ready.
func (c *Checker) AddCheck(name string, check Checkable) {
	c.add(name, check, true)
}

// AddOptionalCheck registers a component that is reported but never blocks readiness.
func (c *Checker) AddOptionalCheck(name string, check Checkable) {
	c.add(name, check, false)
}

func (c *Checker) add(name string, check Checkable, critical bool) {
	if name == "" || check == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = entry{check: check, critical: critical}
}

// Check runs all registered health checks concurrently and returns their statuses.
func (c *Checker) Check(ctx context.Context) map[string]string {
	results, _ := c.run(ctx)
	return results
}

// Ready reports an error naming every failed critical component.
func (c *Checker) Ready(ctx context.Context) error {
	_, failed := c.run(ctx)
	if len(failed) == 0 {
		return nil
	}
	sort.Strings(failed)
	return fmt.Errorf("not ready: %s", strings.Join(failed, "; "))
}

func (c *Checker) run(ctx context.Context) (map[string]string, []string) {
	c.mu.RLock()
	checks := make(map[string]entry, len(c.checks))
	for name, e := range c.checks {
		checks[name] = e
	}
	c.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]string, len(checks))
		failed  []string
	)

	for name, e := range checks {
		wg.Add(1)
		go func(name string, e entry) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			err := e.check.HealthCheck(checkCtx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[name] = err.Error()
				if e.critical {
					failed = append(failed, fmt.Sprintf("%s: %v", name, err))
				}
				c.log.Error("health check failed",
					slog.String("component", name),
					slog.Bool("critical", e.critical),
					slog.Any("error", err),
				)
				return
			}
			results[name] = StatusOK
		}(name, e)
	}

	wg.Wait()
	return results, failed
}

// DBChecker verifies connectivity to a PostgreSQL database.
type DBChecker struct {
	db *sql.DB
}

// NewDBChecker constructs a DBChecker.
func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

// HealthCheck pings the database to ensure it is reachable.
func (c *DBChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.db == nil {
		return sql.ErrConnDone
	}
	return c.db.PingContext(ctx)
}

// Pinger abstracts the subset of redis.Client used for health checks.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker verifies connectivity to a Redis instance.
type RedisChecker struct {
	pinger Pinger
}

// NewRedisChecker constructs a RedisChecker.
func NewRedisChecker(pinger Pinger) *RedisChecker {
	return &RedisChecker{pinger: pinger}
}

// HealthCheck issues a PING command against Redis.
func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.pinger == nil {
		return redis.ErrClosed
	}
	return c.pinger.Ping(ctx).Err()
}

// BotPinger is satisfied by the bot wrapper.
type BotPinger interface {
	Ping() error
}

// DefaultTelegramBackoff is how long a failed Bot API check is reused before retrying.
const DefaultTelegramBackoff = 30 * time.Second

// TelegramChecker verifies that the Bot API accepts our token. After a failure it
// reports the same error without calling Telegram until the backoff has passed, so
// frequent readiness polls do not hammer an API that is already down.
type TelegramChecker struct {
	bot     BotPinger
	backoff time.Duration
	now     func() time.Time

	mu       sync.Mutex
	lastErr  error
	failedAt time.Time
}

// NewTelegramChecker constructs a TelegramChecker with DefaultTelegramBackoff.
func NewTelegramChecker(bot BotPinger) *TelegramChecker {
	return &TelegramChecker{bot: bot, backoff: DefaultTelegramBackoff, now: time.Now}
}

func (c *TelegramChecker) HealthCheck(_ context.Context) error {
	if c == nil || c.bot == nil {
		return errors.New("telegram bot is not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastErr != nil && c.now().Sub(c.failedAt) < c.backoff {
		return c.lastErr
	}

	if err := c.bot.Ping(); err != nil {
		c.lastErr = err
		c.failedAt = c.now()
		return err
	}

	c.lastErr = nil
	return nil
}
