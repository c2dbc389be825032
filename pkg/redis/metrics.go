package redis

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	redisRequestsTotal   *prometheus.CounterVec
	redisErrorsTotal     *prometheus.CounterVec
	redisMissesTotal     *prometheus.CounterVec
	redisRequestDuration *prometheus.HistogramVec
)

func init() {
	redisRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_requests_total",
			Help: "Total number of Redis requests by method.",
		},
		[]string{"method"},
	)
	redisErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_errors_total",
			Help: "Total number of Redis errors by method.",
		},
		[]string{"method"},
	)
	redisMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_cache_misses_total",
			Help: "Total number of Redis GET misses.",
		},
		[]string{"method"},
	)
	redisRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_request_duration_seconds",
			Help:    "Redis request latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	prometheus.MustRegister(redisRequestsTotal, redisErrorsTotal, redisMissesTotal, redisRequestDuration)
}

// MetricsClient wraps a KV to collect Prometheus metrics.
type MetricsClient struct {
	next KV
}

var _ KV = (*MetricsClient)(nil)

// NewMetricsClient creates an instrumented Redis client.
func NewMetricsClient(next KV) *MetricsClient {
	return &MetricsClient{next: next}
}

// Get instruments KV.Get. Cache misses are counted separately from errors.
func (m *MetricsClient) Get(ctx context.Context, key string) ([]byte, error) {
	var result []byte
	err := m.observe("get", func() error {
		var getErr error
		result, getErr = m.next.Get(ctx, key)
		return getErr
	})
	return result, err
}

// Set instruments KV.Set.
func (m *MetricsClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.observe("set", func() error {
		return m.next.Set(ctx, key, value, ttl)
	})
}

// SetNX instruments KV.SetNX.
func (m *MetricsClient) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	var stored bool
	err := m.observe("setnx", func() error {
		var setErr error
		stored, setErr = m.next.SetNX(ctx, key, value, ttl)
		return setErr
	})
	return stored, err
}

// Delete instruments KV.Delete.
func (m *MetricsClient) Delete(ctx context.Context, keys ...string) error {
	return m.observe("delete", func() error {
		return m.next.Delete(ctx, keys...)
	})
}

func (m *MetricsClient) observe(method string, fn func() error) error {
	timer := prometheus.NewTimer(redisRequestDuration.WithLabelValues(method))
	err := fn()
	timer.ObserveDuration()
	redisRequestsTotal.WithLabelValues(method).Inc()

	switch {
	case err == nil:
	case errors.Is(err, ErrCacheMiss):
		redisMissesTotal.WithLabelValues(method).Inc()
	default:
		redisErrorsTotal.WithLabelValues(method).Inc()
	}

	return err
}
