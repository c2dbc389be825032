package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests labeled by route, method and status code",
		},
		[]string{"route", "method", "status"},
	)
	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	botUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of bot updates labeled by command and status",
		},
		[]string{"command", "status"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
	advertsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adverts_created_total",
			Help: "Total number of adverts created",
		},
	)
	chatsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chats_created_total",
			Help: "Total number of chats created (reused chats excluded)",
		},
	)
	messagesSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of chat messages sent",
		},
	)
)

// RecordRequest increments HTTP counters and records duration.
func RecordRequest(route, method string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}

	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordBotUpdate counts a processed bot update.
func RecordBotUpdate(command, status string) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botUpdatesTotal.WithLabelValues(command, status).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(code, severity string) {
	if code == "" {
		code = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(code, severity).Inc()
}

// AdvertCreated counts a new advert.
func AdvertCreated() { advertsCreatedTotal.Inc() }

// ChatCreated counts a newly created chat.
func ChatCreated() { chatsCreatedTotal.Inc() }

// MessageSent counts a stored chat message.
func MessageSent() { messagesSentTotal.Inc() }

// Handler exposes the default registry in Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
