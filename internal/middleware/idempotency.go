package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kitwiz/miniapp-backend/internal/idempotency"
	"github.com/kitwiz/miniapp-backend/pkg/logger"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	maxIdempotentBody = 1 << 20
)

var errNotCacheable = errors.New("response not cacheable")

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Idempotency replays the stored response of a request retried with the same Idempotency-Key
// and the same body. The body is part of the key, so callers reusing a key for a different
// payload never see each other's responses. Requests without the header, and every request
// when manager is nil, pass through.
// Server errors are not remembered so the client may retry them.
func Idempotency(manager idempotency.Manager, ttl time.Duration, log *slog.Logger) func(http.Handler) http.Handler {
	if manager == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(IdempotencyKeyHeader)
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			reqLog := logger.With(r.Context(), log).With(slog.String("idempotency_key", clientKey))

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody+1))
			if err != nil || len(body) > maxIdempotentBody {
				reqLog.Debug("idempotent request body rejected", slog.Int("read", len(body)), slog.Any("error", err))
				writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := idempotency.GenerateKey(r.Method, r.URL.Path, clientKey, string(body))

			var rec *bufferedWriter
			result, err := manager.Execute(r.Context(), key, ttl, func(_ context.Context) ([]byte, error) {
				rec = newBufferedWriter()
				next.ServeHTTP(rec, r)
				if rec.status >= http.StatusInternalServerError {
					return nil, errNotCacheable
				}
				return json.Marshal(storedResponse{
					Status:      rec.status,
					ContentType: rec.Header().Get("Content-Type"),
					Body:        rec.body.Bytes(),
				})
			})

			switch {
			case errors.Is(err, idempotency.ErrRequestInProgress):
				writeJSON(w, http.StatusConflict, map[string]any{
					"success": false,
					"error":   "request with this Idempotency-Key is already in progress",
				})
			case err != nil && rec == nil:
				reqLog.Warn("idempotency store unavailable, serving without it", slog.Any("error", err))
				next.ServeHTTP(w, r)
			case err != nil:
				if !errors.Is(err, errNotCacheable) {
					reqLog.Warn("idempotent response not recorded", slog.Any("error", err))
				}
				rec.flushTo(w)
			case result.FromCache:
				var stored storedResponse
				if err := json.Unmarshal(result.Response, &stored); err != nil {
					reqLog.Error("stored idempotent response is corrupt", slog.Any("error", err))
					writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "internal error"})
					return
				}
				if stored.ContentType != "" {
					w.Header().Set("Content-Type", stored.ContentType)
				}
				w.Header().Set(ReplayedHeader, "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
			default:
				rec.flushTo(w)
			}
		})
	}
}

// bufferedWriter holds a response in memory until it is known whether to store it.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(status int) { b.status = status }

func (b *bufferedWriter) Write(p []byte) (int, error) { return b.body.Write(p) }

func (b *bufferedWriter) flushTo(w http.ResponseWriter) {
	for key, values := range b.header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(b.status)
	_, _ = b.body.WriteTo(w)
}
