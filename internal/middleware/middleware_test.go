package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitwiz/miniapp-backend/internal/idempotency"
	appredis "github.com/kitwiz/miniapp-backend/pkg/redis"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newIdempotencyManager(t *testing.T) idempotency.Manager {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := idempotency.NewRedisStore(appredis.Wrap(rdb), testLogger())
	return idempotency.NewManager(store, testLogger())
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"success":true,"n":`+strconv.Itoa(int(n))+`}`)
	})

	h := Idempotency(newIdempotencyManager(t), time.Hour, testLogger())(handler)

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/messages/send", strings.NewReader(`{}`))
		if key != "" {
			req.Header.Set(IdempotencyKeyHeader, key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send("abc")
	second := send("abc")

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))

	send("other")
	send("")
	send("")
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestIdempotency_KeyIsScopedToBody(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	h := Idempotency(newIdempotencyManager(t), time.Hour, testLogger())(handler)

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/messages/send", strings.NewReader(body))
		req.Header.Set(IdempotencyKeyHeader, "shared-key")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	fromAnna := send(`{"chat_id":1,"sender_id":10,"text":"hi"}`)
	fromBoris := send(`{"chat_id":1,"sender_id":20,"text":"hi"}`)
	annaAgain := send(`{"chat_id":1,"sender_id":10,"text":"hi"}`)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.JSONEq(t, `{"chat_id":1,"sender_id":10,"text":"hi"}`, fromAnna.Body.String())
	assert.JSONEq(t, `{"chat_id":1,"sender_id":20,"text":"hi"}`, fromBoris.Body.String())
	assert.Empty(t, fromBoris.Header().Get(ReplayedHeader))
	assert.Equal(t, "true", annaAgain.Header().Get(ReplayedHeader))
	assert.Equal(t, fromAnna.Body.String(), annaAgain.Body.String())
}

func TestIdempotency_ServerErrorsAreNotStored(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	h := Idempotency(newIdempotencyManager(t), time.Hour, testLogger())(handler)

	for _, want := range []int{http.StatusInternalServerError, http.StatusOK, http.StatusOK} {
		req := httptest.NewRequest(http.MethodPost, "/api/messages/send", nil)
		req.Header.Set(IdempotencyKeyHeader, "retry-me")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code)
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotency_NilManagerPassesThrough(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	h := Idempotency(nil, time.Hour, testLogger())(handler)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(IdempotencyKeyHeader, "k")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/users/get", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()

		CORS([]string{"https://app.example.com"})(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "initData")
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()

		CORS([]string{"https://app.example.com"})(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://any.example.com")
		rec := httptest.NewRecorder()

		CORS(nil)(next).ServeHTTP(rec, req)

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRecovery(t *testing.T) {
	h := Recovery(nil, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"internal error"}`, rec.Body.String())
}

func TestLogging_RecordsStatus(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Logging(testLogger()))
	router.HandleFunc("/api/chats/{user_id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chats/{user_id}", routeTemplate(r))
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chats/5", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
