// Package api exposes the mini-app HTTP API.
package api

import (
	"log/slog"
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	telebot "gopkg.in/telebot.v3"

	"github.com/kitwiz/miniapp-backend/internal/advert"
	"github.com/kitwiz/miniapp-backend/internal/auth"
	"github.com/kitwiz/miniapp-backend/internal/chat"
	apperrors "github.com/kitwiz/miniapp-backend/internal/errors"
	"github.com/kitwiz/miniapp-backend/internal/i18n"
	"github.com/kitwiz/miniapp-backend/internal/idempotency"
	"github.com/kitwiz/miniapp-backend/internal/lifecycle"
	"github.com/kitwiz/miniapp-backend/internal/middleware"
	"github.com/kitwiz/miniapp-backend/pkg/logger"
	"github.com/kitwiz/miniapp-backend/pkg/metrics"
)

// DefaultIdempotencyTTL is how long a send-message response is replayable.
const DefaultIdempotencyTTL = 24 * time.Hour

// UpdateProcessor consumes webhook updates.
type UpdateProcessor interface {
	ProcessUpdate(u telebot.Update)
	SecretToken() string
}

// Deps are the collaborators the API is built from. Bot, Idempotency and Health are optional.
type Deps struct {
	Adverts        *advert.Service
	Chats          *chat.Service
	Auth           *auth.Authenticator
	Bot            UpdateProcessor
	Idempotency    idempotency.Manager
	IdempotencyTTL time.Duration
	Health         lifecycle.HealthChecker
	Translations   *i18n.Manager
	ErrHandler     *apperrors.Handler
	Location       *time.Location
	AllowedOrigins []string
	SentryEnabled  bool
	Log            *slog.Logger
}

type handler struct {
	adverts      *advert.Service
	chats        *chat.Service
	bot          UpdateProcessor
	health       lifecycle.HealthChecker
	translations *i18n.Manager
	errHandler   *apperrors.Handler
	validate     *validator.Validate
	loc          *time.Location
	log          *slog.Logger
}

// NewRouter assembles routes and middleware into a single http.Handler.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.IdempotencyTTL <= 0 {
		d.IdempotencyTTL = DefaultIdempotencyTTL
	}

	h := &handler{
		adverts:      d.Adverts,
		chats:        d.Chats,
		bot:          d.Bot,
		health:       d.Health,
		translations: d.Translations,
		errHandler:   d.ErrHandler,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		loc:          d.Location,
		log:          d.Log,
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(h.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)
	r.Use(middleware.Recovery(d.ErrHandler, d.Log))
	r.Use(middleware.Logging(d.Log))

	r.HandleFunc("/healthz", h.liveness).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.readiness).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/webhook", h.webhook).Methods(http.MethodPost)

	ads := r.PathPrefix("/api/advert").Subrouter()
	ads.HandleFunc("/get/all", h.listAdverts).Methods(http.MethodGet)
	ads.HandleFunc("/get/user-adverts", h.listUserAdverts).Methods(http.MethodGet)
	ads.HandleFunc("/get/{id}", h.getAdvert).Methods(http.MethodGet)
	ads.HandleFunc("/create", h.createAdvert).Methods(http.MethodPost)
	ads.HandleFunc("/update/{id}", h.updateAdvert).Methods(http.MethodPut)
	ads.HandleFunc("/delete", h.deleteAdvert).Methods(http.MethodDelete)

	api := r.PathPrefix("/api").Subrouter()
	// Literal segments go first so "search" and "create" are not taken for a user id.
	api.HandleFunc("/chats/search/{user_id}", h.searchChats).Methods(http.MethodGet)
	api.HandleFunc("/chats/create", h.createChat).Methods(http.MethodPost)
	api.HandleFunc("/chats/{chat_id}/messages/{user_id}", h.listMessages).Methods(http.MethodGet)
	api.HandleFunc("/chats/{user_id}", h.listChats).Methods(http.MethodGet)
	api.Handle("/messages/send",
		middleware.Idempotency(d.Idempotency, d.IdempotencyTTL, d.Log)(http.HandlerFunc(h.sendMessage)),
	).Methods(http.MethodPost)
	api.HandleFunc("/messages/mark-read", h.markRead).Methods(http.MethodPost)
	api.HandleFunc("/user-status/update", h.updateStatus).Methods(http.MethodPost)
	api.HandleFunc("/user-status/{user_id}", h.getStatus).Methods(http.MethodGet)

	users := r.PathPrefix("/api/users").Subrouter()
	users.Use(middleware.InitDataAuth(d.Auth, d.ErrHandler, d.Log))
	users.HandleFunc("/get", h.currentUser).Methods(http.MethodGet)

	var root http.Handler = r
	if d.SentryEnabled {
		root = sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(root)
	}
	root = logger.Middleware(root)
	root = middleware.CORS(d.AllowedOrigins)(root)

	return root
}
