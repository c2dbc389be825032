package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jmoiron/sqlx"

	"github.com/kitwiz/miniapp-backend/internal/advert"
	"github.com/kitwiz/miniapp-backend/internal/api"
	"github.com/kitwiz/miniapp-backend/internal/auth"
	"github.com/kitwiz/miniapp-backend/internal/bot"
	"github.com/kitwiz/miniapp-backend/internal/chat"
	"github.com/kitwiz/miniapp-backend/internal/database"
	apperrors "github.com/kitwiz/miniapp-backend/internal/errors"
	"github.com/kitwiz/miniapp-backend/internal/health"
	"github.com/kitwiz/miniapp-backend/internal/i18n"
	"github.com/kitwiz/miniapp-backend/internal/idempotency"
	"github.com/kitwiz/miniapp-backend/internal/lifecycle"
	"github.com/kitwiz/miniapp-backend/internal/repository"
	"github.com/kitwiz/miniapp-backend/internal/user"
	"github.com/kitwiz/miniapp-backend/internal/usercache"
	"github.com/kitwiz/miniapp-backend/pkg/config"
	"github.com/kitwiz/miniapp-backend/pkg/graceful"
	"github.com/kitwiz/miniapp-backend/pkg/logger"
	appredis "github.com/kitwiz/miniapp-backend/pkg/redis"
)

// app holds the process-wide resources released on shutdown.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *sqlx.DB
	redis    *appredis.Client
	bot      *bot.Bot
	monitor  *lifecycle.Monitor
	shutdown *lifecycle.Shutdown
	handler  http.Handler
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kitwiz backend: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			SampleRate:       cfg.Sentry.SampleRate,
			AttachStacktrace: true,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
	}

	log := logger.New(*cfg)
	log.Info("starting kitwiz backend", slog.String("port", cfg.Server.Port))

	config.Watch(v, log.Logger, func(next *config.Config) {
		log.SetLevel(next.Logger.Level)
	})

	a, err := build(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", slog.Any("error", err))
		if a != nil {
			_ = a.shutdown.Execute(context.Background())
		}
		return err
	}

	return a.serve(ctx)
}

// build wires every component. On error the returned app, if any, holds what was already opened.
func build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		log:      log,
		shutdown: lifecycle.NewShutdown(log.Logger),
	}

	a.shutdown.Register("logger", func(context.Context) error { return log.Close() })
	if cfg.Sentry.Enabled {
		a.shutdown.Register("sentry", func(context.Context) error {
			sentry.Flush(2 * time.Second)
			return nil
		})
	}

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return a, err
	}
	a.db = db
	a.shutdown.Register("database", func(context.Context) error { return db.Close() })

	if cfg.Database.Migrate {
		if err := database.NewMigrator(db.DB, log.Logger).Apply(ctx, database.Migrations()); err != nil {
			return a, fmt.Errorf("apply migrations: %w", err)
		}
	}

	var kv appredis.KV
	if cfg.Redis.Enabled {
		client, err := appredis.New(ctx, cfg.Redis.Config)
		if err != nil {
			return a, err
		}
		a.redis = client
		kv = appredis.NewMetricsClient(client)
		a.shutdown.Register("redis", func(context.Context) error { return client.Close() })
	}

	translations, err := i18n.Load(cfg.I18n.DefaultLang)
	if err != nil {
		return a, fmt.Errorf("load translations: %w", err)
	}

	errHandler := apperrors.NewHandler(log.Logger, cfg.Sentry.Enabled)

	var cache *usercache.Cache
	var idem idempotency.Manager
	if kv != nil {
		cache = usercache.NewCache(kv)
		idem = idempotency.NewManager(idempotency.NewRedisStore(kv, log.Logger), log.Logger)
	}

	users := user.NewService(repository.NewUserRepository(db, log.Logger), cache, log.Logger)
	adverts := advert.NewService(repository.NewAdvertRepository(db, log.Logger), users, log.Logger)
	chats := chat.NewService(
		repository.NewChatRepository(db, log.Logger),
		repository.NewMessageRepository(db, log.Logger),
		repository.NewStatusRepository(db, log.Logger),
		cache,
		log.Logger,
	)

	b, err := bot.New(cfg.Bot, log.Logger, users, translations, errHandler)
	if err != nil {
		return a, err
	}
	a.bot = b

	if cfg.Bot.SetWebhook {
		if err := b.RegisterWebhook(ctx); err != nil {
			return a, err
		}
	}

	checker := health.NewChecker(log.Logger)
	checker.AddCheck("database", health.NewDBChecker(db.DB))
	if a.redis != nil {
		checker.AddCheck("redis", health.NewRedisChecker(a.redis))
	}
	checker.AddOptionalCheck("telegram", health.NewTelegramChecker(b))
	a.monitor = lifecycle.NewMonitor(checker, log.Logger)

	a.handler = api.NewRouter(api.Deps{
		Adverts:        adverts,
		Chats:          chats,
		Auth:           auth.NewAuthenticator(cfg.Bot.Token, cfg.Auth.InitDataTTL, users, user.ErrNotFound, log.Logger),
		Bot:            b,
		Idempotency:    idem,
		Health:         a.monitor,
		Translations:   translations,
		ErrHandler:     errHandler,
		Location:       cfg.Chat.Location(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SentryEnabled:  cfg.Sentry.Enabled,
		Log:            log.Logger,
	})

	return a, nil
}

// serve runs the HTTP server until ctx is canceled or the server fails, then shuts down.
func (a *app) serve(ctx context.Context) error {
	srv := graceful.NewServer(a.log.Logger, &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           a.handler,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
	}, a.cfg.Server.ShutdownTimeout)

	serverCtx, stopServer := context.WithCancel(context.Background())
	defer stopServer()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe(serverCtx) }()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		a.shutdown.RegisterPhase(lifecycle.PhaseDrain, "http", func(context.Context) error {
			a.monitor.Drain()
			stopServer()
			return <-serveErr
		})
	case runErr = <-serveErr:
		a.log.Error("http server stopped", slog.Any("error", runErr))
	}

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*timeout)
	defer cancel()

	if err := a.shutdown.Execute(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}

	return runErr
}
