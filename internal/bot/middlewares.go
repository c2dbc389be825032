package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/kitwiz/miniapp-backend/internal/bot/handlers"
	apperrors "github.com/kitwiz/miniapp-backend/internal/errors"
	"github.com/kitwiz/miniapp-backend/internal/i18n"
	"github.com/kitwiz/miniapp-backend/pkg/metrics"
)

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperrors.Handler, translations *i18n.Manager) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in bot handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
					errHandler.Handle(context.Background(), apperrors.NewInternalError(fmt.Errorf("panic recovered: %v", r)))

					if sendErr := c.Send(translatorFor(c, translations).T("bot.error")); sendErr != nil {
						log.Error("failed to notify user about panic", slog.Any("error", sendErr))
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware reports handler failures and tells the user something went wrong.
func ErrorHandlingMiddleware(errHandler *apperrors.Handler, translations *i18n.Manager) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			errHandler.Handle(context.Background(), err)
			_ = c.Send(translatorFor(c, translations).T("bot.error"))

			return nil
		}
	}
}

// LoggingMiddleware logs and counts every routed update.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			start := time.Now()
			userID := int64(0)
			if c.Sender() != nil {
				userID = c.Sender().ID
			}

			command := commandOf(c.Text())
			if command == "" {
				command = "text"
			}

			err := next(c)

			status := "ok"
			if err != nil {
				status = "error"
			}
			metrics.RecordBotUpdate(command, status)

			log.Info("handled update",
				slog.Int64("user_id", userID),
				slog.String("command", command),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

// RegistrationMiddleware makes sure the sender has a user record and stores it in the context.
func RegistrationMiddleware(users handlers.UserRegistrar, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			if users == nil || c.Sender() == nil {
				return next(c)
			}

			user, created, err := users.GetOrCreate(context.Background(), c.Sender())
			if err != nil {
				return apperrors.NewDatabaseError(err)
			}
			if created {
				log.Info("registered user from bot", slog.Int64("user_id", user.ID))
			}

			c.Set(handlers.ContextUserKey, user)
			return next(c)
		}
	}
}

func translatorFor(c telebot.Context, translations *i18n.Manager) i18n.Translator {
	lang := ""
	if c != nil && c.Sender() != nil {
		lang = c.Sender().LanguageCode
	}
	return translations.Translator(lang)
}
