// Package bot wires the Telegram bot that receives updates through the API's webhook endpoint.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/kitwiz/miniapp-backend/internal/bot/handlers"
	"github.com/kitwiz/miniapp-backend/internal/bot/keyboard"
	apperrors "github.com/kitwiz/miniapp-backend/internal/errors"
	"github.com/kitwiz/miniapp-backend/internal/i18n"
	"github.com/kitwiz/miniapp-backend/pkg/config"
)

// WebhookPath is where Telegram delivers updates.
const WebhookPath = "/webhook"

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot    *telebot.Bot
	cfg        config.BotConfig
	log        *slog.Logger
	router     *Router
	keyboard   *keyboard.Builder
	errHandler *apperrors.Handler
}

// New builds the bot. It never polls: updates arrive via ProcessUpdate from the webhook handler,
// and are handled synchronously so the webhook call returns after the reply is sent.
func New(
	cfg config.BotConfig,
	log *slog.Logger,
	users handlers.UserRegistrar,
	translations *i18n.Manager,
	errHandler *apperrors.Handler,
) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	tb, err := telebot.NewBot(telebot.Settings{
		Token:       cfg.Token,
		URL:         cfg.APIURL,
		Offline:     true,
		Synchronous: true,
		OnError: func(err error, c telebot.Context) {
			log.Error("telebot error", slog.Any("error", err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	b := &Bot{
		telebot:    tb,
		cfg:        cfg,
		log:        log,
		router:     NewRouter(log),
		keyboard:   keyboard.NewBuilder(cfg.WebAppURL, log),
		errHandler: errHandler,
	}

	b.setupRouter(users, translations)
	b.telebot.Handle(telebot.OnText, b.router.Route)

	return b, nil
}

func (b *Bot) setupRouter(users handlers.UserRegistrar, translations *i18n.Manager) {
	b.router.Use(RecoveryMiddleware(b.log, b.errHandler, translations))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler, translations))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(RegistrationMiddleware(users, b.log))

	b.router.RegisterCommand(CommandStart, handlers.NewStartHandler(b.keyboard, translations, b.log))
	b.router.RegisterCommand(CommandHelp, handlers.NewHelpHandler(b.keyboard, translations))
	b.router.SetDefault(handlers.NewHelpHandler(b.keyboard, translations))
}

// ProcessUpdate handles one update delivered by the webhook.
func (b *Bot) ProcessUpdate(u telebot.Update) {
	b.telebot.ProcessUpdate(u)
}

// SecretToken is the expected webhook secret header value; empty disables the check.
func (b *Bot) SecretToken() string {
	return b.cfg.WebhookSecret
}

// RegisterWebhook points Telegram at {webhook_url}/webhook, retrying transient API failures.
func (b *Bot) RegisterWebhook(ctx context.Context) error {
	if b.cfg.WebhookURL == "" {
		return fmt.Errorf("bot.webhook_url is not configured")
	}

	hook := &telebot.Webhook{
		Endpoint:       &telebot.WebhookEndpoint{PublicURL: strings.TrimRight(b.cfg.WebhookURL, "/") + WebhookPath},
		SecretToken:    b.cfg.WebhookSecret,
		AllowedUpdates: []string{"message"},
	}

	err := apperrors.WithRetry(ctx, func() error {
		if err := b.telebot.SetWebhook(hook); err != nil {
			return apperrors.NewExternalAPIError("telegram setWebhook", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	b.log.Info("webhook registered", slog.String("url", hook.Endpoint.PublicURL))
	return nil
}

// Ping checks that the Bot API accepts the token.
func (b *Bot) Ping() error {
	if _, err := b.telebot.Raw("getMe", map[string]string{}); err != nil {
		return fmt.Errorf("bot api getMe: %w", err)
	}
	return nil
}
