package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/kitwiz/miniapp-backend/internal/bot/keyboard"
	"github.com/kitwiz/miniapp-backend/internal/i18n"
)

// NewStartHandler greets the registered user and offers the mini-app button.
func NewStartHandler(kb *keyboard.Builder, translations *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			log.Warn("start handler invoked without sender")
			return nil
		}

		tr := translations.Translator(sender.LanguageCode)

		name := sender.FirstName
		if u := UserFrom(c); u != nil && u.Name != "" {
			name = u.Name
		}

		return reply(c, tr.Tf("bot.start.greeting", name), kb.OpenApp(tr.T("bot.start.open_app")))
	}
}

// NewHelpHandler points the user to the mini-app.
func NewHelpHandler(kb *keyboard.Builder, translations *i18n.Manager) Handler {
	return func(c telebot.Context) error {
		lang := ""
		if sender := c.Sender(); sender != nil {
			lang = sender.LanguageCode
		}
		tr := translations.Translator(lang)

		return reply(c, tr.T("bot.help"), kb.OpenApp(tr.T("bot.start.open_app")))
	}
}

func reply(c telebot.Context, text string, markup *telebot.ReplyMarkup) error {
	if markup == nil {
		return c.Send(text)
	}
	return c.Send(text, markup)
}
