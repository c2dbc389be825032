// Package keyboard renders the bot's inline keyboards.
package keyboard

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"
)

// Builder creates the keyboards attached to bot replies.
type Builder struct {
	webAppURL string
	log       *slog.Logger
}

func NewBuilder(webAppURL string, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{webAppURL: webAppURL, log: log}
}

// OpenApp returns a single-button keyboard launching the mini-app, or nil when
// no usable web app URL is configured.
func (b *Builder) OpenApp(label string) *telebot.ReplyMarkup {
	if b == nil || b.webAppURL == "" {
		return nil
	}

	markup, err := NewInlineKeyboard().
		AddRow(InlineButton{Text: label, WebAppURL: b.webAppURL}).
		Build()
	if err != nil {
		b.log.Warn("open app keyboard not rendered", slog.Any("error", err))
		return nil
	}

	return markup
}
