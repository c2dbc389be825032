package keyboard

import (
	"errors"
	"fmt"
	"net/url"

	telebot "gopkg.in/telebot.v3"
)

// CallbackDataLimitBytes is the Telegram limit for inline callback payloads.
const CallbackDataLimitBytes = 64

// InlineButton is a button definition: either a callback (Data) or a Mini App launcher (WebAppURL).
type InlineButton struct {
	Text      string
	Data      string
	WebAppURL string
}

// InlineKeyboardBuilder accumulates rows of InlineButton definitions before rendering telebot markup.
type InlineKeyboardBuilder struct {
	rows [][]InlineButton
}

func NewInlineKeyboard() *InlineKeyboardBuilder {
	return &InlineKeyboardBuilder{rows: make([][]InlineButton, 0)}
}

// AddRow appends a new row. Empty rows are ignored.
func (b *InlineKeyboardBuilder) AddRow(buttons ...InlineButton) *InlineKeyboardBuilder {
	if len(buttons) == 0 {
		return b
	}

	row := make([]InlineButton, len(buttons))
	copy(row, buttons)
	b.rows = append(b.rows, row)
	return b
}

// Build validates the buttons and renders them as inline markup.
func (b *InlineKeyboardBuilder) Build() (*telebot.ReplyMarkup, error) {
	if len(b.rows) == 0 {
		return nil, errors.New("keyboard has no buttons")
	}

	inlineKeyboard := make([][]telebot.InlineButton, len(b.rows))
	for i, row := range b.rows {
		inlineKeyboard[i] = make([]telebot.InlineButton, len(row))
		for j, btn := range row {
			rendered, err := render(btn)
			if err != nil {
				return nil, fmt.Errorf("row %d button %d: %w", i, j, err)
			}
			inlineKeyboard[i][j] = rendered
		}
	}

	return &telebot.ReplyMarkup{InlineKeyboard: inlineKeyboard}, nil
}

func render(btn InlineButton) (telebot.InlineButton, error) {
	if btn.Text == "" {
		return telebot.InlineButton{}, errors.New("button text is empty")
	}

	switch {
	case btn.WebAppURL != "" && btn.Data != "":
		return telebot.InlineButton{}, errors.New("button cannot carry both callback data and a web app")
	case btn.WebAppURL != "":
		u, err := url.Parse(btn.WebAppURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return telebot.InlineButton{}, fmt.Errorf("web app url %q must be an absolute https url", btn.WebAppURL)
		}
		return telebot.InlineButton{Text: btn.Text, WebApp: &telebot.WebApp{URL: btn.WebAppURL}}, nil
	case len(btn.Data) > CallbackDataLimitBytes:
		return telebot.InlineButton{}, fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(btn.Data))
	case btn.Data == "":
		return telebot.InlineButton{}, errors.New("button has neither callback data nor a web app")
	default:
		return telebot.InlineButton{Text: btn.Text, Data: btn.Data}, nil
	}
}
