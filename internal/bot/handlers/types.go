package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/kitwiz/miniapp-backend/internal/domain"
)

// Handler processes bot commands.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// UserRegistrar finds or registers the Telegram user behind an update.
type UserRegistrar interface {
	GetOrCreate(ctx context.Context, telegramUser *telebot.User) (*domain.User, bool, error)
}

// ContextUserKey is the telebot context slot holding the registered *domain.User.
const ContextUserKey = "user"

// UserFrom returns the user stored by the registration middleware.
func UserFrom(c telebot.Context) *domain.User {
	if c == nil {
		return nil
	}
	u, _ := c.Get(ContextUserKey).(*domain.User)
	return u
}
