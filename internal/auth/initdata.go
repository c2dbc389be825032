// Package auth authenticates mini-app requests from Telegram WebApp init-data.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"

	"github.com/kitwiz/miniapp-backend/internal/domain"
)

var (
	ErrMissingInitData = errors.New("init data is missing")
	ErrInvalidInitData = errors.New("init data is invalid")
	ErrUnknownUser     = errors.New("init data user is not registered")
)

// UserFinder resolves a Telegram user id to a registered user.
type UserFinder interface {
	Get(ctx context.Context, id int64) (*domain.User, error)
}

// Authenticator validates init-data signatures and resolves the signed user.
type Authenticator struct {
	botToken string
	expIn    time.Duration
	users    UserFinder
	notFound error
	log      *slog.Logger
}

// NewAuthenticator builds an Authenticator. expIn of zero disables the auth_date expiry check.
// notFound is the error users returns for an unregistered id.
func NewAuthenticator(botToken string, expIn time.Duration, users UserFinder, notFound error, log *slog.Logger) *Authenticator {
	if log == nil {
		log = slog.Default()
	}

	return &Authenticator{
		botToken: botToken,
		expIn:    expIn,
		users:    users,
		notFound: notFound,
		log:      log,
	}
}

// Authenticate verifies raw and returns the user it was signed for. Every rejection wraps
// ErrMissingInitData, ErrInvalidInitData or ErrUnknownUser; other errors are lookup failures.
func (a *Authenticator) Authenticate(ctx context.Context, raw string) (*domain.User, error) {
	if raw == "" {
		return nil, ErrMissingInitData
	}

	if err := initdata.Validate(raw, a.botToken, a.expIn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}

	data, err := initdata.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}

	if data.User.ID == 0 {
		return nil, fmt.Errorf("%w: user is absent", ErrInvalidInitData)
	}

	user, err := a.users.Get(ctx, data.User.ID)
	if err != nil {
		if a.notFound != nil && errors.Is(err, a.notFound) {
			return nil, fmt.Errorf("%w: id %d", ErrUnknownUser, data.User.ID)
		}
		return nil, fmt.Errorf("resolve init data user: %w", err)
	}

	return user, nil
}

// IsRejection reports whether err means the request carries no acceptable identity.
func IsRejection(err error) bool {
	return errors.Is(err, ErrMissingInitData) ||
		errors.Is(err, ErrInvalidInitData) ||
		errors.Is(err, ErrUnknownUser)
}

type userKey struct{}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the authenticated user stored in ctx, if any.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey{}).(*domain.User)
	return user, ok && user != nil
}
