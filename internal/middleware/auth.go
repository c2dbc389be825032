package middleware

import (
	"log/slog"
	"net/http"

	"github.com/kitwiz/miniapp-backend/internal/auth"
	apperrors "github.com/kitwiz/miniapp-backend/internal/errors"
	"github.com/kitwiz/miniapp-backend/pkg/logger"
)

// InitDataHeader carries the raw Telegram WebApp init-data.
const InitDataHeader = "initData"

// InitDataAuth admits only requests whose initData header resolves to a registered user.
// Every rejection is a bare 401 so callers cannot tell the causes apart.
func InitDataAuth(authenticator *auth.Authenticator, errHandler *apperrors.Handler, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticator.Authenticate(r.Context(), r.Header.Get(InitDataHeader))
			if err != nil {
				if auth.IsRejection(err) {
					logger.With(r.Context(), log).Debug("init data rejected", slog.Any("error", err))
					writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
					return
				}

				status, msg := errHandler.Handle(r.Context(), apperrors.NewDatabaseError(err))
				writeJSON(w, status, map[string]string{"error": msg})
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}
