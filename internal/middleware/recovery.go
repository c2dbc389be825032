package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	apperrors "github.com/kitwiz/miniapp-backend/internal/errors"
)

// Recovery turns a handler panic into a 500 response reported through errHandler.
func Recovery(errHandler *apperrors.Handler, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.Error("panic recovered in http handler",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)

				status, _ := errHandler.Handle(r.Context(), apperrors.NewInternalError(fmt.Errorf("panic: %v", rec)))
				writeJSON(w, status, map[string]any{"success": false, "error": "internal error"})
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
