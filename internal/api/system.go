package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	telebot "gopkg.in/telebot.v3"
)

// SecretTokenHeader carries the webhook secret Telegram was registered with.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// webhook feeds a Telegram update to the bot. Telegram retries on non-2xx,
// so handling failures inside the bot are logged and still acknowledged.
func (h *handler) webhook(w http.ResponseWriter, r *http.Request) {
	if h.bot == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "bot is disabled"})
		return
	}

	if secret := h.bot.SecretToken(); secret != "" {
		got := r.Header.Get(SecretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
	}

	var update telebot.Update
	if err := decodeJSON(r, &update); err != nil {
		h.logFor(r).Warn("malformed webhook update", slog.Any("error", err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	h.bot.ProcessUpdate(update)
	w.WriteHeader(http.StatusOK)
}

func (h *handler) liveness(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Liveness(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Readiness(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
}

func (h *handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
}
