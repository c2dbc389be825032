package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kitwiz/miniapp-backend/internal/chat"
	apperrors "github.com/kitwiz/miniapp-backend/internal/errors"
	"github.com/kitwiz/miniapp-backend/internal/i18n"
	"github.com/kitwiz/miniapp-backend/pkg/logger"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("empty request body")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Debug("response write failed", slog.Any("error", err))
	}
}

// failAdvert writes the advert envelope {"error": ...}.
func (h *handler) failAdvert(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := h.errHandler.Handle(r.Context(), err)
	writeJSON(w, status, map[string]string{"error": msg})
}

// failChat writes the chat envelope {"success": false, "error": ...}, localizing domain sentinels.
func (h *handler) failChat(w http.ResponseWriter, r *http.Request, err error) {
	tr := h.translator(r)

	switch {
	case errors.Is(err, chat.ErrChatNotFound):
		err = apperrors.NewNotFoundError(tr.T("chat.not_found"))
	case errors.Is(err, chat.ErrStatusNotFound):
		err = apperrors.NewNotFoundError(tr.T("status.user_not_found"))
	}

	status, msg := h.errHandler.Handle(r.Context(), err)
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func (h *handler) translator(r *http.Request) i18n.Translator {
	return h.translations.Negotiate(r.Header.Get("Accept-Language"))
}

func (h *handler) logFor(r *http.Request) *slog.Logger {
	return logger.With(r.Context(), h.log)
}

// decodeJSON reads a single JSON value from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}
