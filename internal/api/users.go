package api

import (
	"net/http"

	"github.com/kitwiz/miniapp-backend/internal/auth"
)

// currentUser returns the profile resolved by the init-data gate.
func (h *handler) currentUser(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(*u)})
}
