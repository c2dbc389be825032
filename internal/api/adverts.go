package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kitwiz/miniapp-backend/internal/advert"
	"github.com/kitwiz/miniapp-backend/internal/domain"
	apperrors "github.com/kitwiz/miniapp-backend/internal/errors"
)

type createAdvertRequest struct {
	OwnerID     int64   `json:"owner_id"`
	OwnerName   string  `json:"owner_name"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       int64   `json:"price"`
	Deposit     int64   `json:"deposit"`
	Period      *string `json:"period"`
	Category    string  `json:"category"`
	Available   *bool   `json:"available"`
}

func (h *handler) listAdverts(w http.ResponseWriter, r *http.Request) {
	adverts, err := h.adverts.List(r.Context())
	if err != nil {
		h.failAdvert(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"adverts": newAdvertResponses(adverts)})
}

func (h *handler) getAdvert(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		h.failAdvert(w, r, apperrors.NewValidationError("Invalid ID format"))
		return
	}

	a, err := h.adverts.Get(r.Context(), id)
	if err != nil {
		h.failAdvert(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"advert": newAdvertResponse(*a)})
}

func (h *handler) listUserAdverts(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("owner_id")
	if raw == "" {
		h.failAdvert(w, r, apperrors.NewValidationError("owner_id parameter is required"))
		return
	}
	ownerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.failAdvert(w, r, apperrors.NewValidationError("Invalid owner_id format"))
		return
	}

	adverts, err := h.adverts.ListByOwner(r.Context(), ownerID)
	if err != nil {
		h.failAdvert(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"adverts": newAdvertResponses(adverts)})
}

func (h *handler) createAdvert(w http.ResponseWriter, r *http.Request) {
	var req createAdvertRequest
	if err := decodeJSON(r, &req); err != nil {
		h.failAdvert(w, r, apperrors.NewValidationError("Invalid JSON"))
		return
	}

	a, err := h.adverts.Create(r.Context(), advert.CreateInput{
		OwnerID:     req.OwnerID,
		OwnerName:   req.OwnerName,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Deposit:     req.Deposit,
		Period:      req.Period,
		Category:    req.Category,
		Available:   req.Available,
	})
	if err != nil {
		h.failAdvert(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Advert created successfully",
		"advert":  newAdvertResponse(*a),
	})
}

func (h *handler) updateAdvert(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		h.failAdvert(w, r, apperrors.NewValidationError("Invalid ID format"))
		return
	}

	var fields map[string]json.RawMessage
	if err := decodeJSON(r, &fields); err != nil {
		h.failAdvert(w, r, apperrors.NewValidationError("Invalid JSON"))
		return
	}

	patch, err := parseAdvertPatch(fields)
	if err != nil {
		h.failAdvert(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	a, err := h.adverts.Update(r.Context(), id, patch)
	if err != nil {
		h.failAdvert(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Advert updated successfully",
		"advert":  newAdvertResponse(*a),
	})
}

func (h *handler) deleteAdvert(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		h.failAdvert(w, r, apperrors.NewValidationError("ID parameter is required"))
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.failAdvert(w, r, apperrors.NewValidationError("Invalid ID format"))
		return
	}

	if err := h.adverts.Delete(r.Context(), id); err != nil {
		h.failAdvert(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Advert deleted successfully",
		"deleted_id": id,
	})
}

// parseAdvertPatch picks the updatable fields out of a JSON object. Other keys are ignored.
func parseAdvertPatch(fields map[string]json.RawMessage) (domain.AdvertPatch, error) {
	var p domain.AdvertPatch

	targets := []struct {
		name string
		dst  any
	}{
		{"title", &p.Title},
		{"description", &p.Description},
		{"price", &p.Price},
		{"period", &p.Period},
		{"deposit", &p.Deposit},
		{"category", &p.Category},
		{"available", &p.Available},
	}

	for _, t := range targets {
		raw, ok := fields[t.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, t.dst); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				return p, fmt.Errorf("%s has invalid type %s", t.name, typeErr.Value)
			}
			return p, fmt.Errorf("%s is invalid", t.name)
		}
	}

	return p, nil
}
