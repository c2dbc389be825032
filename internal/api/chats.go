package api

import (
	"net/http"

	"github.com/kitwiz/miniapp-backend/internal/chat"
	apperrors "github.com/kitwiz/miniapp-backend/internal/errors"
)

type sendMessageRequest struct {
	ChatID   int64  `json:"chat_id" validate:"required"`
	Text     string `json:"text" validate:"required"`
	SenderID int64  `json:"sender_id" validate:"required"`
}

type createChatRequest struct {
	AdvertID  int64  `json:"advert_id" validate:"required"`
	User1ID   int64  `json:"user1_id" validate:"required"`
	User2ID   int64  `json:"user2_id" validate:"required"`
	User1Name string `json:"user1_name" validate:"required"`
	User2Name string `json:"user2_name" validate:"required"`
}

type markReadRequest struct {
	ChatID int64 `json:"chat_id" validate:"required"`
	UserID int64 `json:"user_id" validate:"required"`
}

type updateStatusRequest struct {
	UserID   int64  `json:"user_id" validate:"required"`
	UserName string `json:"user_name" validate:"required"`
	Online   bool   `json:"online"`
}

// bindChatRequest decodes and validates a chat body. requiredKey names the message
// shown when a required field is missing.
func (h *handler) bindChatRequest(w http.ResponseWriter, r *http.Request, dst any, requiredKey string) bool {
	tr := h.translator(r)

	if err := decodeJSON(r, dst); err != nil {
		h.failChat(w, r, apperrors.NewValidationError(tr.T("request.invalid_json")))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.failChat(w, r, apperrors.NewValidationError(tr.T(requiredKey)))
		return false
	}
	return true
}

func (h *handler) userIDVar(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := pathInt64(r, "user_id")
	if err != nil {
		h.failChat(w, r, apperrors.NewValidationError(h.translator(r).T("chat.invalid_user_id")))
		return 0, false
	}
	return id, true
}

func (h *handler) listChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDVar(w, r)
	if !ok {
		return
	}

	summaries, err := h.chats.ListChats(r.Context(), userID)
	if err != nil {
		h.failChat(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"chats":   newChatListItems(summaries, h.translator(r), h.loc),
	})
}

func (h *handler) searchChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDVar(w, r)
	if !ok {
		return
	}

	summaries, err := h.chats.SearchChats(r.Context(), userID, r.URL.Query().Get("query"))
	if err != nil {
		h.failChat(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"chats":   newChatListItems(summaries, h.translator(r), h.loc),
	})
}

func (h *handler) listMessages(w http.ResponseWriter, r *http.Request) {
	chatID, err := pathInt64(r, "chat_id")
	if err != nil {
		h.failChat(w, r, apperrors.NewValidationError(h.translator(r).T("chat.invalid_chat_id")))
		return
	}
	userID, ok := h.userIDVar(w, r)
	if !ok {
		return
	}

	msgs, err := h.chats.Messages(r.Context(), chatID, userID)
	if err != nil {
		h.failChat(w, r, err)
		return
	}

	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, newMessageResponse(m, userID, h.loc))
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "messages": out})
}

func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !h.bindChatRequest(w, r, &req, "chat.send_required") {
		return
	}

	msg, err := h.chats.Send(r.Context(), req.ChatID, req.SenderID, req.Text)
	if err != nil {
		h.failChat(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": newMessageResponse(*msg, req.SenderID, h.loc),
	})
}

func (h *handler) createChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if !h.bindChatRequest(w, r, &req, "chat.create_required") {
		return
	}

	c, created, err := h.chats.CreateOrReuse(r.Context(), chat.CreateInput{
		AdvertID:  req.AdvertID,
		User1ID:   req.User1ID,
		User2ID:   req.User2ID,
		User1Name: req.User1Name,
		User2Name: req.User2Name,
	})
	if err != nil {
		h.failChat(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"chat":    newChatResponse(*c, req.User1ID),
		"is_new":  created,
	})
}

func (h *handler) markRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if !h.bindChatRequest(w, r, &req, "chat.mark_read_required") {
		return
	}

	if _, err := h.chats.MarkRead(r.Context(), req.ChatID, req.UserID); err != nil {
		h.failChat(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": h.translator(r).T("chat.marked_read"),
	})
}

func (h *handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !h.bindChatRequest(w, r, &req, "status.update_required") {
		return
	}

	status, created, err := h.chats.UpdateStatus(r.Context(), req.UserID, req.UserName, req.Online)
	if err != nil {
		h.failChat(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  newStatusResponse(*status),
		"is_new":  created,
	})
}

func (h *handler) getStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDVar(w, r)
	if !ok {
		return
	}

	status, err := h.chats.Status(r.Context(), userID)
	if err != nil {
		h.failChat(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": newStatusResponse(*status)})
}
