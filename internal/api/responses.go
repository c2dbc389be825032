package api

import (
	"time"

	"github.com/kitwiz/miniapp-backend/internal/domain"
	"github.com/kitwiz/miniapp-backend/internal/i18n"
)

const clockLayout = "15:04"

type advertResponse struct {
	ID          int64  `json:"id"`
	OwnerID     int64  `json:"owner_id"`
	OwnerName   string `json:"owner_name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Deposit     int64  `json:"deposit"`
	Period      string `json:"period"`
	Category    string `json:"category"`
	Available   bool   `json:"available"`
	CreatedAt   string `json:"created_at"`
}

func newAdvertResponse(a domain.Advert) advertResponse {
	return advertResponse{
		ID:          a.ID,
		OwnerID:     a.OwnerID,
		OwnerName:   a.OwnerName,
		Title:       a.Title,
		Description: a.Description,
		Price:       a.Price,
		Deposit:     a.Deposit,
		Period:      a.Period,
		Category:    a.Category,
		Available:   a.Available,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

func newAdvertResponses(adverts []domain.Advert) []advertResponse {
	out := make([]advertResponse, 0, len(adverts))
	for _, a := range adverts {
		out = append(out, newAdvertResponse(a))
	}
	return out
}

type chatResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	PartnerID int64  `json:"partner_id"`
	AdvertID  int64  `json:"advert_id"`
	CreatedAt string `json:"created_at"`
	User1ID   int64  `json:"user1_id"`
	User2ID   int64  `json:"user2_id"`
}

// chatListItem is a chat enriched with activity for the chat list.
type chatListItem struct {
	chatResponse
	LastMessage     string `json:"last_message"`
	LastMessageTime string `json:"last_message_time"`
	UnreadCount     int64  `json:"unread_count"`
	Online          bool   `json:"online"`
}

func newChatResponse(c domain.Chat, viewerID int64) chatResponse {
	partnerID, partnerName := c.Partner(viewerID)
	return chatResponse{
		ID:        c.ID,
		Name:      partnerName,
		PartnerID: partnerID,
		AdvertID:  c.AdvertID,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		User1ID:   c.User1ID,
		User2ID:   c.User2ID,
	}
}

func newChatListItems(summaries []domain.ChatSummary, tr i18n.Translator, loc *time.Location) []chatListItem {
	out := make([]chatListItem, 0, len(summaries))
	for _, s := range summaries {
		item := chatListItem{
			chatResponse: newChatResponse(s.Chat, s.ViewerID),
			LastMessage:  tr.T("chat.no_messages"),
			UnreadCount:  s.UnreadCount,
			Online:       s.PartnerOnline,
		}
		if s.LastMessage != nil {
			item.LastMessage = s.LastMessage.Text
			item.LastMessageTime = s.LastMessage.CreatedAt.In(loc).Format(clockLayout)
		}
		out = append(out, item)
	}
	return out
}

type messageResponse struct {
	ID        int64  `json:"id"`
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	IsOwn     bool   `json:"is_own"`
	Read      bool   `json:"read"`
	SenderID  int64  `json:"sender_id"`
	CreatedAt string `json:"created_at"`
}

func newMessageResponse(m domain.Message, viewerID int64, loc *time.Location) messageResponse {
	return messageResponse{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Text:      m.Text,
		Timestamp: m.CreatedAt.In(loc).Format(clockLayout),
		IsOwn:     m.SenderID == viewerID,
		Read:      m.Read,
		SenderID:  m.SenderID,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

type statusResponse struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
	Online   bool   `json:"online"`
	LastSeen string `json:"last_seen"`
}

func newStatusResponse(s domain.UserStatus) statusResponse {
	return statusResponse{
		UserID:   s.UserID,
		UserName: s.UserName,
		Online:   s.Online,
		LastSeen: s.LastSeen.Format(time.RFC3339),
	}
}

type userResponse struct {
	ID        int64   `json:"id"`
	CreatedAt string  `json:"created_at"`
	Name      string  `json:"name"`
	Username  string  `json:"username"`
	Balance   int64   `json:"balance"`
	Blocked   bool    `json:"blocked"`
	Deals     int64   `json:"deals"`
	Adverts   int64   `json:"adverts"`
	UserPic   *string `json:"user_pic"`
}

func newUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		Name:      u.Name,
		Username:  u.Username,
		Balance:   u.Balance,
		Blocked:   u.Blocked,
		Deals:     u.Deals,
		Adverts:   u.Adverts,
		UserPic:   u.UserPic,
	}
}
