package domain

import "time"

// Chat is a two-participant thread about one advert. Participant names are denormalized.
type Chat struct {
	ID        int64     `db:"id"`
	AdvertID  int64     `db:"advert_id"`
	User1ID   int64     `db:"user1_id"`
	User2ID   int64     `db:"user2_id"`
	User1Name string    `db:"user1_name"`
	User2Name string    `db:"user2_name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// HasParticipant reports whether userID is one of the two chat members.
func (c Chat) HasParticipant(userID int64) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// Partner returns the id and name of the member that is not viewerID.
func (c Chat) Partner(viewerID int64) (int64, string) {
	if c.User1ID == viewerID {
		return c.User2ID, c.User2Name
	}
	return c.User1ID, c.User1Name
}

// Message is an append-only chat entry.
type Message struct {
	ID        int64     `db:"id"`
	ChatID    int64     `db:"chat_id"`
	SenderID  int64     `db:"sender_id"`
	Text      string    `db:"text"`
	Read      bool      `db:"read"`
	CreatedAt time.Time `db:"created_at"`
}

// ChatSummary is a chat as seen by one viewer, enriched for the chat list.
type ChatSummary struct {
	Chat
	ViewerID      int64
	PartnerID     int64
	PartnerName   string
	LastMessage   *Message
	UnreadCount   int64
	PartnerOnline bool
}

// UserStatus is the online flag of a user.
type UserStatus struct {
	ID       int64     `db:"id" json:"id"`
	UserID   int64     `db:"user_id" json:"user_id"`
	UserName string    `db:"user_name" json:"user_name"`
	Online   bool      `db:"online" json:"online"`
	LastSeen time.Time `db:"last_seen" json:"last_seen"`
}
