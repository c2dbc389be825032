// Package testutil provides in-memory repository fakes and helpers for package tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kitwiz/miniapp-backend/internal/domain"
	"github.com/kitwiz/miniapp-backend/internal/repository"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Store is an in-memory implementation of every repository interface.
// Set Err to make all calls fail with it.
type Store struct {
	mu sync.Mutex

	Err error
	Now func() time.Time

	users    map[int64]domain.User
	adverts  map[int64]domain.Advert
	chats    map[int64]domain.Chat
	messages map[int64]domain.Message
	statuses map[int64]domain.UserStatus
	lastID   int64
}

func NewStore() *Store {
	return &Store{
		Now:      func() time.Time { return time.Now().UTC() },
		users:    make(map[int64]domain.User),
		adverts:  make(map[int64]domain.Advert),
		chats:    make(map[int64]domain.Chat),
		messages: make(map[int64]domain.Message),
		statuses: make(map[int64]domain.UserStatus),
	}
}

func (s *Store) Users() repository.UserRepository       { return userRepo{s} }
func (s *Store) Adverts() repository.AdvertRepository   { return advertRepo{s} }
func (s *Store) Chats() repository.ChatRepository       { return chatRepo{s} }
func (s *Store) Messages() repository.MessageRepository { return messageRepo{s} }
func (s *Store) Statuses() repository.StatusRepository  { return statusRepo{s} }

// nextID hands out ids unique across all tables.
func (s *Store) nextID() int64 {
	s.lastID++
	return s.lastID
}

// AddUser seeds a user.
func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.Now()
	}
	s.users[u.ID] = u
}

// User returns the stored user and whether it exists.
func (s *Store) User(id int64) (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

// AdvertCount returns the number of stored adverts.
func (s *Store) AdvertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.adverts)
}

// ChatCount returns the number of stored chats.
func (s *Store) ChatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats)
}

// Chat returns the stored chat and whether it exists.
func (s *Store) Chat(id int64) (domain.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	return c, ok
}

// AddMessage seeds a message.
func (s *Store) AddMessage(m domain.Message) domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == 0 {
		m.ID = s.nextID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.Now()
	}
	s.messages[m.ID] = m
	return m
}

// MessagesOf returns the messages of chatID in id order.
func (s *Store) MessagesOf(chatID int64) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messagesOf(chatID)
}

func (s *Store) messagesOf(chatID int64) []domain.Message {
	out := make([]domain.Message, 0)
	for _, m := range s.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type userRepo struct{ s *Store }

func (r userRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	user.CreatedAt = r.s.Now()
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) IncrementAdverts(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Adverts++
	r.s.users[id] = u
	return &u, nil
}

type advertRepo struct{ s *Store }

func (r advertRepo) List(_ context.Context) ([]domain.Advert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	out := make([]domain.Advert, 0, len(r.s.adverts))
	for _, a := range r.s.adverts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r advertRepo) FindByID(_ context.Context, id int64) (*domain.Advert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	a, ok := r.s.adverts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r advertRepo) ListByOwner(_ context.Context, ownerID int64) ([]domain.Advert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	out := make([]domain.Advert, 0)
	for _, a := range r.s.adverts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r advertRepo) Create(_ context.Context, advert *domain.Advert) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	advert.ID = r.s.nextID()
	advert.CreatedAt = r.s.Now()
	r.s.adverts[advert.ID] = *advert
	return nil
}

func (r advertRepo) Update(_ context.Context, advert *domain.Advert) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	if _, ok := r.s.adverts[advert.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.adverts[advert.ID] = *advert
	return nil
}

func (r advertRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	if _, ok := r.s.adverts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.adverts, id)
	return nil
}

type chatRepo struct{ s *Store }

func (r chatRepo) sorted(keep func(domain.Chat) bool) []domain.Chat {
	out := make([]domain.Chat, 0)
	for _, c := range r.s.chats {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r chatRepo) ListByUser(_ context.Context, userID int64) ([]domain.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	return r.sorted(func(c domain.Chat) bool { return c.HasParticipant(userID) }), nil
}

func (r chatRepo) SearchByPartnerName(_ context.Context, userID int64, query string) ([]domain.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	needle := strings.ToLower(query)
	return r.sorted(func(c domain.Chat) bool {
		switch {
		case c.User1ID == userID && strings.Contains(strings.ToLower(c.User2Name), needle):
			return true
		case c.User2ID == userID && strings.Contains(strings.ToLower(c.User1Name), needle):
			return true
		}
		return false
	}), nil
}

func (r chatRepo) FindForParticipant(_ context.Context, chatID, userID int64) (*domain.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	c, ok := r.s.chats[chatID]
	if !ok || !c.HasParticipant(userID) {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r chatRepo) FindByKey(_ context.Context, advertID, user1ID, user2ID int64) (*domain.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	var found *domain.Chat
	for _, c := range r.s.chats {
		if c.AdvertID == advertID && c.User1ID == user1ID && c.User2ID == user2ID {
			if found == nil || c.ID < found.ID {
				c := c
				found = &c
			}
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r chatRepo) Create(_ context.Context, chat *domain.Chat) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	chat.ID = r.s.nextID()
	chat.CreatedAt = r.s.Now()
	chat.UpdatedAt = chat.CreatedAt
	r.s.chats[chat.ID] = *chat
	return nil
}

func (r chatRepo) Touch(_ context.Context, chatID int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	c, ok := r.s.chats[chatID]
	if !ok {
		return repository.ErrNotFound
	}
	c.UpdatedAt = at
	r.s.chats[chatID] = c
	return nil
}

type messageRepo struct{ s *Store }

func (r messageRepo) ListByChat(_ context.Context, chatID int64) ([]domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	return r.s.messagesOf(chatID), nil
}

func (r messageRepo) Last(_ context.Context, chatID int64) (*domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	msgs := r.s.messagesOf(chatID)
	if len(msgs) == 0 {
		return nil, repository.ErrNotFound
	}
	last := msgs[len(msgs)-1]
	return &last, nil
}

func (r messageRepo) CountUnread(_ context.Context, chatID, viewerID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return 0, r.s.Err
	}
	var n int64
	for _, m := range r.s.messages {
		if m.ChatID == chatID && m.SenderID != viewerID && !m.Read {
			n++
		}
	}
	return n, nil
}

func (r messageRepo) MarkRead(_ context.Context, chatID, readerID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return 0, r.s.Err
	}
	var n int64
	for id, m := range r.s.messages {
		if m.ChatID == chatID && m.SenderID != readerID && !m.Read {
			m.Read = true
			r.s.messages[id] = m
			n++
		}
	}
	return n, nil
}

func (r messageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	msg.ID = r.s.nextID()
	msg.Read = false
	msg.CreatedAt = r.s.Now()
	r.s.messages[msg.ID] = *msg
	return nil
}

type statusRepo struct{ s *Store }

func (r statusRepo) Upsert(_ context.Context, userID int64, userName string, online bool) (*domain.UserStatus, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, false, r.s.Err
	}
	st, exists := r.s.statuses[userID]
	if !exists {
		st = domain.UserStatus{ID: r.s.nextID(), UserID: userID}
	}
	st.UserName = userName
	st.Online = online
	st.LastSeen = r.s.Now()
	r.s.statuses[userID] = st
	return &st, !exists, nil
}

func (r statusRepo) FindByUserID(_ context.Context, userID int64) (*domain.UserStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	st, ok := r.s.statuses[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}
