// Package chat implements the two-party polling chat and user online statuses.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kitwiz/miniapp-backend/internal/domain"
	apperrors "github.com/kitwiz/miniapp-backend/internal/errors"
	"github.com/kitwiz/miniapp-backend/internal/repository"
	"github.com/kitwiz/miniapp-backend/internal/usercache"
	"github.com/kitwiz/miniapp-backend/pkg/metrics"
)

var (
	// ErrChatNotFound covers both a missing chat and one the caller does not take part in.
	ErrChatNotFound   = errors.New("chat not found")
	ErrStatusNotFound = errors.New("user status not found")
)

type CreateInput struct {
	AdvertID  int64
	User1ID   int64
	User2ID   int64
	User1Name string
	User2Name string
}

type Service struct {
	chats    repository.ChatRepository
	messages repository.MessageRepository
	statuses repository.StatusRepository
	cache    *usercache.Cache
	now      func() time.Time
	log      *slog.Logger
}

// NewService builds the chat service. cache may be nil.
func NewService(
	chats repository.ChatRepository,
	messages repository.MessageRepository,
	statuses repository.StatusRepository,
	cache *usercache.Cache,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		chats:    chats,
		messages: messages,
		statuses: statuses,
		cache:    cache,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// ListChats returns the user's chats enriched for the chat list.
func (s *Service) ListChats(ctx context.Context, userID int64) ([]domain.ChatSummary, error) {
	chats, err := s.chats.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return s.summarize(ctx, chats, userID)
}

// SearchChats filters the user's chats by partner name. An empty query lists all chats;
// whitespace is searched for like any other text.
func (s *Service) SearchChats(ctx context.Context, userID int64, query string) ([]domain.ChatSummary, error) {
	if query == "" {
		return s.ListChats(ctx, userID)
	}

	chats, err := s.chats.SearchByPartnerName(ctx, userID, query)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return s.summarize(ctx, chats, userID)
}

func (s *Service) summarize(ctx context.Context, chats []domain.Chat, viewerID int64) ([]domain.ChatSummary, error) {
	out := make([]domain.ChatSummary, 0, len(chats))
	for _, c := range chats {
		partnerID, partnerName := c.Partner(viewerID)
		summary := domain.ChatSummary{
			Chat:        c,
			ViewerID:    viewerID,
			PartnerID:   partnerID,
			PartnerName: partnerName,
		}

		last, err := s.messages.Last(ctx, c.ID)
		switch {
		case err == nil:
			summary.LastMessage = last
		case !errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NewDatabaseError(err)
		}

		if summary.UnreadCount, err = s.messages.CountUnread(ctx, c.ID, viewerID); err != nil {
			return nil, apperrors.NewDatabaseError(err)
		}

		status, err := s.lookupStatus(ctx, partnerID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewDatabaseError(err)
		}
		summary.PartnerOnline = status != nil && status.Online

		out = append(out, summary)
	}

	return out, nil
}

// Messages returns the chat history for a participant and then marks every message
// addressed to them as read. The returned read flags are the ones before marking.
func (s *Service) Messages(ctx context.Context, chatID, userID int64) ([]domain.Message, error) {
	if err := s.requireParticipant(ctx, chatID, userID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListByChat(ctx, chatID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	if _, err := s.messages.MarkRead(ctx, chatID, userID); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	return msgs, nil
}

// Send appends a message from senderID and bumps the chat's activity time.
func (s *Service) Send(ctx context.Context, chatID, senderID int64, text string) (*domain.Message, error) {
	if err := s.requireParticipant(ctx, chatID, senderID); err != nil {
		return nil, err
	}

	msg := &domain.Message{ChatID: chatID, SenderID: senderID, Text: text}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	if err := s.chats.Touch(ctx, chatID, s.now()); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	metrics.MessageSent()

	return msg, nil
}

// CreateOrReuse returns the chat keyed by the exact (advert, user1, user2) triple,
// creating it when absent. The key is order-sensitive. The boolean reports creation.
func (s *Service) CreateOrReuse(ctx context.Context, in CreateInput) (*domain.Chat, bool, error) {
	existing, err := s.chats.FindByKey(ctx, in.AdvertID, in.User1ID, in.User2ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, apperrors.NewDatabaseError(err)
	}

	created := &domain.Chat{
		AdvertID:  in.AdvertID,
		User1ID:   in.User1ID,
		User2ID:   in.User2ID,
		User1Name: in.User1Name,
		User2Name: in.User2Name,
	}
	if err := s.chats.Create(ctx, created); err != nil {
		return nil, false, apperrors.NewDatabaseError(err)
	}

	metrics.ChatCreated()
	s.log.Info("chat created",
		slog.Int64("chat_id", created.ID),
		slog.Int64("advert_id", created.AdvertID),
	)

	return created, true, nil
}

// MarkRead flags every message in the chat not sent by userID as read.
// Membership is not checked.
func (s *Service) MarkRead(ctx context.Context, chatID, userID int64) (int64, error) {
	n, err := s.messages.MarkRead(ctx, chatID, userID)
	if err != nil {
		return 0, apperrors.NewDatabaseError(err)
	}
	return n, nil
}

// UpdateStatus upserts the user's online flag and refreshes last_seen.
// The boolean reports whether the status row was created.
func (s *Service) UpdateStatus(ctx context.Context, userID int64, userName string, online bool) (*domain.UserStatus, bool, error) {
	status, created, err := s.statuses.Upsert(ctx, userID, userName, online)
	if err != nil {
		return nil, false, apperrors.NewDatabaseError(err)
	}

	if err := s.cache.SetStatus(ctx, status); err != nil {
		s.log.Warn("status cache write failed", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return status, created, nil
}

func (s *Service) Status(ctx context.Context, userID int64) (*domain.UserStatus, error) {
	status, err := s.lookupStatus(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStatusNotFound
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return status, nil
}

func (s *Service) lookupStatus(ctx context.Context, userID int64) (*domain.UserStatus, error) {
	if cached, err := s.cache.GetStatus(ctx, userID); err != nil {
		s.log.Warn("status cache read failed", slog.Int64("user_id", userID), slog.Any("error", err))
	} else if cached != nil {
		return cached, nil
	}

	status, err := s.statuses.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.FillStatus(ctx, status); err != nil {
		s.log.Warn("status cache fill failed", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return status, nil
}

func (s *Service) requireParticipant(ctx context.Context, chatID, userID int64) error {
	if _, err := s.chats.FindForParticipant(ctx, chatID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrChatNotFound
		}
		return apperrors.NewDatabaseError(err)
	}
	return nil
}
