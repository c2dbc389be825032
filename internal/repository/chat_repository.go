package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kitwiz/miniapp-backend/internal/domain"
)

const chatColumns = `id, advert_id, user1_id, user2_id, user1_name, user2_name, created_at, updated_at`

// ChatRepository defines persistence operations for chats.
type ChatRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.Chat, error)
	SearchByPartnerName(ctx context.Context, userID int64, query string) ([]domain.Chat, error)
	FindForParticipant(ctx context.Context, chatID, userID int64) (*domain.Chat, error)
	FindByKey(ctx context.Context, advertID, user1ID, user2ID int64) (*domain.Chat, error)
	Create(ctx context.Context, chat *domain.Chat) error
	Touch(ctx context.Context, chatID int64, at time.Time) error
}

type chatRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewChatRepository creates a new SQL-backed chat repository.
func NewChatRepository(db *sqlx.DB, log *slog.Logger) ChatRepository {
	if log == nil {
		log = slog.Default()
	}

	return &chatRepository{db: db, log: log}
}

// ListByUser returns chats where userID is either participant, most recently active first.
func (r *chatRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Chat, error) {
	query := `SELECT ` + chatColumns + `
		FROM chats
		WHERE user1_id = $1 OR user2_id = $1
		ORDER BY updated_at DESC, id DESC`

	chats := make([]domain.Chat, 0)
	if err := r.db.SelectContext(ctx, &chats, query, userID); err != nil {
		r.log.Error("failed to list chats", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("select chats: %w", err)
	}

	return chats, nil
}

// SearchByPartnerName returns the user's chats whose partner name contains query, case-insensitively.
// LIKE wildcards inside query match literally.
func (r *chatRepository) SearchByPartnerName(ctx context.Context, userID int64, query string) ([]domain.Chat, error) {
	stmt := `SELECT ` + chatColumns + `
		FROM chats
		WHERE (user1_id = $1 AND user2_name ILIKE $2 ESCAPE '\')
		   OR (user2_id = $1 AND user1_name ILIKE $2 ESCAPE '\')
		ORDER BY updated_at DESC, id DESC`

	pattern := "%" + EscapeLike(query) + "%"

	chats := make([]domain.Chat, 0)
	if err := r.db.SelectContext(ctx, &chats, stmt, userID, pattern); err != nil {
		r.log.Error("failed to search chats", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("search chats: %w", err)
	}

	return chats, nil
}

// FindForParticipant returns the chat only when userID takes part in it.
func (r *chatRepository) FindForParticipant(ctx context.Context, chatID, userID int64) (*domain.Chat, error) {
	query := `SELECT ` + chatColumns + `
		FROM chats
		WHERE id = $1 AND (user1_id = $2 OR user2_id = $2)`

	return r.getOne(ctx, query, chatID, userID)
}

// FindByKey looks up a chat by its exact ordered (advert, user1, user2) triple.
func (r *chatRepository) FindByKey(ctx context.Context, advertID, user1ID, user2ID int64) (*domain.Chat, error) {
	query := `SELECT ` + chatColumns + `
		FROM chats
		WHERE advert_id = $1 AND user1_id = $2 AND user2_id = $3
		ORDER BY id
		LIMIT 1`

	return r.getOne(ctx, query, advertID, user1ID, user2ID)
}

func (r *chatRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Chat, error) {
	var chat domain.Chat
	if err := r.db.GetContext(ctx, &chat, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		r.log.Error("failed to fetch chat", slog.Any("error", err))
		return nil, fmt.Errorf("select chat: %w", err)
	}

	return &chat, nil
}

// Create inserts chat and fills its ID and timestamps.
func (r *chatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	const query = `
		INSERT INTO chats (advert_id, user1_id, user2_id, user1_name, user2_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		chat.AdvertID,
		chat.User1ID,
		chat.User2ID,
		chat.User1Name,
		chat.User2Name,
	).Scan(&chat.ID, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
		r.log.Error("failed to create chat",
			slog.Int64("advert_id", chat.AdvertID),
			slog.Int64("user1_id", chat.User1ID),
			slog.Int64("user2_id", chat.User2ID),
			slog.Any("error", err),
		)
		return fmt.Errorf("insert chat: %w", err)
	}

	return nil
}

// Touch sets updated_at of the chat.
func (r *chatRepository) Touch(ctx context.Context, chatID int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chats SET updated_at = $2 WHERE id = $1`, chatID, at)
	if err != nil {
		r.log.Error("failed to touch chat", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return fmt.Errorf("touch chat: %w", err)
	}

	return expectAffected(res)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE metacharacters so s matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
