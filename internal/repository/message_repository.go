package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/kitwiz/miniapp-backend/internal/domain"
)

const messageColumns = `id, chat_id, sender_id, text, read, created_at`

// MessageRepository defines persistence operations for chat messages.
type MessageRepository interface {
	ListByChat(ctx context.Context, chatID int64) ([]domain.Message, error)
	Last(ctx context.Context, chatID int64) (*domain.Message, error)
	CountUnread(ctx context.Context, chatID, viewerID int64) (int64, error)
	MarkRead(ctx context.Context, chatID, readerID int64) (int64, error)
	Create(ctx context.Context, msg *domain.Message) error
}

type messageRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewMessageRepository creates a new SQL-backed message repository.
func NewMessageRepository(db *sqlx.DB, log *slog.Logger) MessageRepository {
	if log == nil {
		log = slog.Default()
	}

	return &messageRepository{db: db, log: log}
}

// ListByChat returns all messages of the chat in chronological order.
func (r *messageRepository) ListByChat(ctx context.Context, chatID int64) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE chat_id = $1 ORDER BY created_at, id`

	msgs := make([]domain.Message, 0)
	if err := r.db.SelectContext(ctx, &msgs, query, chatID); err != nil {
		r.log.Error("failed to list messages", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return nil, fmt.Errorf("select messages: %w", err)
	}

	return msgs, nil
}

// Last returns the newest message of the chat or ErrNotFound for an empty chat.
func (r *messageRepository) Last(ctx context.Context, chatID int64) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE chat_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`

	var msg domain.Message
	if err := r.db.GetContext(ctx, &msg, query, chatID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		r.log.Error("failed to fetch last message", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return nil, fmt.Errorf("select last message: %w", err)
	}

	return &msg, nil
}

// CountUnread counts messages in the chat that viewerID has not read.
func (r *messageRepository) CountUnread(ctx context.Context, chatID, viewerID int64) (int64, error) {
	const query = `SELECT count(*) FROM messages WHERE chat_id = $1 AND sender_id <> $2 AND read = FALSE`

	var n int64
	if err := r.db.GetContext(ctx, &n, query, chatID, viewerID); err != nil {
		r.log.Error("failed to count unread messages", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return 0, fmt.Errorf("count unread: %w", err)
	}

	return n, nil
}

// MarkRead flags every unread message not sent by readerID as read and returns how many changed.
func (r *messageRepository) MarkRead(ctx context.Context, chatID, readerID int64) (int64, error) {
	const query = `UPDATE messages SET read = TRUE WHERE chat_id = $1 AND sender_id <> $2 AND read = FALSE`

	res, err := r.db.ExecContext(ctx, query, chatID, readerID)
	if err != nil {
		r.log.Error("failed to mark messages read", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return 0, fmt.Errorf("mark read: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return n, nil
}

// Create inserts msg and fills its ID, Read and CreatedAt.
func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
		INSERT INTO messages (chat_id, sender_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, read, created_at
	`

	if err := r.db.QueryRowxContext(ctx, query, msg.ChatID, msg.SenderID, msg.Text).
		Scan(&msg.ID, &msg.Read, &msg.CreatedAt); err != nil {
		r.log.Error("failed to create message", slog.Int64("chat_id", msg.ChatID), slog.Any("error", err))
		return fmt.Errorf("insert message: %w", err)
	}

	return nil
}
