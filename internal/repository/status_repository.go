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

// StatusRepository defines persistence operations for user online statuses.
type StatusRepository interface {
	Upsert(ctx context.Context, userID int64, userName string, online bool) (*domain.UserStatus, bool, error)
	FindByUserID(ctx context.Context, userID int64) (*domain.UserStatus, error)
}

type statusRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewStatusRepository creates a new SQL-backed status repository.
func NewStatusRepository(db *sqlx.DB, log *slog.Logger) StatusRepository {
	if log == nil {
		log = slog.Default()
	}

	return &statusRepository{db: db, log: log}
}

type statusRow struct {
	domain.UserStatus
	Inserted bool `db:"inserted"`
}

// Upsert stores the status of userID, refreshing last_seen. The boolean reports whether a new row was created.
func (r *statusRepository) Upsert(ctx context.Context, userID int64, userName string, online bool) (*domain.UserStatus, bool, error) {
	const query = `
		INSERT INTO user_statuses (user_id, user_name, online, last_seen)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE
		SET user_name = EXCLUDED.user_name, online = EXCLUDED.online, last_seen = now()
		RETURNING id, user_id, user_name, online, last_seen, (xmax = 0) AS inserted
	`

	var row statusRow
	if err := r.db.GetContext(ctx, &row, query, userID, userName, online); err != nil {
		r.log.Error("failed to upsert user status", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, false, fmt.Errorf("upsert status: %w", err)
	}

	status := row.UserStatus
	return &status, row.Inserted, nil
}

func (r *statusRepository) FindByUserID(ctx context.Context, userID int64) (*domain.UserStatus, error) {
	const query = `SELECT id, user_id, user_name, online, last_seen FROM user_statuses WHERE user_id = $1`

	var status domain.UserStatus
	if err := r.db.GetContext(ctx, &status, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		r.log.Error("failed to fetch user status", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("select status: %w", err)
	}

	return &status, nil
}
