// Package repository implements PostgreSQL-backed persistence for the mini-app entities.
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

// ErrNotFound is returned when a lookup or targeted write matches no row.
var ErrNotFound = errors.New("record not found")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	IncrementAdverts(ctx context.Context, id int64) (*domain.User, error)
}

type userRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *sqlx.DB, log *slog.Logger) UserRepository {
	if log == nil {
		log = slog.Default()
	}

	return &userRepository{
		db:  db,
		log: log,
	}
}

// FindByID retrieves a user by their Telegram identifier.
func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
		SELECT id, name, username, balance, blocked, deals, adverts, user_pic, created_at
		FROM users
		WHERE id = $1
	`

	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		r.log.Error("failed to fetch user", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, fmt.Errorf("select user: %w", err)
	}

	return &user, nil
}

// Create persists a new user record. CreatedAt is filled from the database.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
		INSERT INTO users (id, name, username, balance, user_pic)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Username,
		user.Balance,
		user.UserPic,
	).Scan(&user.CreatedAt); err != nil {
		r.log.Error("failed to create user", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// IncrementAdverts bumps the adverts counter of the user by one and returns the updated row.
func (r *userRepository) IncrementAdverts(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
		UPDATE users SET adverts = adverts + 1
		WHERE id = $1
		RETURNING id, name, username, balance, blocked, deals, adverts, user_pic, created_at
	`

	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		r.log.Error("failed to increment adverts counter", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, fmt.Errorf("increment adverts: %w", err)
	}

	return &user, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
