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

const advertColumns = `id, owner_id, owner_name, title, description, price, deposit, period, category, available, created_at`

// AdvertRepository defines persistence operations for adverts.
type AdvertRepository interface {
	List(ctx context.Context) ([]domain.Advert, error)
	FindByID(ctx context.Context, id int64) (*domain.Advert, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Advert, error)
	Create(ctx context.Context, advert *domain.Advert) error
	Update(ctx context.Context, advert *domain.Advert) error
	Delete(ctx context.Context, id int64) error
}

type advertRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewAdvertRepository creates a new SQL-backed advert repository.
func NewAdvertRepository(db *sqlx.DB, log *slog.Logger) AdvertRepository {
	if log == nil {
		log = slog.Default()
	}

	return &advertRepository{db: db, log: log}
}

// List returns every advert in insertion order.
func (r *advertRepository) List(ctx context.Context) ([]domain.Advert, error) {
	query := `SELECT ` + advertColumns + ` FROM adverts ORDER BY id`

	adverts := make([]domain.Advert, 0)
	if err := r.db.SelectContext(ctx, &adverts, query); err != nil {
		r.log.Error("failed to list adverts", slog.Any("error", err))
		return nil, fmt.Errorf("select adverts: %w", err)
	}

	return adverts, nil
}

func (r *advertRepository) FindByID(ctx context.Context, id int64) (*domain.Advert, error) {
	query := `SELECT ` + advertColumns + ` FROM adverts WHERE id = $1`

	var advert domain.Advert
	if err := r.db.GetContext(ctx, &advert, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		r.log.Error("failed to fetch advert", slog.Int64("advert_id", id), slog.Any("error", err))
		return nil, fmt.Errorf("select advert: %w", err)
	}

	return &advert, nil
}

// ListByOwner returns the owner's adverts, newest first.
func (r *advertRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Advert, error) {
	query := `SELECT ` + advertColumns + ` FROM adverts WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`

	adverts := make([]domain.Advert, 0)
	if err := r.db.SelectContext(ctx, &adverts, query, ownerID); err != nil {
		r.log.Error("failed to list owner adverts", slog.Int64("owner_id", ownerID), slog.Any("error", err))
		return nil, fmt.Errorf("select owner adverts: %w", err)
	}

	return adverts, nil
}

// Create inserts advert and fills its ID and CreatedAt.
func (r *advertRepository) Create(ctx context.Context, advert *domain.Advert) error {
	const query = `
		INSERT INTO adverts (owner_id, owner_name, title, description, price, deposit, period, category, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		advert.OwnerID,
		advert.OwnerName,
		advert.Title,
		advert.Description,
		advert.Price,
		advert.Deposit,
		advert.Period,
		advert.Category,
		advert.Available,
	).Scan(&advert.ID, &advert.CreatedAt); err != nil {
		r.log.Error("failed to create advert", slog.Int64("owner_id", advert.OwnerID), slog.Any("error", err))
		return fmt.Errorf("insert advert: %w", err)
	}

	return nil
}

// Update saves every mutable column of advert.
func (r *advertRepository) Update(ctx context.Context, advert *domain.Advert) error {
	const query = `
		UPDATE adverts
		SET title = $2, description = $3, price = $4, deposit = $5, period = $6, category = $7, available = $8
		WHERE id = $1
	`

	res, err := r.db.ExecContext(
		ctx,
		query,
		advert.ID,
		advert.Title,
		advert.Description,
		advert.Price,
		advert.Deposit,
		advert.Period,
		advert.Category,
		advert.Available,
	)
	if err != nil {
		r.log.Error("failed to update advert", slog.Int64("advert_id", advert.ID), slog.Any("error", err))
		return fmt.Errorf("update advert: %w", err)
	}

	return expectAffected(res)
}

func (r *advertRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM adverts WHERE id = $1`, id)
	if err != nil {
		r.log.Error("failed to delete advert", slog.Int64("advert_id", id), slog.Any("error", err))
		return fmt.Errorf("delete advert: %w", err)
	}

	return expectAffected(res)
}
