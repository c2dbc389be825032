// Package advert implements the classified listing operations.
package advert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kitwiz/miniapp-backend/internal/domain"
	apperrors "github.com/kitwiz/miniapp-backend/internal/errors"
	"github.com/kitwiz/miniapp-backend/internal/repository"
	"github.com/kitwiz/miniapp-backend/internal/user"
	"github.com/kitwiz/miniapp-backend/pkg/metrics"
)

const (
	MsgNotFound      = "Advert not found"
	MsgOwnerNotFound = "owner not found"
)

// OwnerCounter maintains the per-user adverts counter.
type OwnerCounter interface {
	IncrementAdverts(ctx context.Context, id int64) error
}

// CreateInput holds the fields accepted when publishing an advert.
// String limits follow the column sizes of the adverts table.
type CreateInput struct {
	OwnerID     int64   `validate:"required"`
	OwnerName   string  `validate:"required,max=64"`
	Title       string  `validate:"required,max=128"`
	Description string  `validate:"max=512"`
	Price       int64   `validate:"gte=0"`
	Deposit     int64   `validate:"gte=0"`
	Period      *string `validate:"omitempty,max=28"`
	Category    string  `validate:"max=128"`
	Available   *bool
}

type Service struct {
	adverts  repository.AdvertRepository
	owners   OwnerCounter
	validate *validator.Validate
	log      *slog.Logger
}

func NewService(adverts repository.AdvertRepository, owners OwnerCounter, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		adverts:  adverts,
		owners:   owners,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// List returns every advert.
func (s *Service) List(ctx context.Context) ([]domain.Advert, error) {
	adverts, err := s.adverts.List(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return adverts, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Advert, error) {
	advert, err := s.adverts.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err)
	}
	return advert, nil
}

// ListByOwner returns the owner's adverts, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Advert, error) {
	adverts, err := s.adverts.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return adverts, nil
}

// Create stores a new advert and then increments the owner's counter.
// The two writes are independent: when the owner is unknown the advert remains stored
// and the call still fails.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Advert, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.NewValidationError(describeValidation(err))
	}

	advert := &domain.Advert{
		OwnerID:     in.OwnerID,
		OwnerName:   in.OwnerName,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Deposit:     in.Deposit,
		Period:      domain.DefaultAdvertPeriod,
		Category:    in.Category,
		Available:   true,
	}
	if in.Period != nil {
		advert.Period = *in.Period
	}
	if in.Available != nil {
		advert.Available = *in.Available
	}

	if err := s.adverts.Create(ctx, advert); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	metrics.AdvertCreated()
	s.log.Info("advert created",
		slog.Int64("advert_id", advert.ID),
		slog.Int64("owner_id", advert.OwnerID),
	)

	if err := s.owners.IncrementAdverts(ctx, advert.OwnerID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.log.Warn("advert stored for unknown owner",
				slog.Int64("advert_id", advert.ID),
				slog.Int64("owner_id", advert.OwnerID),
			)
			return nil, apperrors.NewValidationError(MsgOwnerNotFound)
		}
		return nil, apperrors.NewDatabaseError(err)
	}

	return advert, nil
}

// Update applies patch to the advert and saves it.
func (s *Service) Update(ctx context.Context, id int64, patch domain.AdvertPatch) (*domain.Advert, error) {
	if err := s.validate.Struct(patch); err != nil {
		return nil, apperrors.NewValidationError(describeValidation(err))
	}

	advert, err := s.adverts.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err)
	}

	patch.Apply(advert)

	if err := s.adverts.Update(ctx, advert); err != nil {
		return nil, s.mapLookupError(err)
	}

	return advert, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.adverts.Delete(ctx, id); err != nil {
		return s.mapLookupError(err)
	}

	s.log.Info("advert deleted", slog.Int64("advert_id", id))
	return nil
}

func (s *Service) mapLookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFoundError(MsgNotFound)
	}
	return apperrors.NewDatabaseError(err)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fieldName(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be >= %s", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

var fieldNames = map[string]string{
	"OwnerID":   "owner_id",
	"OwnerName": "owner_name",
	"Title":     "title",
	"Price":     "price",
	"Deposit":   "deposit",
}

func fieldName(goName string) string {
	if name, ok := fieldNames[goName]; ok {
		return name
	}
	return strings.ToLower(goName)
}
