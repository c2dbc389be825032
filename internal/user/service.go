package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/kitwiz/miniapp-backend/internal/domain"
	"github.com/kitwiz/miniapp-backend/internal/repository"
	"github.com/kitwiz/miniapp-backend/internal/usercache"
)

// ErrNotFound is returned when no user with the requested id is registered.
var ErrNotFound = errors.New("user not found")

// Service provides business operations over users.
type Service struct {
	repo  repository.UserRepository
	cache *usercache.Cache
	log   *slog.Logger
}

// NewService constructs a new Service instance. cache may be nil.
func NewService(repo repository.UserRepository, cache *usercache.Cache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, cache: cache, log: log}
}

// Get returns the user, reading through the profile cache.
func (s *Service) Get(ctx context.Context, id int64) (*domain.User, error) {
	if cached, err := s.cache.Get(ctx, id); err != nil {
		s.log.Warn("user cache read failed", slog.Int64("user_id", id), slog.Any("error", err))
	} else if cached != nil {
		return cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logError("get", id, err)
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := s.cache.Fill(ctx, user); err != nil {
		s.log.Warn("user cache fill failed", slog.Int64("user_id", id), slog.Any("error", err))
	}

	return user, nil
}

// GetOrCreate fetches a user by telegram ID or registers a new profile when missing.
// The boolean reports whether the user was created.
func (s *Service) GetOrCreate(ctx context.Context, telegramUser *telebot.User) (*domain.User, bool, error) {
	if telegramUser == nil {
		return nil, false, errors.New("telegram user is nil")
	}

	existing, err := s.Get(ctx, telegramUser.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	newUser := &domain.User{
		ID:       telegramUser.ID,
		Name:     telegramUser.FirstName,
		Username: telegramUser.Username,
	}

	if err := s.repo.Create(ctx, newUser); err != nil {
		s.logError("get_or_create.create", telegramUser.ID, err)
		return nil, false, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", slog.Int64("user_id", newUser.ID))

	return newUser, true, nil
}

// IncrementAdverts bumps the adverts counter and caches the updated profile.
func (s *Service) IncrementAdverts(ctx context.Context, id int64) error {
	user, err := s.repo.IncrementAdverts(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		s.logError("increment_adverts", id, err)
		return fmt.Errorf("increment adverts: %w", err)
	}

	if err := s.cache.Set(ctx, user); err != nil {
		s.log.Warn("user cache write failed", slog.Int64("user_id", id), slog.Any("error", err))
	}

	return nil
}

func (s *Service) logError(operation string, telegramID int64, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("user service operation failed",
		slog.String("operation", operation),
		slog.Int64("telegram_id", telegramID),
		slog.Any("error", err),
	)
}
