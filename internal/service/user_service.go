package service

import (
	"context"
	"time"

	"github.com/hlmaths/practice-backend/internal/model"
	"github.com/hlmaths/practice-backend/internal/repository"
	"github.com/rs/zerolog"
)

// UserService handles account lifecycle around the auth flows.
type UserService struct {
	repo         *repository.UserRepository
	activityRepo *repository.ActivityRepository
	log          zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo *repository.UserRepository, activityRepo *repository.ActivityRepository, log zerolog.Logger) *UserService {
	return &UserService{
		repo:         repo,
		activityRepo: activityRepo,
		log:          log.With().Str("component", "user_service").Logger(),
	}
}

// Register creates an unverified account with the given password hash.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest, passwordHash string) (*model.User, error) {
	u := &model.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: passwordHash,
		Role:         model.RoleStudent,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByID retrieves an account by ID.
func (s *UserService) GetByID(ctx context.Context, id int) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail retrieves an account by email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// List returns a page of accounts for the admin console.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]model.User, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// MarkEmailVerified flips the verified flag after a successful code check.
func (s *UserService) MarkEmailVerified(ctx context.Context, email string) error {
	return s.repo.SetEmailVerified(ctx, email)
}

// SetPassword replaces an account's password hash.
func (s *UserService) SetPassword(ctx context.Context, email, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, email, passwordHash)
}

// RecentActivity returns the user's daily aggregates for the last n days.
func (s *UserService) RecentActivity(ctx context.Context, userID, days int) ([]model.DailyActivity, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	return s.activityRepo.ListByUser(ctx, userID, since)
}
