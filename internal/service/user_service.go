package service

import (
	"context"
	"errors"

	"imaginify/internal/apperror"
	"imaginify/internal/model"
	"imaginify/internal/repository"

	"github.com/rs/zerolog"
)

var (
	ErrUserNotFound = apperror.NotFound("user not found")
	ErrUserExists   = apperror.Conflict("user already exists")
)

// defaultPlanID is the free plan every new user starts on.
const defaultPlanID = 1

// Profile is the editable part of a user.
type Profile struct {
	Email     string
	Username  string
	Photo     string
	FirstName string
	LastName  string
}

type UserService interface {
	Create(ctx context.Context, clerkID string, p Profile) (*model.User, error)
	GetByClerkID(ctx context.Context, clerkID string) (*model.User, error)
	UpdateProfile(ctx context.Context, clerkID string, p Profile) (*model.User, error)
	Delete(ctx context.Context, clerkID string) error
}

type userService struct {
	userRepo       repository.UserRepository
	imageRepo      repository.ImageRepository
	defaultBalance int
	logger         zerolog.Logger
}

func NewUserService(userRepo repository.UserRepository, imageRepo repository.ImageRepository, defaultBalance int, logger zerolog.Logger) UserService {
	return &userService{
		userRepo:       userRepo,
		imageRepo:      imageRepo,
		defaultBalance: defaultBalance,
		logger:         logger.With().Str("service", "UserService").Logger(),
	}
}

func (s *userService) Create(ctx context.Context, clerkID string, p Profile) (*model.User, error) {
	u := &model.User{
		ClerkID:       clerkID,
		Email:         p.Email,
		Username:      p.Username,
		Photo:         p.Photo,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		PlanID:        defaultPlanID,
		CreditBalance: s.defaultBalance,
	}
	if err := s.userRepo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		s.logger.Error().Err(err).Str("clerk_id", clerkID).Msg("Failed to create user")
		return nil, apperror.Wrap(err, "failed to create user")
	}
	s.logger.Info().Str("user_id", u.ID).Msg("User created")
	return u, nil
}

func (s *userService) GetByClerkID(ctx context.Context, clerkID string) (*model.User, error) {
	return resolveUser(ctx, s.userRepo, clerkID)
}

func (s *userService) UpdateProfile(ctx context.Context, clerkID string, p Profile) (*model.User, error) {
	u, err := resolveUser(ctx, s.userRepo, clerkID)
	if err != nil {
		return nil, err
	}
	u.Email = p.Email
	u.Username = p.Username
	u.Photo = p.Photo
	u.FirstName = p.FirstName
	u.LastName = p.LastName
	if err := s.userRepo.UpdateUser(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperror.Conflict("email or username already taken")
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("user_id", u.ID).Msg("Failed to update user")
		return nil, apperror.Wrap(err, "failed to update user")
	}
	return u, nil
}

// Delete removes the user together with their images.
func (s *userService) Delete(ctx context.Context, clerkID string) error {
	u, err := resolveUser(ctx, s.userRepo, clerkID)
	if err != nil {
		return err
	}
	n, err := s.imageRepo.DeleteImagesByAuthor(ctx, u.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", u.ID).Msg("Failed to delete user images")
		return apperror.Wrap(err, "failed to delete user images")
	}
	if err := s.userRepo.DeleteUser(ctx, u.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("user_id", u.ID).Msg("Failed to delete user")
		return apperror.Wrap(err, "failed to delete user")
	}
	s.logger.Info().Str("user_id", u.ID).Int("images_deleted", n).Msg("User deleted")
	return nil
}

// resolveUser maps an identity provider subject to the stored user.
func resolveUser(ctx context.Context, repo repository.UserRepository, clerkID string) (*model.User, error) {
	u, err := repo.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, apperror.Wrap(err, "failed to load user")
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}
