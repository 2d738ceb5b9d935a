package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"mita-backend/internal/dto"
	"mita-backend/internal/models"
	"mita-backend/internal/repositories"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrEmptyUpdate        = errors.New("no profile fields to update")
	ErrInvalidProfile     = errors.New("invalid profile")
)

type UserService struct {
	userRepo repositories.UserRepositoryInterface
}

func NewUserService(userRepo repositories.UserRepositoryInterface) UserServiceInterface {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetProfile(userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, ErrUserNotFound
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	return user, nil
}

// UpdateProfile applies the non-nil fields of req and returns the updated
// user. Email changes are checked for uniqueness first.
func (s *UserService) UpdateProfile(userID uuid.UUID, req *dto.UpdateProfileRequest) (*models.User, error) {
	if req == nil || req.IsEmpty() {
		return nil, ErrEmptyUpdate
	}

	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			existing, err := s.userRepo.GetByEmailExcluding(email, userID)
			if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
				return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
			}
			if existing != nil {
				return nil, ErrEmailAlreadyExists
			}
			fields["email"] = email
			user.Email = email
		}
	}

	if req.Country != nil {
		country := strings.ToUpper(strings.TrimSpace(*req.Country))
		fields["country"] = country
		user.Country = country
	}

	if req.Timezone != nil {
		fields["timezone"] = *req.Timezone
		user.Timezone = *req.Timezone
	}

	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	if len(fields) == 0 {
		return user, nil
	}

	if err := s.userRepo.UpdateFields(userID, fields); err != nil {
		switch {
		case errors.Is(err, repositories.ErrEmailAlreadyExists):
			return nil, ErrEmailAlreadyExists
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user profile: %w", err)
	}

	slog.Info("user profile updated", "user_id", userID, "fields", len(fields))

	return user, nil
}
