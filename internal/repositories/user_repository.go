package repositories

import (
	"errors"
	"fmt"
	"time"

	"mita-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrEmailAlreadyExists = errors.New("email already exists")

	ErrReferralCodeAmbiguous = errors.New("referral code matches more than one user")
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepositoryInterface {
	return &userRepository{db: db}
}

// Create inserts the user. A taken email yields ErrUserAlreadyExists.
func (r *userRepository) Create(user *models.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if err := r.db.Create(user).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepository) first(op string, query any, args ...any) (*models.User, error) {
	var user models.User
	if err := r.db.Where(query, args...).Order("created_at ASC").First(&user).Error; err != nil {
		return nil, lookupError(err, ErrUserNotFound, op)
	}
	return &user, nil
}

func (r *userRepository) GetByID(id uuid.UUID) (*models.User, error) {
	return r.first("find user by id", "id = ?", id)
}

// GetByEmail matches case-insensitively
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	return r.first("find user by email", "LOWER(email) = LOWER(?)", email)
}

// GetByEmailExcluding finds another account holding email, used to reject
// profile updates that would collide.
func (r *userRepository) GetByEmailExcluding(email string, excludeUserID uuid.UUID) (*models.User, error) {
	return r.first("find user by email", "LOWER(email) = LOWER(?) AND id <> ?", email, excludeUserID)
}

// GetByReferralCode resolves a code to the user whose ID starts with it.
// Codes are a prefix of the ID; a code shared by several users returns
// ErrReferralCodeAmbiguous.
func (r *userRepository) GetByReferralCode(code string) (*models.User, error) {
	code = models.NormalizeReferralCode(code)
	if len(code) != models.ReferralCodeLength {
		return nil, ErrUserNotFound
	}

	var users []models.User
	err := r.db.Where("UPPER(SUBSTR(CAST(id AS TEXT), 1, ?)) = ?", models.ReferralCodeLength, code).
		Order("created_at ASC").
		Limit(2).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("find user by referral code: %w", err)
	}

	switch len(users) {
	case 0:
		return nil, ErrUserNotFound
	case 1:
		return &users[0], nil
	default:
		return nil, ErrReferralCodeAmbiguous
	}
}

func (r *userRepository) Update(user *models.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if err := r.db.Save(user).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdateFields applies a partial update and reports ErrUserNotFound when no
// row matched.
func (r *userRepository) UpdateFields(userID uuid.UUID, fields map[string]interface{}) error {
	res := r.db.Model(&models.User{}).Where("id = ?", userID).Updates(fields)
	switch {
	case res.Error != nil && isDuplicateKeyError(res.Error):
		return ErrEmailAlreadyExists
	case res.Error != nil:
		return fmt.Errorf("update user fields: %w", res.Error)
	case res.RowsAffected == 0:
		return ErrUserNotFound
	}
	return nil
}

// UpdateFailedLoginAttempts persists the lockout counters carried on user
func (r *userRepository) UpdateFailedLoginAttempts(user *models.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	return r.setLockout(user.ID, user.FailedLoginAttempts, user.LockedAt)
}

func (r *userRepository) ResetFailedLoginAttempts(userID uuid.UUID) error {
	return r.setLockout(userID, 0, nil)
}

func (r *userRepository) setLockout(userID uuid.UUID, attempts int, lockedAt *time.Time) error {
	err := r.db.Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{
			"failed_login_attempts": attempts,
			"locked_at":             lockedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("update login attempts: %w", err)
	}
	return nil
}
