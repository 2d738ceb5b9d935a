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
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrTokenNotFound        = errors.New("token not found")
)

type refreshTokenRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepositoryInterface {
	return &refreshTokenRepository{db: db, now: time.Now}
}

func (r *refreshTokenRepository) Create(token *models.RefreshToken) error {
	if token == nil {
		return errors.New("refresh token cannot be nil")
	}
	if err := r.db.Create(token).Error; err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// GetByTokenHash returns the row for a token hash, revoked or not
func (r *refreshTokenRepository) GetByTokenHash(tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.db.Where("token_hash = ?", tokenHash).Take(&token).Error; err != nil {
		return nil, lookupError(err, ErrRefreshTokenNotFound, "find refresh token")
	}
	return &token, nil
}

// Revoke marks one token revoked. A token that is unknown or already
// revoked yields ErrRefreshTokenNotFound so a replayed refresh is visible.
func (r *refreshTokenRepository) Revoke(tokenID uuid.UUID) error {
	res := r.db.Model(&models.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", tokenID).
		Update("revoked_at", r.now())
	if res.Error != nil {
		return fmt.Errorf("revoke refresh token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRefreshTokenNotFound
	}
	return nil
}

// RevokeAllForUser ends every live session of the user
func (r *refreshTokenRepository) RevokeAllForUser(userID uuid.UUID) error {
	err := r.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", r.now()).Error
	if err != nil {
		return fmt.Errorf("revoke refresh tokens of user: %w", err)
	}
	return nil
}

func (r *refreshTokenRepository) DeleteExpired() (int64, error) {
	return deleteExpired(r.db, &models.RefreshToken{}, r.now())
}

type blacklistedTokenRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewBlacklistedTokenRepository(db *gorm.DB) BlacklistedTokenRepositoryInterface {
	return &blacklistedTokenRepository{db: db, now: time.Now}
}

// Create blocks a JTI. Blocking the same JTI twice is a no-op.
func (r *blacklistedTokenRepository) Create(token *models.BlacklistedToken) error {
	if token == nil {
		return errors.New("blacklisted token cannot be nil")
	}
	err := r.db.Create(token).Error
	if err != nil && !isDuplicateKeyError(err) {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (r *blacklistedTokenRepository) GetByJTI(jti string) (*models.BlacklistedToken, error) {
	var token models.BlacklistedToken
	if err := r.db.Where("jti = ?", jti).Take(&token).Error; err != nil {
		return nil, lookupError(err, ErrTokenNotFound, "find blacklisted token")
	}
	return &token, nil
}

func (r *blacklistedTokenRepository) DeleteExpired() (int64, error) {
	return deleteExpired(r.db, &models.BlacklistedToken{}, r.now())
}

// deleteExpired drops rows of model whose expires_at is before now
func deleteExpired(db *gorm.DB, model any, now time.Time) (int64, error) {
	res := db.Where("expires_at < ?", now).Delete(model)
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired %T: %w", model, res.Error)
	}
	return res.RowsAffected, nil
}
