package repositories

import (
	"errors"
	"fmt"
	"time"

	"mita-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPushTokenNotFound = errors.New("push token not found")
)

// pushTokenRepository stores device registrations
type pushTokenRepository struct {
	db *gorm.DB
}

// NewPushTokenRepository creates a new push token repository
func NewPushTokenRepository(db *gorm.DB) PushTokenRepositoryInterface {
	return &pushTokenRepository{db: db}
}

// Upsert registers a device token. A token already registered, possibly by
// another user, is moved to the caller.
func (r *pushTokenRepository) Upsert(token *models.PushToken) error {
	if token == nil {
		return errors.New("push token cannot be nil")
	}
	token.UpdatedAt = time.Now()

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "updated_at"}),
	}).Create(token).Error
	if err != nil {
		return fmt.Errorf("failed to save push token: %w", err)
	}
	return nil
}

func (r *pushTokenRepository) ListByUserID(userID uuid.UUID) ([]models.PushToken, error) {
	var tokens []models.PushToken
	if err := r.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("failed to list push tokens: %w", err)
	}
	return tokens, nil
}

// Delete removes a token owned by the user
func (r *pushTokenRepository) Delete(userID uuid.UUID, token string) error {
	result := r.db.Where("user_id = ? AND token = ?", userID, token).Delete(&models.PushToken{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete push token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPushTokenNotFound
	}
	return nil
}

// DeleteByToken removes a token regardless of owner, used when the push
// provider reports it as unregistered
func (r *pushTokenRepository) DeleteByToken(token string) error {
	if err := r.db.Where("token = ?", token).Delete(&models.PushToken{}).Error; err != nil {
		return fmt.Errorf("failed to delete push token: %w", err)
	}
	return nil
}
