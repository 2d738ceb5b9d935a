package repositories

import (
	"errors"
	"fmt"

	"mita-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultNotificationLogLimit = 50

// NotificationLogRepository handles database operations for delivery logs
type NotificationLogRepository struct {
	db *gorm.DB
}

// NewNotificationLogRepository creates a new notification log repository
func NewNotificationLogRepository(db *gorm.DB) NotificationLogRepositoryInterface {
	return &NotificationLogRepository{
		db: db,
	}
}

// Create creates a new notification log entry
func (r *NotificationLogRepository) Create(log *models.NotificationLog) error {
	if log == nil {
		return errors.New("notification log cannot be nil")
	}

	if err := r.db.Create(log).Error; err != nil {
		return fmt.Errorf("failed to create notification log: %w", err)
	}

	return nil
}

// ListByUserID returns the most recent delivery attempts for a user
func (r *NotificationLogRepository) ListByUserID(userID uuid.UUID, limit int) ([]models.NotificationLog, error) {
	if limit <= 0 {
		limit = defaultNotificationLogLimit
	}

	var logs []models.NotificationLog
	if err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to get notification logs for user: %w", err)
	}

	return logs, nil
}
