package repositories

import (
	"time"

	"mita-backend/internal/models"

	"github.com/google/uuid"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	GetByID(id uuid.UUID) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByEmailExcluding(email string, excludeUserID uuid.UUID) (*models.User, error)
	GetByReferralCode(code string) (*models.User, error)
	Update(user *models.User) error
	UpdateFields(userID uuid.UUID, fields map[string]interface{}) error
	UpdateFailedLoginAttempts(user *models.User) error
	ResetFailedLoginAttempts(userID uuid.UUID) error
}

// RefreshTokenRepositoryInterface defines the contract for refresh token storage
type RefreshTokenRepositoryInterface interface {
	Create(token *models.RefreshToken) error
	GetByTokenHash(tokenHash string) (*models.RefreshToken, error)
	Revoke(tokenID uuid.UUID) error
	RevokeAllForUser(userID uuid.UUID) error
	DeleteExpired() (int64, error)
}

// BlacklistedTokenRepositoryInterface defines the contract for blacklisted token repository operations
type BlacklistedTokenRepositoryInterface interface {
	Create(token *models.BlacklistedToken) error
	GetByJTI(jti string) (*models.BlacklistedToken, error)
	DeleteExpired() (int64, error)
}

// CalendarRepositoryInterface defines the contract for stored budget calendars
type CalendarRepositoryInterface interface {
	CreateDays(days []models.CalendarDay) error
	GetDays(userID uuid.UUID, calendarID string) ([]models.CalendarDay, error)
	GetDay(userID uuid.UUID, calendarID string, date time.Time) (*models.CalendarDay, error)
	GetDaysInRange(userID uuid.UUID, start, end time.Time) ([]models.CalendarDay, error)
	UpdatePlanned(dayID uuid.UUID, planned models.ExpenseMap) error
	SavePlanned(days []models.CalendarDay) error
}

// TransactionRepositoryInterface defines the contract for transaction repository operations
type TransactionRepositoryInterface interface {
	CreateAndApply(transaction *models.Transaction) (*models.CalendarDay, error)
	GetByID(id uuid.UUID) (*models.Transaction, error)
	ListByUserInRange(userID uuid.UUID, start, end time.Time) ([]models.Transaction, error)
	CountByUserID(userID uuid.UUID) (int64, error)
}

// ReferralRepositoryInterface defines the contract for referral claims
type ReferralRepositoryInterface interface {
	Create(claim *models.ReferralClaim) error
	GetByUserID(userID uuid.UUID) (*models.ReferralClaim, error)
	CountByReferrer(referrerID uuid.UUID) (int64, error)
}

// PushTokenRepositoryInterface defines the contract for device push tokens
type PushTokenRepositoryInterface interface {
	Upsert(token *models.PushToken) error
	ListByUserID(userID uuid.UUID) ([]models.PushToken, error)
	Delete(userID uuid.UUID, token string) error
	DeleteByToken(token string) error
}

// NotificationLogRepositoryInterface defines the contract for delivery logs
type NotificationLogRepositoryInterface interface {
	Create(log *models.NotificationLog) error
	ListByUserID(userID uuid.UUID, limit int) ([]models.NotificationLog, error)
}
