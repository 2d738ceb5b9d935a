package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidAmount   = errors.New("transaction amount must be positive")
	ErrInvalidCategory = errors.New("transaction category is required")
)

// Transaction is a single recorded expense
type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_user_spent" json:"user_id"`
	CalendarID  string          `gorm:"type:varchar(64);not null" json:"calendar_id"`
	Category    string          `gorm:"type:varchar(50);not null;index" json:"category"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	SpentAt     time.Time       `gorm:"not null;index:idx_transactions_user_spent" json:"spent_at"`
	CreatedAt   time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate hook for Transaction
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.Category = strings.ToLower(strings.TrimSpace(t.Category))
	if t.CalendarID == "" {
		t.CalendarID = DefaultCalendarID
	}

	now := time.Now()
	if t.SpentAt.IsZero() {
		t.SpentAt = now
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	return t.Validate()
}

// Validate checks business rules for the transaction
func (t *Transaction) Validate() error {
	if t.UserID == uuid.Nil {
		return errors.New("user ID is required")
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrInvalidCategory
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Day returns the calendar date the transaction counts toward
func (t *Transaction) Day() time.Time {
	return NormalizeDate(t.SpentAt)
}

func (t *Transaction) TableName() string {
	return "transactions"
}
