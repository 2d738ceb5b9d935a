package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReferralCodeLength is the number of characters in a referral code
const ReferralCodeLength = 6

// ReferralCodeFor derives a user's referral code from the leading hex
// characters of their ID
func ReferralCodeFor(id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return strings.ToUpper(hex[:ReferralCodeLength])
}

// NormalizeReferralCode upper-cases and trims user supplied codes
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ReferralClaim records that a user joined through another user's code.
// A user can claim at most once.
type ReferralClaim struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	ReferrerID uuid.UUID `gorm:"type:uuid;not null;index" json:"referrer_id"`
	Code       string    `gorm:"type:varchar(12);not null" json:"code"`
	ClaimedAt  time.Time `gorm:"not null" json:"claimed_at"`

	User     User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Referrer User `gorm:"foreignKey:ReferrerID;constraint:OnDelete:CASCADE" json:"-"`
}

func (r *ReferralClaim) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.ClaimedAt.IsZero() {
		r.ClaimedAt = time.Now()
	}
	return nil
}

func (r *ReferralClaim) TableName() string {
	return "referral_claims"
}
