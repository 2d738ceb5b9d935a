package repositories

import (
	"errors"
	"fmt"

	"mita-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrReferralNotFound       = errors.New("referral claim not found")
	ErrReferralAlreadyClaimed = errors.New("referral already claimed")
)

// ReferralRepository handles database operations for referral claims
type ReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository creates a new referral repository
func NewReferralRepository(db *gorm.DB) ReferralRepositoryInterface {
	return &ReferralRepository{db: db}
}

// Create records a claim; the unique index on user_id rejects a second claim
func (r *ReferralRepository) Create(claim *models.ReferralClaim) error {
	if claim == nil {
		return errors.New("referral claim cannot be nil")
	}

	if err := r.db.Create(claim).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrReferralAlreadyClaimed
		}
		return fmt.Errorf("failed to create referral claim: %w", err)
	}
	return nil
}

func (r *ReferralRepository) GetByUserID(userID uuid.UUID) (*models.ReferralClaim, error) {
	var claim models.ReferralClaim
	if err := r.db.Where("user_id = ?", userID).First(&claim).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReferralNotFound
		}
		return nil, fmt.Errorf("failed to get referral claim: %w", err)
	}
	return &claim, nil
}

func (r *ReferralRepository) CountByReferrer(referrerID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.Model(&models.ReferralClaim{}).
		Where("referrer_id = ?", referrerID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return count, nil
}
