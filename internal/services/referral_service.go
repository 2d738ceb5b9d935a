package services

import (
	"errors"
	"fmt"
	"log/slog"

	"mita-backend/internal/models"
	"mita-backend/internal/repositories"

	"github.com/google/uuid"
)

var (
	ErrReferralCodeNotFound   = errors.New("referral code not found")
	ErrReferralOwnCode        = errors.New("cannot claim own referral code")
	ErrReferralAlreadyClaimed = errors.New("referral already claimed")
	ErrReferralNotEligible    = errors.New("user is not eligible for referral")
	ErrReferralCodeAmbiguous  = errors.New("referral code is shared by several users")
)

// Eligibility reasons returned alongside a negative answer
const (
	ReasonAlreadyClaimed = "already_claimed"
	ReasonNoTransactions = "no_transactions"
)

type ReferralService struct {
	referralRepo    repositories.ReferralRepositoryInterface
	userRepo        repositories.UserRepositoryInterface
	transactionRepo repositories.TransactionRepositoryInterface
}

func NewReferralService(
	referralRepo repositories.ReferralRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	transactionRepo repositories.TransactionRepositoryInterface,
) ReferralServiceInterface {
	return &ReferralService{
		referralRepo:    referralRepo,
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
	}
}

func (s *ReferralService) Code(userID uuid.UUID) string {
	return models.ReferralCodeFor(userID)
}

// CheckEligibility reports whether the user may still claim a code. Users
// qualify once they have recorded at least one transaction.
func (s *ReferralService) CheckEligibility(userID uuid.UUID) (bool, string, error) {
	claimed, err := s.hasClaimed(userID)
	if err != nil {
		return false, "", err
	}
	if claimed {
		return false, ReasonAlreadyClaimed, nil
	}

	count, err := s.transactionRepo.CountByUserID(userID)
	if err != nil {
		return false, "", fmt.Errorf("failed to count transactions: %w", err)
	}
	if count < 1 {
		return false, ReasonNoTransactions, nil
	}

	return true, "", nil
}

func (s *ReferralService) Claim(userID uuid.UUID, code string) (*models.ReferralClaim, error) {
	code = models.NormalizeReferralCode(code)

	referrer, err := s.userRepo.GetByReferralCode(code)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, ErrReferralCodeNotFound
		case errors.Is(err, repositories.ErrReferralCodeAmbiguous):
			slog.Warn("referral code collision", "code", code, "user_id", userID)
			return nil, ErrReferralCodeAmbiguous
		}
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}

	if referrer.ID == userID {
		return nil, ErrReferralOwnCode
	}

	eligible, reason, err := s.CheckEligibility(userID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		if reason == ReasonAlreadyClaimed {
			return nil, ErrReferralAlreadyClaimed
		}
		return nil, fmt.Errorf("%w: %s", ErrReferralNotEligible, reason)
	}

	claim := &models.ReferralClaim{
		UserID:     userID,
		ReferrerID: referrer.ID,
		Code:       code,
	}
	if err := s.referralRepo.Create(claim); err != nil {
		if errors.Is(err, repositories.ErrReferralAlreadyClaimed) {
			return nil, ErrReferralAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to store referral claim: %w", err)
	}

	slog.Info("referral claimed",
		"user_id", userID,
		"referrer_id", referrer.ID,
		"code", code)

	return claim, nil
}

func (s *ReferralService) hasClaimed(userID uuid.UUID) (bool, error) {
	_, err := s.referralRepo.GetByUserID(userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repositories.ErrReferralNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to get referral claim: %w", err)
}
