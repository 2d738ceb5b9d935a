package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mita-backend/internal/drift"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DriftService struct {
	store drift.Store
	now   func() time.Time
}

// NewDriftService records cohort drift values in store, which is Firestore
// in production and an in-memory map in development
func NewDriftService(store drift.Store) DriftServiceInterface {
	return &DriftService{
		store: store,
		now:   time.Now,
	}
}

func (s *DriftService) Record(ctx context.Context, userID uuid.UUID, month string, value decimal.Decimal) error {
	entry := drift.Entry{
		UserID:    userID.String(),
		Month:     month,
		Value:     value.InexactFloat64(),
		UpdatedAt: s.now().UTC(),
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	if err := s.store.Put(ctx, entry); err != nil {
		return fmt.Errorf("failed to record drift: %w", err)
	}

	slog.InfoContext(ctx, "drift recorded",
		"user_id", userID,
		"month", month)

	return nil
}

func (s *DriftService) Report(ctx context.Context, userID uuid.UUID, month string) (*drift.Report, error) {
	report, err := drift.BuildReport(ctx, s.store, userID.String(), month)
	if err != nil {
		return nil, fmt.Errorf("failed to build drift report: %w", err)
	}
	return report, nil
}
