package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mita-backend/internal/dto"
	"mita-backend/internal/models"
	"mita-backend/internal/repositories"

	"github.com/google/uuid"
)

var (
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidPeriod      = errors.New("invalid period")
)

type TransactionService struct {
	transactionRepo repositories.TransactionRepositoryInterface
	metrics         MetricsRecorderInterface
	now             func() time.Time
}

func NewTransactionService(transactionRepo repositories.TransactionRepositoryInterface, metrics MetricsRecorderInterface) TransactionServiceInterface {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &TransactionService{
		transactionRepo: transactionRepo,
		metrics:         metrics,
		now:             time.Now,
	}
}

// Record stores an expense and adds it to the spent mapping of its
// calendar day
func (s *TransactionService) Record(userID uuid.UUID, req *dto.CreateTransactionRequest) (*models.Transaction, error) {
	if req == nil {
		return nil, ErrInvalidTransaction
	}

	category := models.NormalizeCategory(req.Category)
	if !models.IsValidCategory(category) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, models.ErrInvalidCategory)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, models.ErrInvalidAmount)
	}

	spentAt := s.now()
	if req.SpentAt != nil && !req.SpentAt.IsZero() {
		spentAt = *req.SpentAt
	}

	transaction := &models.Transaction{
		UserID:      userID,
		CalendarID:  req.CalendarID,
		Category:    category,
		Amount:      req.Amount,
		Description: req.Description,
		SpentAt:     spentAt,
	}

	day, err := s.transactionRepo.CreateAndApply(transaction)
	if err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	s.metrics.IncrementCounter(MetricTransactionRecorded, nil)
	slog.Info("transaction recorded",
		"user_id", userID,
		"transaction_id", transaction.ID,
		"calendar_id", day.CalendarID,
		"date", day.Date.Format("2006-01-02"))

	return transaction, nil
}

// ListMonth returns the user's transactions spent within the UTC month
func (s *TransactionService) ListMonth(userID uuid.UUID, year int, month time.Month) ([]models.Transaction, error) {
	start, end, err := monthRange(year, month)
	if err != nil {
		return nil, err
	}

	transactions, err := s.transactionRepo.ListByUserInRange(userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

// monthRange returns [first day of month, first day of next month) in UTC
func monthRange(year int, month time.Month) (time.Time, time.Time, error) {
	if month < time.January || month > time.December || year < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %d-%02d", ErrInvalidPeriod, year, month)
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}
