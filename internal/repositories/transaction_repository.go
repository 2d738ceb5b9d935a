package repositories

import (
	"errors"
	"fmt"
	"time"

	"mita-backend/internal/analytics"
	"mita-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
)

// transactionRepository implements TransactionRepositoryInterface
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepositoryInterface {
	return &transactionRepository{
		db: db,
	}
}

// CreateAndApply stores the transaction and adds its amount to the spent
// mapping of the matching calendar day inside a single database
// transaction. When the transaction names no calendar the oldest calendar
// holding that date is used; when no day exists one is created in the
// default calendar.
func (r *transactionRepository) CreateAndApply(transaction *models.Transaction) (*models.CalendarDay, error) {
	if transaction == nil {
		return nil, errors.New("transaction cannot be nil")
	}
	if transaction.SpentAt.IsZero() {
		transaction.SpentAt = time.Now()
	}

	var day models.CalendarDay
	err := r.db.Transaction(func(tx *gorm.DB) error {
		date := transaction.Day()

		q := tx.Where("user_id = ? AND date = ?", transaction.UserID, date)
		if transaction.CalendarID != "" {
			q = q.Where("calendar_id = ?", transaction.CalendarID)
		}
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		err := q.Order("created_at ASC").First(&day).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			calendarID := transaction.CalendarID
			if calendarID == "" {
				calendarID = models.DefaultCalendarID
			}
			day = models.CalendarDay{
				UserID:     transaction.UserID,
				CalendarID: calendarID,
				Date:       date,
			}
			if err := tx.Create(&day).Error; err != nil {
				return fmt.Errorf("failed to create calendar day: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to load calendar day: %w", err)
		}

		transaction.CalendarID = day.CalendarID
		if err := tx.Create(transaction).Error; err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}

		spent := analytics.Expenses(day.Spent).Clone()
		spent.Add(transaction.Category, transaction.Amount)
		day.Spent = models.ExpenseMap(spent)
		day.UpdatedAt = time.Now()

		if err := tx.Model(&models.CalendarDay{}).
			Where("id = ?", day.ID).
			Updates(map[string]interface{}{
				"spent":      day.Spent,
				"updated_at": day.UpdatedAt,
			}).Error; err != nil {
			return fmt.Errorf("failed to update spent expenses: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &day, nil
}

// GetByID retrieves a transaction by ID
func (r *transactionRepository) GetByID(id uuid.UUID) (*models.Transaction, error) {
	transaction := &models.Transaction{ID: id}
	if err := r.db.First(transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return transaction, nil
}

// ListByUserInRange retrieves a user's transactions with start <= spent_at < end
func (r *transactionRepository) ListByUserInRange(userID uuid.UUID, start, end time.Time) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := r.db.Where("user_id = ? AND spent_at >= ? AND spent_at < ?", userID, start, end).
		Order("spent_at ASC").
		Order("created_at ASC").
		Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to get transactions by date range: %w", err)
	}
	return transactions, nil
}

// CountByUserID returns the number of transactions a user has recorded
func (r *transactionRepository) CountByUserID(userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Transaction{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
