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
	ErrCalendarNotFound      = errors.New("calendar not found")
	ErrCalendarDayNotFound   = errors.New("calendar day not found")
	ErrCalendarAlreadyExists = errors.New("calendar already exists")
)

const calendarBatchSize = 100

// CalendarRepository handles database operations for calendar days
type CalendarRepository struct {
	db *gorm.DB
}

// NewCalendarRepository creates a new calendar repository
func NewCalendarRepository(db *gorm.DB) CalendarRepositoryInterface {
	return &CalendarRepository{
		db: db,
	}
}

// CreateDays stores a whole calendar in one transaction. It fails if the
// user already has a calendar with the same ID.
func (r *CalendarRepository) CreateDays(days []models.CalendarDay) error {
	if len(days) == 0 {
		return errors.New("calendar must contain at least one day")
	}

	userID, calendarID := days[0].UserID, days[0].CalendarID
	for i := range days {
		if days[i].UserID != userID || days[i].CalendarID != calendarID {
			return errors.New("all days must belong to the same calendar")
		}
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.CalendarDay{}).
			Where("user_id = ? AND calendar_id = ?", userID, calendarID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check calendar: %w", err)
		}
		if existing > 0 {
			return ErrCalendarAlreadyExists
		}

		if err := tx.CreateInBatches(&days, calendarBatchSize).Error; err != nil {
			if isDuplicateKeyError(err) {
				return ErrCalendarAlreadyExists
			}
			return fmt.Errorf("failed to create calendar days: %w", err)
		}
		return nil
	})
}

// GetDays returns every day of a calendar ordered by date
func (r *CalendarRepository) GetDays(userID uuid.UUID, calendarID string) ([]models.CalendarDay, error) {
	var days []models.CalendarDay
	if err := r.db.Where("user_id = ? AND calendar_id = ?", userID, calendarID).
		Order("date ASC").
		Find(&days).Error; err != nil {
		return nil, fmt.Errorf("failed to get calendar days: %w", err)
	}
	if len(days) == 0 {
		return nil, ErrCalendarNotFound
	}
	return days, nil
}

// GetDay returns a single day of a calendar
func (r *CalendarRepository) GetDay(userID uuid.UUID, calendarID string, date time.Time) (*models.CalendarDay, error) {
	var day models.CalendarDay
	err := r.db.Where("user_id = ? AND calendar_id = ? AND date = ?", userID, calendarID, models.NormalizeDate(date)).
		First(&day).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCalendarDayNotFound
		}
		return nil, fmt.Errorf("failed to get calendar day: %w", err)
	}
	return &day, nil
}

// GetDaysInRange returns the user's days across all calendars with
// start <= date < end, ordered by date then calendar
func (r *CalendarRepository) GetDaysInRange(userID uuid.UUID, start, end time.Time) ([]models.CalendarDay, error) {
	var days []models.CalendarDay
	if err := r.db.Where("user_id = ? AND date >= ? AND date < ?", userID, models.NormalizeDate(start), models.NormalizeDate(end)).
		Order("date ASC").
		Order("calendar_id ASC").
		Find(&days).Error; err != nil {
		return nil, fmt.Errorf("failed to get calendar days in range: %w", err)
	}
	return days, nil
}

// UpdatePlanned replaces the planned mapping of one day
func (r *CalendarRepository) UpdatePlanned(dayID uuid.UUID, planned models.ExpenseMap) error {
	if planned == nil {
		planned = models.ExpenseMap{}
	}

	result := r.db.Model(&models.CalendarDay{}).
		Where("id = ?", dayID).
		Updates(map[string]interface{}{
			"planned":    planned,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update planned expenses: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCalendarDayNotFound
	}
	return nil
}

// SavePlanned writes the planned mapping of several days atomically.
// Either every day is updated or none is.
func (r *CalendarRepository) SavePlanned(days []models.CalendarDay) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for i := range days {
			q := tx.Model(&models.CalendarDay{}).Where("id = ?", days[i].ID)
			if tx.Dialector.Name() == "postgres" {
				q = q.Clauses(clause.Locking{Strength: "UPDATE"})
			}
			planned := days[i].Planned
			if planned == nil {
				planned = models.ExpenseMap{}
			}
			result := q.Updates(map[string]interface{}{
				"planned":    planned,
				"updated_at": now,
			})
			if result.Error != nil {
				return fmt.Errorf("failed to save planned expenses: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return ErrCalendarDayNotFound
			}
			days[i].UpdatedAt = now
		}
		return nil
	})
}
