package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mita-backend/internal/analytics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultCalendarID holds days created implicitly by recorded transactions
const DefaultCalendarID = "default"

var ErrInvalidCalendarDay = errors.New("invalid calendar day")

// ExpenseMap stores an ordered category -> amount mapping as a JSON column
type ExpenseMap analytics.Expenses

// Value implements driver.Valuer interface
func (m ExpenseMap) Value() (driver.Value, error) {
	data, err := analytics.Expenses(m).MarshalJSON()
	if err != nil {
		return nil, err
	}
	// Return string for SQLite compatibility
	return string(data), nil
}

// Scan implements sql.Scanner interface
func (m *ExpenseMap) Scan(value interface{}) error {
	if value == nil {
		*m = ExpenseMap{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ExpenseMap", value)
	}

	if len(data) == 0 {
		*m = ExpenseMap{}
		return nil
	}

	var e analytics.Expenses
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	*m = ExpenseMap(e)
	return nil
}

func (m ExpenseMap) MarshalJSON() ([]byte, error) {
	return analytics.Expenses(m).MarshalJSON()
}

func (m *ExpenseMap) UnmarshalJSON(data []byte) error {
	var e analytics.Expenses
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	*m = ExpenseMap(e)
	return nil
}

// CalendarDay is one stored day of a user's budget calendar. Planned holds
// the budgeted amount per category; Spent accumulates recorded transactions.
type CalendarDay struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_calendar_day" json:"user_id"`
	CalendarID string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_calendar_day" json:"calendar_id"`
	Date       time.Time  `gorm:"type:date;not null;uniqueIndex:idx_calendar_day;index" json:"date"`
	Planned    ExpenseMap `gorm:"type:text;not null" json:"planned"`
	Spent      ExpenseMap `gorm:"type:text;not null" json:"spent"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updated_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (d *CalendarDay) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Planned == nil {
		d.Planned = ExpenseMap{}
	}
	if d.Spent == nil {
		d.Spent = ExpenseMap{}
	}

	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = now
	}

	return d.Validate()
}

func (d *CalendarDay) Validate() error {
	if d.UserID == uuid.Nil {
		return fmt.Errorf("%w: user ID is required", ErrInvalidCalendarDay)
	}
	if d.CalendarID == "" {
		return fmt.Errorf("%w: calendar ID is required", ErrInvalidCalendarDay)
	}
	if d.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidCalendarDay)
	}
	for _, m := range []ExpenseMap{d.Planned, d.Spent} {
		for _, item := range m {
			if item.Category == "" || item.Amount.IsNegative() {
				return fmt.Errorf("%w: bad entry %q=%s", ErrInvalidCalendarDay, item.Category, item.Amount)
			}
		}
	}
	return nil
}

// PlannedDay converts the planned budget into an analytics day
func (d *CalendarDay) PlannedDay() analytics.Day {
	return analytics.Day{Date: NormalizeDate(d.Date), Expenses: analytics.Expenses(d.Planned).Clone()}
}

// SpentDay converts recorded spending into an analytics day
func (d *CalendarDay) SpentDay() analytics.Day {
	return analytics.Day{Date: NormalizeDate(d.Date), Expenses: analytics.Expenses(d.Spent).Clone()}
}

func (d *CalendarDay) TableName() string {
	return "calendar_days"
}

// NormalizeDate truncates t to a UTC calendar date
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PlannedCalendar builds an analytics calendar from ordered day rows
func PlannedCalendar(calendarID string, days []CalendarDay) analytics.Calendar {
	cal := analytics.Calendar{ID: calendarID, Days: make([]analytics.Day, 0, len(days))}
	for i := range days {
		cal.Days = append(cal.Days, days[i].PlannedDay())
	}
	return cal
}
