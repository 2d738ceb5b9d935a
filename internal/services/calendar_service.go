package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"mita-backend/internal/analytics"
	"mita-backend/internal/models"
	"mita-backend/internal/repositories"

	"github.com/google/uuid"
)

var (
	ErrCalendarNotFound    = errors.New("calendar not found")
	ErrCalendarExists      = errors.New("calendar already exists")
	ErrCalendarDayNotFound = errors.New("calendar day not found")
)

type CalendarService struct {
	calendarRepo repositories.CalendarRepositoryInterface
	metrics      MetricsRecorderInterface
}

func NewCalendarService(calendarRepo repositories.CalendarRepositoryInterface, metrics MetricsRecorderInterface) CalendarServiceInterface {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &CalendarService{
		calendarRepo: calendarRepo,
		metrics:      metrics,
	}
}

// Generate spreads the plan over numDays days and stores them as a new
// calendar for the user
func (s *CalendarService) Generate(userID uuid.UUID, calendarID string, start time.Time, numDays int, plan analytics.Expenses) ([]models.CalendarDay, error) {
	cal, err := analytics.GenerateCalendar(calendarID, start, numDays, plan)
	if err != nil {
		return nil, err
	}

	days := make([]models.CalendarDay, len(cal.Days))
	for i, d := range cal.Days {
		days[i] = models.CalendarDay{
			UserID:     userID,
			CalendarID: calendarID,
			Date:       d.Date,
			Planned:    models.ExpenseMap(d.Expenses),
			Spent:      models.ExpenseMap{},
		}
	}

	if err := s.calendarRepo.CreateDays(days); err != nil {
		if errors.Is(err, repositories.ErrCalendarAlreadyExists) {
			return nil, ErrCalendarExists
		}
		return nil, fmt.Errorf("failed to store calendar: %w", err)
	}

	slog.Info("calendar generated",
		"user_id", userID,
		"calendar_id", calendarID,
		"days", numDays)

	return days, nil
}

func (s *CalendarService) Get(userID uuid.UUID, calendarID string) ([]models.CalendarDay, error) {
	days, err := s.calendarRepo.GetDays(userID, calendarID)
	if err != nil {
		if errors.Is(err, repositories.ErrCalendarNotFound) {
			return nil, ErrCalendarNotFound
		}
		return nil, fmt.Errorf("failed to get calendar: %w", err)
	}
	return days, nil
}

// UpdateDay replaces the full planned mapping of one stored day
func (s *CalendarService) UpdateDay(userID uuid.UUID, calendarID string, date time.Time, planned analytics.Expenses) (*models.CalendarDay, error) {
	for _, item := range planned {
		if item.Category == "" {
			return nil, fmt.Errorf("%w: empty category name", analytics.ErrMalformedCalendar)
		}
		if item.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: %s for %q", analytics.ErrInvalidAmount, item.Amount, item.Category)
		}
	}

	day, err := s.calendarRepo.GetDay(userID, calendarID, date)
	if err != nil {
		if errors.Is(err, repositories.ErrCalendarDayNotFound) {
			return nil, ErrCalendarDayNotFound
		}
		return nil, fmt.Errorf("failed to get calendar day: %w", err)
	}

	updated := models.ExpenseMap(planned.Clone())
	if updated == nil {
		updated = models.ExpenseMap{}
	}
	if err := s.calendarRepo.UpdatePlanned(day.ID, updated); err != nil {
		if errors.Is(err, repositories.ErrCalendarDayNotFound) {
			return nil, ErrCalendarDayNotFound
		}
		return nil, fmt.Errorf("failed to update calendar day: %w", err)
	}

	day.Planned = updated
	return day, nil
}

// Redistribute validates a caller supplied calendar and rewrites it
func (s *CalendarService) Redistribute(raw analytics.RawCalendar, strategy string, asOf *time.Time) (plan analytics.RedistributionPlan, err error) {
	defer func(started time.Time) {
		recordOperation(s.metrics, "redistribute", started, err)
	}(time.Now())

	cal, err := analytics.ReadCalendar(raw)
	if err != nil {
		return analytics.RedistributionPlan{}, err
	}

	plan, err = analytics.Redistribute(cal, strategy, analytics.RedistributeOptions{AsOf: asOf})
	if err != nil {
		return analytics.RedistributionPlan{}, err
	}

	s.countRedistribution(plan.Strategy, false)
	return plan, nil
}

// RedistributeStored rewrites the planned amounts of a stored calendar and
// persists every changed day in one database transaction
func (s *CalendarService) RedistributeStored(userID uuid.UUID, calendarID string, strategy string, asOf *time.Time) (plan analytics.RedistributionPlan, err error) {
	defer func(started time.Time) {
		recordOperation(s.metrics, "redistribute_stored", started, err)
	}(time.Now())

	days, err := s.Get(userID, calendarID)
	if err != nil {
		return analytics.RedistributionPlan{}, err
	}

	plan, err = analytics.Redistribute(models.PlannedCalendar(calendarID, days), strategy, analytics.RedistributeOptions{AsOf: asOf})
	if err != nil {
		return analytics.RedistributionPlan{}, err
	}

	for i := range days {
		days[i].Planned = models.ExpenseMap(plan.Days[i].Expenses)
	}

	if err := s.calendarRepo.SavePlanned(days); err != nil {
		return analytics.RedistributionPlan{}, fmt.Errorf("failed to save redistribution: %w", err)
	}

	s.countRedistribution(plan.Strategy, true)
	slog.Info("calendar redistributed",
		"user_id", userID,
		"calendar_id", calendarID,
		"strategy", plan.Strategy)

	return plan, nil
}

func (s *CalendarService) BuildShell(cfg analytics.ShellConfig) (cal analytics.Calendar, err error) {
	defer func(started time.Time) {
		recordOperation(s.metrics, "shell", started, err)
	}(time.Now())

	return analytics.BuildShell(cfg)
}

func (s *CalendarService) countRedistribution(strategy analytics.Strategy, stored bool) {
	s.metrics.IncrementCounter(MetricRedistribution, map[string]string{
		"strategy": string(strategy),
		"stored":   strconv.FormatBool(stored),
	})
}
