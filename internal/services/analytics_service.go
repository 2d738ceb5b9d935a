package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"mita-backend/internal/analytics"
	"mita-backend/internal/config"
	"mita-backend/internal/dto"
	"mita-backend/internal/models"
	"mita-backend/internal/notifications"
	"mita-backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodLayout labels calendar months in trends and reports
const PeriodLayout = "2006-01"

type AnalyticsService struct {
	calendarRepo    repositories.CalendarRepositoryInterface
	transactionRepo repositories.TransactionRepositoryInterface
	notifier        NotificationServiceInterface
	config          config.AnalyticsConfig
	metrics         MetricsRecorderInterface
	now             func() time.Time
}

// NewAnalyticsService wires the analytics core to stored data. notifier may
// be nil, which disables severe anomaly notifications.
func NewAnalyticsService(
	calendarRepo repositories.CalendarRepositoryInterface,
	transactionRepo repositories.TransactionRepositoryInterface,
	notifier NotificationServiceInterface,
	cfg config.AnalyticsConfig,
	metrics MetricsRecorderInterface,
) AnalyticsServiceInterface {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if cfg.TrendMonths <= 0 {
		cfg.TrendMonths = 6
	}
	if cfg.MaxTrendMonths < cfg.TrendMonths {
		cfg.MaxTrendMonths = cfg.TrendMonths
	}
	if cfg.CategoryHistory < analytics.MinAnomalyPoints {
		cfg.CategoryHistory = 6
	}
	return &AnalyticsService{
		calendarRepo:    calendarRepo,
		transactionRepo: transactionRepo,
		notifier:        notifier,
		config:          cfg,
		metrics:         metrics,
		now:             time.Now,
	}
}

// MonthlySummary aggregates planned and spent amounts of every calendar
// day the user has in the month
func (s *AnalyticsService) MonthlySummary(userID uuid.UUID, year int, month time.Month) (resp *dto.MonthlySummaryResponse, err error) {
	defer func(started time.Time) {
		recordOperation(s.metrics, "monthly_summary", started, err)
	}(time.Now())

	start, end, err := monthRange(year, month)
	if err != nil {
		return nil, err
	}

	days, err := s.calendarRepo.GetDaysInRange(userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load month: %w", err)
	}

	transactions, err := s.transactionRepo.ListByUserInRange(userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	spent := analytics.Aggregate(mergeDays(days, spentOf))
	planned := analytics.Aggregate(mergeDays(days, plannedOf))

	return &dto.MonthlySummaryResponse{
		Period:      start.Format(PeriodLayout),
		Spent:       spent,
		Planned:     planned,
		Remaining:   planned.Total.Sub(spent.Total),
		Transaction: int64(len(transactions)),
	}, nil
}

// Trend computes month-over-month spending for the last months calendar
// months, the current month included
func (s *AnalyticsService) Trend(userID uuid.UUID, months int) (points []analytics.TrendPoint, err error) {
	defer func(started time.Time) {
		recordOperation(s.metrics, "trend", started, err)
	}(time.Now())

	history, err := s.spendingHistory(userID, s.clampMonths(months, s.config.TrendMonths))
	if err != nil {
		return nil, err
	}
	return analytics.MonthlyTrend(history), nil
}

// MonthAnomalies runs day anomaly detection over the month's recorded
// transactions, grouped by day. Every elapsed day of the month takes part,
// days without spending counting as zero. Fewer than
// analytics.MinAnomalyPoints days with spending is reported as insufficient
// data. Severe flags in the current month are pushed to the user.
func (s *AnalyticsService) MonthAnomalies(ctx context.Context, userID uuid.UUID, year int, month time.Month, threshold decimal.Decimal) (report analytics.AnomalyReport, err error) {
	defer func(started time.Time) {
		recordOperation(s.metrics, "month_anomalies", started, err)
	}(time.Now())

	start, end, err := monthRange(year, month)
	if err != nil {
		return analytics.AnomalyReport{}, err
	}

	transactions, err := s.transactionRepo.ListByUserInRange(userID, start, end)
	if err != nil {
		return analytics.AnomalyReport{}, fmt.Errorf("failed to load transactions: %w", err)
	}

	spending := groupByDay(transactions)
	if len(spending.Days) < analytics.MinAnomalyPoints {
		return analytics.AnomalyReport{
			Threshold:        s.threshold(threshold),
			InsufficientData: true,
			Flags:            []analytics.AnomalyFlag{},
		}, nil
	}

	until := end
	if tomorrow := models.NormalizeDate(s.now().UTC()).AddDate(0, 0, 1); tomorrow.Before(until) {
		until = tomorrow
	}
	report = analytics.DetectAnomalies(fillDays(spending, start, until), s.threshold(threshold))
	s.countFlags(report)

	if s.isCurrentMonth(start) {
		s.notifySevere(ctx, userID, report)
	}

	return report, nil
}

// CategoryAnomalies compares each category's spending in the current month
// against the preceding months
func (s *AnalyticsService) CategoryAnomalies(userID uuid.UUID, months int, threshold decimal.Decimal) (report analytics.AnomalyReport, err error) {
	defer func(started time.Time) {
		recordOperation(s.metrics, "category_anomalies", started, err)
	}(time.Now())

	history, err := s.spendingHistory(userID, s.clampMonths(months, s.config.CategoryHistory))
	if err != nil {
		return analytics.AnomalyReport{}, err
	}

	report = analytics.DetectCategoryAnomalies(history, s.threshold(threshold))
	s.countFlags(report)
	return report, nil
}

func (s *AnalyticsService) Aggregate(raw analytics.RawCalendar) (result analytics.AggregateResult, err error) {
	defer func(started time.Time) {
		recordOperation(s.metrics, "aggregate", started, err)
	}(time.Now())

	cal, err := analytics.ReadCalendar(raw)
	if err != nil {
		return analytics.AggregateResult{}, err
	}
	return analytics.Aggregate(cal), nil
}

func (s *AnalyticsService) DetectAnomalies(raw analytics.RawCalendar, threshold decimal.Decimal) (report analytics.AnomalyReport, err error) {
	defer func(started time.Time) {
		recordOperation(s.metrics, "detect_anomalies", started, err)
	}(time.Now())

	cal, err := analytics.ReadCalendar(raw)
	if err != nil {
		return analytics.AnomalyReport{}, err
	}

	report = analytics.DetectAnomalies(cal, s.threshold(threshold))
	s.countFlags(report)
	return report, nil
}

// spendingHistory loads the last months months of spending with a single
// range query and buckets it per month, oldest first. Months without data
// are present with an empty calendar.
func (s *AnalyticsService) spendingHistory(userID uuid.UUID, months int) ([]analytics.PeriodCalendar, error) {
	now := s.now().UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	first := current.AddDate(0, -(months - 1), 0)
	end := current.AddDate(0, 1, 0)

	days, err := s.calendarRepo.GetDaysInRange(userID, first, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load spending history: %w", err)
	}

	buckets := make(map[string][]models.CalendarDay, months)
	for _, d := range days {
		period := d.Date.Format(PeriodLayout)
		buckets[period] = append(buckets[period], d)
	}

	history := make([]analytics.PeriodCalendar, 0, months)
	for i := 0; i < months; i++ {
		period := first.AddDate(0, i, 0).Format(PeriodLayout)
		history = append(history, analytics.PeriodCalendar{
			Period:   period,
			Calendar: mergeDays(buckets[period], spentOf),
		})
	}
	return history, nil
}

func (s *AnalyticsService) clampMonths(months, fallback int) int {
	if months <= 0 {
		months = fallback
	}
	if months > s.config.MaxTrendMonths {
		months = s.config.MaxTrendMonths
	}
	return months
}

func (s *AnalyticsService) threshold(threshold decimal.Decimal) decimal.Decimal {
	if threshold.IsPositive() {
		return threshold
	}
	if s.config.AnomalyThreshold > 0 {
		return decimal.NewFromFloat(s.config.AnomalyThreshold)
	}
	return analytics.DefaultThreshold
}

func (s *AnalyticsService) isCurrentMonth(start time.Time) bool {
	now := s.now().UTC()
	return now.Year() == start.Year() && now.Month() == start.Month()
}

func (s *AnalyticsService) countFlags(report analytics.AnomalyReport) {
	for _, f := range report.Flags {
		s.metrics.IncrementCounter(MetricAnomalyFlagged, map[string]string{
			"kind":     string(f.Kind),
			"severity": string(f.Severity),
		})
	}
}

func (s *AnalyticsService) notifySevere(ctx context.Context, userID uuid.UUID, report analytics.AnomalyReport) {
	if s.notifier == nil || !s.config.NotifySevereAnomaly {
		return
	}

	for _, flag := range report.Severe() {
		event := notifications.NewEvent(userID, notifications.ChannelPush,
			"Unusual spending",
			fmt.Sprintf("You spent %s on %s, well above your usual %s.", flag.Observed.StringFixed(2), flag.Subject, flag.Baseline.StringFixed(2)))
		event.Data = map[string]string{
			"type": "anomaly",
			"date": flag.Subject,
		}

		if err := s.notifier.Enqueue(ctx, event); err != nil {
			slog.WarnContext(ctx, "failed to enqueue anomaly notification",
				"user_id", userID,
				"date", flag.Subject,
				"error", err)
		}
	}
}

func spentOf(d *models.CalendarDay) models.ExpenseMap {
	return d.Spent
}

func plannedOf(d *models.CalendarDay) models.ExpenseMap {
	return d.Planned
}

// mergeDays folds date-ordered rows into one analytics day per date, summing
// the picked mapping of rows from different calendars
func mergeDays(days []models.CalendarDay, pick func(*models.CalendarDay) models.ExpenseMap) analytics.Calendar {
	cal := analytics.Calendar{Days: make([]analytics.Day, 0, len(days))}
	for i := range days {
		date := models.NormalizeDate(days[i].Date)
		n := len(cal.Days)
		if n == 0 || !cal.Days[n-1].Date.Equal(date) {
			cal.Days = append(cal.Days, analytics.Day{Date: date})
			n++
		}
		for _, item := range pick(&days[i]) {
			cal.Days[n-1].Expenses.Add(item.Category, item.Amount)
		}
	}
	return cal
}

// groupByDay builds a calendar with one day per date that has transactions
func groupByDay(transactions []models.Transaction) analytics.Calendar {
	cal := analytics.Calendar{}
	index := make(map[time.Time]int)
	for i := range transactions {
		day := transactions[i].Day()
		pos, ok := index[day]
		if !ok {
			pos = len(cal.Days)
			index[day] = pos
			cal.Days = append(cal.Days, analytics.Day{Date: day})
		}
		cal.Days[pos].Expenses.Add(transactions[i].Category, transactions[i].Amount)
	}

	slices.SortFunc(cal.Days, func(a, b analytics.Day) int {
		return a.Date.Compare(b.Date)
	})
	return cal
}

// fillDays returns one day per date in [start, end), taking days from cal
// where present and empty days elsewhere
func fillDays(cal analytics.Calendar, start, end time.Time) analytics.Calendar {
	byDate := make(map[time.Time]analytics.Day, len(cal.Days))
	for _, d := range cal.Days {
		byDate[d.Date] = d
	}

	out := analytics.Calendar{ID: cal.ID}
	for date := start; date.Before(end); date = date.AddDate(0, 0, 1) {
		day, ok := byDate[date]
		if !ok {
			day = analytics.Day{Date: date}
		}
		out.Days = append(out.Days, day)
	}
	return out
}
