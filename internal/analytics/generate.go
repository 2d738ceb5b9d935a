package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FlexibleCategory receives the flexible budget of a shell calendar built
// without category weights
const FlexibleCategory = "flexible"

// GenerateCalendar builds numDays consecutive days starting at start and
// spreads each planned category amount evenly across them
func GenerateCalendar(id string, start time.Time, numDays int, plan Expenses) (Calendar, error) {
	if numDays < 1 {
		return Calendar{}, fmt.Errorf("%w: num_days must be positive, got %d", ErrMalformedCalendar, numDays)
	}
	for _, item := range plan {
		if item.Category == "" {
			return Calendar{}, fmt.Errorf("%w: empty category name", ErrMalformedCalendar)
		}
		if item.Amount.IsNegative() {
			return Calendar{}, fmt.Errorf("%w: %s for %q", ErrInvalidAmount, item.Amount, item.Category)
		}
	}

	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	cal := Calendar{ID: id, Days: make([]Day, numDays)}
	for i := range cal.Days {
		cal.Days[i] = Day{Date: start.AddDate(0, 0, i), Expenses: make(Expenses, 0, len(plan))}
	}

	scale := Calendar{Days: []Day{{Expenses: plan}}}.scale()
	weights := StrategyBalance.weights(numDays)
	for _, item := range plan {
		shares := Allocate(item.Amount, weights, scale)
		for i := range cal.Days {
			cal.Days[i].Expenses = append(cal.Days[i].Expenses, CategoryAmount{Category: item.Category, Amount: shares[i]})
		}
	}

	return cal, nil
}

// ShellConfig describes a monthly budget from income and commitments
type ShellConfig struct {
	CalendarID    string
	SavingsTarget decimal.Decimal
	Income        decimal.Decimal
	Fixed         Expenses
	Weights       Expenses
	Year          int
	Month         time.Month
}

// BuildShell lays out a month: fixed costs land on the first day and the
// flexible budget (income minus savings minus fixed costs) is split across
// weighted categories and spread evenly over every day of the month
func BuildShell(cfg ShellConfig) (Calendar, error) {
	if cfg.Month < time.January || cfg.Month > time.December {
		return Calendar{}, fmt.Errorf("%w: month %d out of range", ErrMalformedCalendar, cfg.Month)
	}
	if cfg.Income.IsNegative() || cfg.SavingsTarget.IsNegative() {
		return Calendar{}, fmt.Errorf("%w: income and savings target must be non-negative", ErrInvalidAmount)
	}
	for _, w := range cfg.Weights {
		if w.Amount.IsNegative() {
			return Calendar{}, fmt.Errorf("%w: weight for %q is negative", ErrInvalidAmount, w.Category)
		}
	}

	flexible := cfg.Income.Sub(cfg.SavingsTarget).Sub(cfg.Fixed.Total())
	if flexible.IsNegative() {
		return Calendar{}, fmt.Errorf("%w: fixed costs and savings exceed income by %s", ErrInvalidAmount, flexible.Neg())
	}

	var plan Expenses
	if len(cfg.Weights) == 0 || cfg.Weights.Total().IsZero() {
		plan = Expenses{{Category: FlexibleCategory, Amount: flexible}}
	} else {
		shares := Allocate(flexible, decimalWeights(cfg.Weights), max(-flexible.Exponent(), 2))
		plan = make(Expenses, 0, len(cfg.Weights))
		for i, w := range cfg.Weights {
			plan = append(plan, CategoryAmount{Category: w.Category, Amount: shares[i]})
		}
	}

	first := time.Date(cfg.Year, cfg.Month, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()

	cal, err := GenerateCalendar(cfg.CalendarID, first, days, plan)
	if err != nil {
		return Calendar{}, err
	}

	for _, fixed := range cfg.Fixed {
		cal.Days[0].Expenses.Add(fixed.Category, fixed.Amount)
	}

	return cal, nil
}

// decimalWeights scales decimal weights to integers without losing precision
func decimalWeights(weights Expenses) []int64 {
	var places int32
	for _, w := range weights {
		if -w.Amount.Exponent() > places {
			places = -w.Amount.Exponent()
		}
	}
	out := make([]int64, len(weights))
	for i, w := range weights {
		out[i] = w.Amount.Shift(places).IntPart()
	}
	return out
}
