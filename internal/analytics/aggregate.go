package analytics

import (
	"github.com/shopspring/decimal"
)

// CategoryTotal is a category and its summed amount across a period
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// AggregateResult holds per-category totals and the grand total of a period
type AggregateResult struct {
	Categories []CategoryTotal `json:"categories"`
	Total      decimal.Decimal `json:"total"`
}

// Aggregate sums amounts per category across every day of the calendar.
// Categories are listed in order of first appearance.
func Aggregate(cal Calendar) AggregateResult {
	var sums Expenses
	for _, day := range cal.Days {
		for _, item := range day.Expenses {
			sums.Add(item.Category, item.Amount)
		}
	}

	result := AggregateResult{
		Categories: make([]CategoryTotal, 0, len(sums)),
		Total:      decimal.Zero,
	}
	for _, item := range sums {
		result.Categories = append(result.Categories, CategoryTotal{Category: item.Category, Amount: item.Amount})
		result.Total = result.Total.Add(item.Amount)
	}

	return result
}

// Lookup returns the total for a category, or zero when it never appeared
func (r AggregateResult) Lookup(category string) decimal.Decimal {
	for _, c := range r.Categories {
		if c.Category == category {
			return c.Amount
		}
	}
	return decimal.Zero
}
