package dto

import (
	"mita-backend/internal/analytics"

	"github.com/shopspring/decimal"
)

// CalendarRequest carries a caller supplied calendar for stateless analysis
type CalendarRequest struct {
	Calendar analytics.RawCalendar `json:"calendar"`
}

// AnomalyRequest runs day anomaly detection over a supplied calendar
type AnomalyRequest struct {
	Calendar  analytics.RawCalendar `json:"calendar"`
	Threshold *decimal.Decimal      `json:"threshold"`
}

// MonthlySummaryResponse is the category breakdown of one stored month
type MonthlySummaryResponse struct {
	Period      string                    `json:"period"`
	Spent       analytics.AggregateResult `json:"spent"`
	Planned     analytics.AggregateResult `json:"planned"`
	Remaining   decimal.Decimal           `json:"remaining"`
	Transaction int64                     `json:"transaction_count"`
}

// TrendResponse is a month-over-month trend
type TrendResponse struct {
	Months int                    `json:"months"`
	Points []analytics.TrendPoint `json:"points"`
}

// DriftRequest records a drift value for a month
type DriftRequest struct {
	Month string          `json:"month" validate:"required,datetime=2006-01"`
	Value decimal.Decimal `json:"value"`
}
