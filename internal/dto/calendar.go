package dto

import (
	"mita-backend/internal/analytics"

	"github.com/shopspring/decimal"
)

// GenerateCalendarRequest creates a stored calendar from a monthly budget plan
type GenerateCalendarRequest struct {
	CalendarID string             `json:"calendar_id" validate:"required,max=64"`
	StartDate  string             `json:"start_date" validate:"required,datetime=2006-01-02"`
	NumDays    int                `json:"num_days" validate:"required,min=1,max=366"`
	BudgetPlan analytics.Expenses `json:"budget_plan" validate:"required"`
}

// UpdateDayRequest replaces the planned mapping of one day
type UpdateDayRequest struct {
	Updates analytics.Expenses `json:"updates"`
}

// RedistributeRequest rewrites a caller supplied calendar
type RedistributeRequest struct {
	Calendar analytics.RawCalendar `json:"calendar"`
	Strategy string                `json:"strategy" validate:"omitempty,strategy"`
	AsOf     string                `json:"as_of" validate:"omitempty,datetime=2006-01-02"`
}

// RedistributeStoredRequest rewrites a stored calendar
type RedistributeStoredRequest struct {
	Strategy string `json:"strategy" validate:"omitempty,strategy"`
	AsOf     string `json:"as_of" validate:"omitempty,datetime=2006-01-02"`
}

// ShellRequest lays out a month from income, savings and fixed costs
type ShellRequest struct {
	CalendarID    string             `json:"calendar_id" validate:"max=64"`
	SavingsTarget decimal.Decimal    `json:"savings_target" validate:"decimal_amount"`
	Income        decimal.Decimal    `json:"income" validate:"decimal_amount"`
	Fixed         analytics.Expenses `json:"fixed"`
	Weights       analytics.Expenses `json:"weights"`
	Year          int                `json:"year" validate:"required,min=1970,max=9999"`
	Month         int                `json:"month" validate:"required,min=1,max=12"`
}

// RedistributionResponse is a rewritten calendar with the strategy applied
type RedistributionResponse struct {
	CalendarID string          `json:"calendar_id,omitempty"`
	Strategy   string          `json:"strategy"`
	AsOf       string          `json:"as_of,omitempty"`
	Days       []analytics.Day `json:"days"`
	Total      decimal.Decimal `json:"total"`
}

// NewRedistributionResponse flattens a redistribution plan for the wire
func NewRedistributionResponse(plan analytics.RedistributionPlan) RedistributionResponse {
	resp := RedistributionResponse{
		CalendarID: plan.ID,
		Strategy:   string(plan.Strategy),
		Days:       plan.Days,
		Total:      plan.Total(),
	}
	if plan.AsOf != nil {
		resp.AsOf = plan.AsOf.Format(analytics.DateLayout)
	}
	if resp.Days == nil {
		resp.Days = []analytics.Day{}
	}
	return resp
}

// CalendarResponse is a calendar with its planned and recorded totals
type CalendarResponse struct {
	CalendarID string          `json:"calendar_id"`
	Days       []CalendarDay   `json:"days"`
	Planned    decimal.Decimal `json:"planned_total"`
	Spent      decimal.Decimal `json:"spent_total"`
}

// CalendarDay is one stored day with both its plan and its spending
type CalendarDay struct {
	Date    string             `json:"date"`
	Planned analytics.Expenses `json:"planned"`
	Spent   analytics.Expenses `json:"spent"`
}
