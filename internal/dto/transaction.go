package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateTransactionRequest records a single expense
type CreateTransactionRequest struct {
	Category    string          `json:"category" validate:"required,category"`
	Amount      decimal.Decimal `json:"amount" validate:"decimal_amount,positive_amount"`
	SpentAt     *time.Time      `json:"spent_at"`
	CalendarID  string          `json:"calendar_id" validate:"max=64"`
	Description string          `json:"description" validate:"max=500"`
}

// TransactionListResponse lists a month of transactions
type TransactionListResponse struct {
	Year         int                   `json:"year"`
	Month        int                   `json:"month"`
	Total        decimal.Decimal       `json:"total"`
	Transactions []TransactionResponse `json:"transactions"`
}

// TransactionResponse is a recorded expense
type TransactionResponse struct {
	ID          string          `json:"id"`
	CalendarID  string          `json:"calendar_id"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	SpentAt     time.Time       `json:"spent_at"`
	CreatedAt   time.Time       `json:"created_at"`
}
