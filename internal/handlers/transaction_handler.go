package handlers

import (
	stderrors "errors"
	"net/http"
	"time"

	"mita-backend/internal/dto"
	"mita-backend/internal/errors"
	"mita-backend/internal/models"
	"mita-backend/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// TransactionHandler records expenses and lists them by month
type TransactionHandler struct {
	transactionService services.TransactionServiceInterface
	now                func() time.Time
}

func NewTransactionHandler(transactionService services.TransactionServiceInterface) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		now:                time.Now,
	}
}

// Create records an expense against the user's calendar day
// POST /transactions
func (h *TransactionHandler) Create(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var req dto.CreateTransactionRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	transaction, err := h.transactionService.Record(userID, &req)
	if err != nil {
		if stderrors.Is(err, services.ErrInvalidTransaction) {
			return SendError(c, errors.TransactionValidationFailed, errors.WithDetails(err.Error()))
		}
		return SendSystemError(c, err)
	}

	return sendData(c, http.StatusCreated, toTransactionResponse(transaction), "Transaction recorded successfully")
}

// List returns the user's transactions of one month
// GET /transactions?year=&month=
func (h *TransactionHandler) List(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	year, month, err := getYearMonth(c, h.now())
	if err != nil {
		return SendError(c, errors.AnalyticsInvalidPeriod, errors.WithDetails(err.Error()))
	}

	transactions, err := h.transactionService.ListMonth(userID, year, month)
	if err != nil {
		if stderrors.Is(err, services.ErrInvalidPeriod) {
			return SendError(c, errors.AnalyticsInvalidPeriod, errors.WithDetails(err.Error()))
		}
		return SendSystemError(c, err)
	}

	resp := dto.TransactionListResponse{
		Year:         year,
		Month:        int(month),
		Total:        decimal.Zero,
		Transactions: make([]dto.TransactionResponse, len(transactions)),
	}
	for i := range transactions {
		resp.Transactions[i] = toTransactionResponse(&transactions[i])
		resp.Total = resp.Total.Add(transactions[i].Amount)
	}

	return sendData(c, http.StatusOK, resp, "")
}

func toTransactionResponse(t *models.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:          t.ID.String(),
		CalendarID:  t.CalendarID,
		Category:    t.Category,
		Amount:      t.Amount,
		Description: t.Description,
		SpentAt:     t.SpentAt,
		CreatedAt:   t.CreatedAt,
	}
}
