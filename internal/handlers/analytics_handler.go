package handlers

import (
	stderrors "errors"
	"net/http"
	"time"

	"mita-backend/internal/drift"
	"mita-backend/internal/dto"
	"mita-backend/internal/errors"
	"mita-backend/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// AnalyticsHandler exposes the analytics core over stored and supplied data
type AnalyticsHandler struct {
	analyticsService services.AnalyticsServiceInterface
	driftService     services.DriftServiceInterface
	now              func() time.Time
}

// NewAnalyticsHandler creates the handler. driftService may be nil, in which
// case the drift endpoints answer 503.
func NewAnalyticsHandler(analyticsService services.AnalyticsServiceInterface, driftService services.DriftServiceInterface) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		driftService:     driftService,
		now:              time.Now,
	}
}

// Monthly returns the category breakdown of a stored month
// GET /analytics/monthly?year=&month=
func (h *AnalyticsHandler) Monthly(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	year, month, err := getYearMonth(c, h.now())
	if err != nil {
		return SendError(c, errors.AnalyticsInvalidPeriod, errors.WithDetails(err.Error()))
	}

	summary, err := h.analyticsService.MonthlySummary(userID, year, month)
	if err != nil {
		return sendCalendarError(c, err)
	}

	return sendData(c, http.StatusOK, summary, "")
}

// Trend returns month-over-month spending
// GET /analytics/trend?months=N
func (h *AnalyticsHandler) Trend(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	points, err := h.analyticsService.Trend(userID, getIntParam(c, "months", 0))
	if err != nil {
		return SendSystemError(c, err)
	}

	return sendData(c, http.StatusOK, dto.TrendResponse{Months: len(points), Points: points}, "")
}

// Aggregate totals a supplied calendar by category
// POST /analytics/aggregate
func (h *AnalyticsHandler) Aggregate(c echo.Context) error {
	var req dto.CalendarRequest
	if err := c.Bind(&req); err != nil {
		return sendBindError(c, err)
	}

	result, err := h.analyticsService.Aggregate(req.Calendar)
	if err != nil {
		return sendCalendarError(c, err)
	}

	return sendData(c, http.StatusOK, result, "")
}

// DetectAnomalies flags unusual days of a supplied calendar
// POST /analytics/anomalies
func (h *AnalyticsHandler) DetectAnomalies(c echo.Context) error {
	var req dto.AnomalyRequest
	if err := c.Bind(&req); err != nil {
		return sendBindError(c, err)
	}

	threshold := decimal.Zero
	if req.Threshold != nil {
		if !req.Threshold.IsPositive() {
			return SendError(c, errors.AnalyticsInvalidThreshold)
		}
		threshold = *req.Threshold
	}

	report, err := h.analyticsService.DetectAnomalies(req.Calendar, threshold)
	if err != nil {
		return sendCalendarError(c, err)
	}

	return sendData(c, http.StatusOK, report, "")
}

// MonthAnomalies flags unusual days of the user's stored month
// GET /analytics/anomalies?year=&month=&threshold=
func (h *AnalyticsHandler) MonthAnomalies(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	year, month, err := getYearMonth(c, h.now())
	if err != nil {
		return SendError(c, errors.AnalyticsInvalidPeriod, errors.WithDetails(err.Error()))
	}

	threshold, err := getThreshold(c)
	if err != nil {
		return SendError(c, errors.AnalyticsInvalidThreshold)
	}

	report, err := h.analyticsService.MonthAnomalies(c.Request().Context(), userID, year, month, threshold)
	if err != nil {
		return sendCalendarError(c, err)
	}

	return sendData(c, http.StatusOK, report, "")
}

// CategoryAnomalies compares this month's categories against history
// GET /analytics/anomalies/categories?months=N&threshold=
func (h *AnalyticsHandler) CategoryAnomalies(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	threshold, err := getThreshold(c)
	if err != nil {
		return SendError(c, errors.AnalyticsInvalidThreshold)
	}

	report, err := h.analyticsService.CategoryAnomalies(userID, getIntParam(c, "months", 0), threshold)
	if err != nil {
		return SendSystemError(c, err)
	}

	return sendData(c, http.StatusOK, report, "")
}

// RecordDrift stores the user's drift value for a month
// POST /analytics/drift
func (h *AnalyticsHandler) RecordDrift(c echo.Context) error {
	if h.driftService == nil {
		return SendError(c, errors.AnalyticsDriftUnavailable)
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var req dto.DriftRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	if err := h.driftService.Record(c.Request().Context(), userID, req.Month, req.Value); err != nil {
		if stderrors.Is(err, drift.ErrInvalidEntry) {
			return SendError(c, errors.ValidationInvalidDate, errors.WithDetails(err.Error()))
		}
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Drift recorded successfully",
	})
}

// GetDrift returns the drift of a month with the user's history
// GET /analytics/drift?month=YYYY-MM
func (h *AnalyticsHandler) GetDrift(c echo.Context) error {
	if h.driftService == nil {
		return SendError(c, errors.AnalyticsDriftUnavailable)
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	month := c.QueryParam("month")
	if month == "" {
		month = h.now().UTC().Format(drift.MonthLayout)
	}

	report, err := h.driftService.Report(c.Request().Context(), userID, month)
	if err != nil {
		if stderrors.Is(err, drift.ErrInvalidEntry) {
			return SendError(c, errors.ValidationInvalidDate, errors.WithDetails(err.Error()))
		}
		return SendSystemError(c, err)
	}

	return sendData(c, http.StatusOK, report, "")
}
