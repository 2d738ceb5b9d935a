package handlers

import (
	stderrors "errors"
	"net/http"
	"time"

	"mita-backend/internal/analytics"
	"mita-backend/internal/dto"
	"mita-backend/internal/errors"
	"mita-backend/internal/models"
	"mita-backend/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// CalendarHandler serves stored calendars and the stateless calendar tools
type CalendarHandler struct {
	calendarService services.CalendarServiceInterface
}

func NewCalendarHandler(calendarService services.CalendarServiceInterface) *CalendarHandler {
	return &CalendarHandler{calendarService: calendarService}
}

// Generate spreads a monthly plan over new calendar days
// POST /calendar/generate
func (h *CalendarHandler) Generate(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var req dto.GenerateCalendarRequest
	if err := c.Bind(&req); err != nil {
		return sendBindError(c, err)
	}

	if err := c.Validate(req); err != nil {
		return err
	}

	start, err := analytics.ParseDate(req.StartDate)
	if err != nil {
		return SendError(c, errors.ValidationInvalidDate, errors.WithDetails("start_date must be YYYY-MM-DD"))
	}

	days, err := h.calendarService.Generate(userID, req.CalendarID, start, req.NumDays, req.BudgetPlan)
	if err != nil {
		return sendCalendarError(c, err)
	}

	return sendData(c, http.StatusCreated, toCalendarResponse(req.CalendarID, days), "Calendar generated successfully")
}

// Get returns a stored calendar
// GET /calendar/:calendarId
func (h *CalendarHandler) Get(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	calendarID := c.Param("calendarId")
	days, err := h.calendarService.Get(userID, calendarID)
	if err != nil {
		return sendCalendarError(c, err)
	}

	return sendData(c, http.StatusOK, toCalendarResponse(calendarID, days), "")
}

// UpdateDay replaces the planned mapping of one day
// PATCH /calendar/:calendarId/days/:date
func (h *CalendarHandler) UpdateDay(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	date, err := analytics.ParseDate(c.Param("date"))
	if err != nil {
		return SendError(c, errors.ValidationInvalidDate, errors.WithDetails("date must be YYYY-MM-DD"))
	}

	var req dto.UpdateDayRequest
	if err := c.Bind(&req); err != nil {
		return sendBindError(c, err)
	}

	day, err := h.calendarService.UpdateDay(userID, c.Param("calendarId"), date, req.Updates)
	if err != nil {
		return sendCalendarError(c, err)
	}

	return sendData(c, http.StatusOK, toCalendarDay(*day), "Calendar day updated successfully")
}

// Redistribute rewrites a calendar supplied in the request
// POST /calendar/redistribute
func (h *CalendarHandler) Redistribute(c echo.Context) error {
	var req dto.RedistributeRequest
	if err := c.Bind(&req); err != nil {
		return sendBindError(c, err)
	}

	if err := c.Validate(req); err != nil {
		return err
	}

	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		return SendError(c, errors.ValidationInvalidDate, errors.WithDetails("as_of must be YYYY-MM-DD"))
	}

	plan, err := h.calendarService.Redistribute(req.Calendar, req.Strategy, asOf)
	if err != nil {
		return sendCalendarError(c, err)
	}

	return sendData(c, http.StatusOK, dto.NewRedistributionResponse(plan), "")
}

// RedistributeStored rewrites and persists a stored calendar
// POST /calendar/:calendarId/redistribute
func (h *CalendarHandler) RedistributeStored(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var req dto.RedistributeStoredRequest
	if err := c.Bind(&req); err != nil {
		return sendBindError(c, err)
	}

	if err := c.Validate(req); err != nil {
		return err
	}

	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		return SendError(c, errors.ValidationInvalidDate, errors.WithDetails("as_of must be YYYY-MM-DD"))
	}

	plan, err := h.calendarService.RedistributeStored(userID, c.Param("calendarId"), req.Strategy, asOf)
	if err != nil {
		return sendCalendarError(c, err)
	}

	return sendData(c, http.StatusOK, dto.NewRedistributionResponse(plan), "Calendar redistributed successfully")
}

// Shell builds a month calendar from income, savings and fixed costs
// POST /calendar/shell
func (h *CalendarHandler) Shell(c echo.Context) error {
	var req dto.ShellRequest
	if err := c.Bind(&req); err != nil {
		return sendBindError(c, err)
	}

	if err := c.Validate(req); err != nil {
		return err
	}

	cal, err := h.calendarService.BuildShell(analytics.ShellConfig{
		CalendarID:    req.CalendarID,
		SavingsTarget: req.SavingsTarget,
		Income:        req.Income,
		Fixed:         req.Fixed,
		Weights:       req.Weights,
		Year:          req.Year,
		Month:         time.Month(req.Month),
	})
	if err != nil {
		return sendCalendarError(c, err)
	}

	return sendData(c, http.StatusOK, cal, "")
}

func parseAsOf(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	asOf, err := analytics.ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &asOf, nil
}

// sendBindError reports request decoding failures, keeping the calendar
// codes for amounts and mappings rejected while decoding
func sendBindError(c echo.Context, err error) error {
	if stderrors.Is(err, analytics.ErrInvalidAmount) || stderrors.Is(err, analytics.ErrMalformedCalendar) {
		return sendCalendarError(c, err)
	}
	return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
}

// sendCalendarError maps calendar and analytics core errors onto API codes
func sendCalendarError(c echo.Context, err error) error {
	switch {
	case stderrors.Is(err, services.ErrCalendarNotFound):
		return SendError(c, errors.CalendarNotFound)
	case stderrors.Is(err, services.ErrCalendarDayNotFound):
		return SendError(c, errors.CalendarDayNotFound)
	case stderrors.Is(err, services.ErrCalendarExists):
		return SendError(c, errors.CalendarAlreadyExists)
	case stderrors.Is(err, analytics.ErrMalformedCalendar):
		return SendError(c, errors.CalendarMalformed, errors.WithDetails(err.Error()))
	case stderrors.Is(err, analytics.ErrInvalidAmount):
		return SendError(c, errors.CalendarInvalidAmount, errors.WithDetails(err.Error()))
	case stderrors.Is(err, analytics.ErrUnknownStrategy):
		return SendError(c, errors.CalendarUnknownStrategy, errors.WithDetails(err.Error()))
	case stderrors.Is(err, services.ErrInvalidPeriod):
		return SendError(c, errors.AnalyticsInvalidPeriod, errors.WithDetails(err.Error()))
	}
	return SendSystemError(c, err)
}

func toCalendarResponse(calendarID string, days []models.CalendarDay) dto.CalendarResponse {
	resp := dto.CalendarResponse{
		CalendarID: calendarID,
		Days:       make([]dto.CalendarDay, len(days)),
		Planned:    decimal.Zero,
		Spent:      decimal.Zero,
	}
	for i, d := range days {
		resp.Days[i] = toCalendarDay(d)
		resp.Planned = resp.Planned.Add(resp.Days[i].Planned.Total())
		resp.Spent = resp.Spent.Add(resp.Days[i].Spent.Total())
	}
	return resp
}

func toCalendarDay(d models.CalendarDay) dto.CalendarDay {
	planned := analytics.Expenses(d.Planned)
	if planned == nil {
		planned = analytics.Expenses{}
	}
	spent := analytics.Expenses(d.Spent)
	if spent == nil {
		spent = analytics.Expenses{}
	}
	return dto.CalendarDay{
		Date:    d.Date.Format(analytics.DateLayout),
		Planned: planned,
		Spent:   spent,
	}
}
