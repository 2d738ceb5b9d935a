package handlers

import (
	"log/slog"
	"net/http"

	"mita-backend/internal/errors"

	"github.com/labstack/echo/v4"
)

// Client and business rule failures go through SendError with an API error
// code. Anything else goes through SendSystemError, which answers with a
// bare SYSTEM_001 and the trace ID and logs the cause.

// SuccessResponse is the envelope of every successful API response
type SuccessResponse struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

// ListMeta describes a list payload
type ListMeta struct {
	Count int `json:"count"`
}

type ErrorResponse = errors.ErrorResponse

func traceID(c echo.Context) string {
	id, _ := c.Get(errors.TraceIDKey).(string)
	return id
}

func SendError(c echo.Context, code errors.ErrorCode, opts ...errors.ErrorOption) error {
	resp := errors.NewErrorResponse(code, traceID(c), opts...)
	return c.JSON(resp.GetHTTPStatus(), resp)
}

func SendSystemError(c echo.Context, err error) error {
	resp, cause := errors.WrapSystemError(err, traceID(c))
	req := c.Request()
	slog.ErrorContext(req.Context(), "request failed",
		"trace_id", resp.Error.TraceID,
		"method", req.Method,
		"path", c.Path(),
		"error", cause)
	return c.JSON(http.StatusInternalServerError, resp)
}

func sendData(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, SuccessResponse{Data: data, Message: message})
}

// sendList answers 200 with items and their count
func sendList[T any](c echo.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, SuccessResponse{Data: items, Meta: ListMeta{Count: len(items)}})
}

// bindRequest decodes and validates the body into req. When ok is false the
// caller returns err unchanged: either the 400 was already written or err is
// a validation error for the echo error handler.
func bindRequest(c echo.Context, req any) (ok bool, err error) {
	if err := c.Bind(req); err != nil {
		return false, SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}
	if err := c.Validate(req); err != nil {
		return false, err
	}
	return true, nil
}
