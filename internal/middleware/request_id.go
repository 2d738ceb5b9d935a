package middleware

import (
	"log/slog"
	"time"

	"mita-backend/internal/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// TraceIDHeader carries the trace ID on requests and responses
	TraceIDHeader = "X-Trace-ID"
	// RequestIDHeader is accepted as a fallback when clients send their own ID
	RequestIDHeader = echo.HeaderXRequestID
	TraceIDContextKey = errors.TraceIDKey

	maxTraceIDLength = 128
)

// RequestID assigns each request a trace ID. A client supplied ID is kept
// when it is short and printable, otherwise a new UUID is issued.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			traceID := req.Header.Get(TraceIDHeader)
			if traceID == "" {
				traceID = req.Header.Get(RequestIDHeader)
			}
			if !acceptableTraceID(traceID) {
				traceID = uuid.New().String()
			}

			c.Set(TraceIDContextKey, traceID)
			c.Response().Header().Set(TraceIDHeader, traceID)
			return next(c)
		}
	}
}

// RequestLogger logs one line per request once the handler chain returns
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			slog.InfoContext(c.Request().Context(), "request",
				"trace_id", GetTraceID(c),
				"method", c.Request().Method,
				"route", c.Path(),
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"ip", c.RealIP())
			return nil
		}
	}
}

// GetTraceID returns the trace ID set by RequestID, or "" when absent
func GetTraceID(c echo.Context) string {
	traceID, ok := c.Get(TraceIDContextKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

func acceptableTraceID(id string) bool {
	if id == "" || len(id) > maxTraceIDLength {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}
