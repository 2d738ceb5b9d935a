package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// ErrUnauthorized is returned when user context is invalid
var ErrUnauthorized = fmt.Errorf("unauthorized")

// getUserIDFromContext returns the user ID set by the auth middleware
func getUserIDFromContext(c echo.Context) (uuid.UUID, error) {
	userID, ok := c.Get("user_id").(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.UUID{}, ErrUnauthorized
	}
	return userID, nil
}

func getIntParam(c echo.Context, name string, defaultValue int) int {
	param := c.QueryParam(name)
	if param == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(param)
	if err != nil {
		return defaultValue
	}
	return value
}

// getYearMonth reads the year and month query parameters. Missing values
// default to the current UTC month.
func getYearMonth(c echo.Context, now time.Time) (int, time.Month, error) {
	now = now.UTC()
	year, month := now.Year(), now.Month()

	if raw := c.QueryParam("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return 0, 0, fmt.Errorf("invalid year %q", raw)
		}
		year = v
	}
	if raw := c.QueryParam("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 12 {
			return 0, 0, fmt.Errorf("invalid month %q", raw)
		}
		month = time.Month(v)
	}
	return year, month, nil
}

// getThreshold reads an optional positive decimal query parameter. A missing
// parameter yields zero, which selects the configured default.
func getThreshold(c echo.Context) (decimal.Decimal, error) {
	raw := c.QueryParam("threshold")
	if raw == "" {
		return decimal.Zero, nil
	}
	threshold, err := decimal.NewFromString(raw)
	if err != nil || !threshold.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid threshold %q", raw)
	}
	return threshold, nil
}

// clientInfo returns the caller's IP and user agent for audit logging. The
// first X-Forwarded-For hop wins over X-Real-IP and the socket address.
func clientInfo(c echo.Context) (ip, userAgent string) {
	req := c.Request()
	switch {
	case req.Header.Get(echo.HeaderXForwardedFor) != "":
		first, _, _ := strings.Cut(req.Header.Get(echo.HeaderXForwardedFor), ",")
		ip = strings.TrimSpace(first)
	case req.Header.Get(echo.HeaderXRealIP) != "":
		ip = req.Header.Get(echo.HeaderXRealIP)
	default:
		ip = req.RemoteAddr
	}
	return ip, req.UserAgent()
}
