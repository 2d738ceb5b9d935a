package errors

import "net/http"

// ErrorCode is the stable machine readable code of an API error
type ErrorCode string

// Authentication error codes (AUTH_*)
const (
	AuthInvalidCredentials     ErrorCode = "AUTH_001"
	AuthMissingToken           ErrorCode = "AUTH_002"
	AuthExpiredToken           ErrorCode = "AUTH_003"
	AuthInvalidTokenFormat     ErrorCode = "AUTH_004"
	AuthInsufficientPermission ErrorCode = "AUTH_005"
	AuthAccountLocked          ErrorCode = "AUTH_006"
	AuthEmailAlreadyExists     ErrorCode = "AUTH_007"
	AuthUserNotFound           ErrorCode = "AUTH_008"
	AuthInvalidGoogleToken     ErrorCode = "AUTH_009"
	AuthGoogleUnavailable      ErrorCode = "AUTH_010"
)

// Validation error codes (VALIDATION_*)
const (
	ValidationGeneral       ErrorCode = "VALIDATION_001"
	ValidationRequiredField ErrorCode = "VALIDATION_002"
	ValidationInvalidFormat ErrorCode = "VALIDATION_003"
	ValidationOutOfRange    ErrorCode = "VALIDATION_004"
	ValidationInvalidEmail  ErrorCode = "VALIDATION_005"
	ValidationInvalidDate   ErrorCode = "VALIDATION_007"
)

// Calendar error codes (CALENDAR_*)
const (
	CalendarNotFound        ErrorCode = "CALENDAR_001"
	CalendarMalformed       ErrorCode = "CALENDAR_002"
	CalendarInvalidAmount   ErrorCode = "CALENDAR_003"
	CalendarUnknownStrategy ErrorCode = "CALENDAR_004"
	CalendarDayNotFound     ErrorCode = "CALENDAR_005"
	CalendarAlreadyExists   ErrorCode = "CALENDAR_006"
)

// Transaction error codes (TRANSACTION_*)
const (
	TransactionNotFound         ErrorCode = "TRANSACTION_001"
	TransactionInvalidAmount    ErrorCode = "TRANSACTION_002"
	TransactionValidationFailed ErrorCode = "TRANSACTION_005"
)

// Analytics error codes (ANALYTICS_*)
const (
	AnalyticsInvalidPeriod    ErrorCode = "ANALYTICS_001"
	AnalyticsInvalidThreshold ErrorCode = "ANALYTICS_002"
	AnalyticsDriftUnavailable ErrorCode = "ANALYTICS_003"
	AnalyticsDriftNotFound    ErrorCode = "ANALYTICS_004"
)

// Referral error codes (REFERRAL_*)
const (
	ReferralInvalidCode    ErrorCode = "REFERRAL_001"
	ReferralAlreadyClaimed ErrorCode = "REFERRAL_002"
	ReferralOwnCode        ErrorCode = "REFERRAL_003"
	ReferralNotEligible    ErrorCode = "REFERRAL_004"
	ReferralAmbiguousCode  ErrorCode = "REFERRAL_005"
)

// Notification error codes (NOTIFICATION_*)
const (
	NotificationTokenNotFound ErrorCode = "NOTIFICATION_001"
	NotificationUnavailable   ErrorCode = "NOTIFICATION_002"
)

// System error codes (SYSTEM_*)
const (
	SystemInternalError      ErrorCode = "SYSTEM_001"
	SystemDatabaseError      ErrorCode = "SYSTEM_002"
	SystemServiceUnavailable ErrorCode = "SYSTEM_003"
	SystemConfigurationError ErrorCode = "SYSTEM_004"
	SystemUnexpectedError    ErrorCode = "SYSTEM_005"
	SystemRateLimitExceeded  ErrorCode = "SYSTEM_006"
	SystemRouteNotFound      ErrorCode = "SYSTEM_007"
)

type definition struct {
	status  int
	message string
}

var definitions = map[ErrorCode]definition{
	AuthInvalidCredentials:     {http.StatusUnauthorized, "Invalid email or password"},
	AuthMissingToken:           {http.StatusUnauthorized, "Authorization token is required"},
	AuthExpiredToken:           {http.StatusUnauthorized, "Authorization token has expired"},
	AuthInvalidTokenFormat:     {http.StatusUnauthorized, "Invalid authorization token format"},
	AuthInsufficientPermission: {http.StatusForbidden, "Insufficient permissions to access this resource"},
	AuthAccountLocked:          {http.StatusForbidden, "Account is locked or disabled"},
	AuthEmailAlreadyExists:     {http.StatusConflict, "An account with this email already exists"},
	AuthUserNotFound:           {http.StatusNotFound, "User not found"},
	AuthInvalidGoogleToken:     {http.StatusUnauthorized, "Google sign-in token is invalid"},
	AuthGoogleUnavailable:      {http.StatusServiceUnavailable, "Google sign-in is not configured"},

	ValidationGeneral:       {http.StatusBadRequest, "Validation failed"},
	ValidationRequiredField: {http.StatusBadRequest, "Required field is missing"},
	ValidationInvalidFormat: {http.StatusBadRequest, "Invalid field format"},
	ValidationOutOfRange:    {http.StatusBadRequest, "Field value is out of allowed range"},
	ValidationInvalidEmail:  {http.StatusBadRequest, "Invalid email address format"},
	ValidationInvalidDate:   {http.StatusBadRequest, "Invalid date format or range"},

	CalendarNotFound:        {http.StatusNotFound, "Calendar not found"},
	CalendarMalformed:       {http.StatusBadRequest, "Calendar is malformed"},
	CalendarInvalidAmount:   {http.StatusBadRequest, "Calendar contains an invalid amount"},
	CalendarUnknownStrategy: {http.StatusBadRequest, "Unknown redistribution strategy"},
	CalendarDayNotFound:     {http.StatusNotFound, "Calendar day not found"},
	CalendarAlreadyExists:   {http.StatusConflict, "A calendar with this ID already exists"},

	TransactionNotFound:         {http.StatusNotFound, "Transaction not found"},
	TransactionInvalidAmount:    {http.StatusBadRequest, "Invalid transaction amount"},
	TransactionValidationFailed: {http.StatusUnprocessableEntity, "Transaction validation failed"},

	AnalyticsInvalidPeriod:    {http.StatusBadRequest, "Invalid analytics period"},
	AnalyticsInvalidThreshold: {http.StatusBadRequest, "Anomaly threshold must be positive"},
	AnalyticsDriftUnavailable: {http.StatusServiceUnavailable, "Drift log is not configured"},
	AnalyticsDriftNotFound:    {http.StatusNotFound, "No drift recorded for this month"},

	ReferralInvalidCode:    {http.StatusBadRequest, "Referral code is invalid"},
	ReferralAlreadyClaimed: {http.StatusConflict, "A referral has already been claimed"},
	ReferralOwnCode:        {http.StatusUnprocessableEntity, "Cannot claim your own referral code"},
	ReferralNotEligible:    {http.StatusUnprocessableEntity, "User is not eligible for a referral reward"},
	ReferralAmbiguousCode:  {http.StatusConflict, "Referral code matches more than one account"},

	NotificationTokenNotFound: {http.StatusNotFound, "Push token not found"},
	NotificationUnavailable:   {http.StatusServiceUnavailable, "Notification delivery is not configured"},

	SystemInternalError:      {http.StatusInternalServerError, "An unexpected error occurred. Please contact support with trace ID"},
	SystemDatabaseError:      {http.StatusInternalServerError, "Database connection error"},
	SystemServiceUnavailable: {http.StatusServiceUnavailable, "Service temporarily unavailable"},
	SystemConfigurationError: {http.StatusInternalServerError, "System configuration error"},
	SystemUnexpectedError:    {http.StatusInternalServerError, "An unexpected error occurred"},
	SystemRateLimitExceeded:  {http.StatusTooManyRequests, "Rate limit exceeded. Please try again later"},
	SystemRouteNotFound:      {http.StatusNotFound, "Resource not found"},
}

// GetErrorMessage returns the default message of code, or a generic one for
// unregistered codes
func GetErrorMessage(code ErrorCode) string {
	if def, ok := definitions[code]; ok {
		return def.message
	}
	return "An error occurred"
}

// GetHTTPStatus returns the status code is sent with. Unregistered codes
// are 500.
func GetHTTPStatus(code ErrorCode) int {
	if def, ok := definitions[code]; ok {
		return def.status
	}
	return http.StatusInternalServerError
}

func IsValidErrorCode(code ErrorCode) bool {
	_, ok := definitions[code]
	return ok
}
