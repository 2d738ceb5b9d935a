package services

import (
	"context"
	"time"

	"mita-backend/internal/analytics"
	"mita-backend/internal/drift"
	"mita-backend/internal/dto"
	"mita-backend/internal/models"
	"mita-backend/internal/notifications"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AuthServiceInterface interface {
	Register(req *dto.RegisterRequest, ipAddress, userAgent string) (*models.User, error)
	Login(req *dto.LoginRequest, ipAddress, userAgent string) (*dto.TokenResponse, error)
	RefreshTokens(refreshToken, ipAddress, userAgent string) (*dto.TokenResponse, error)
	Logout(accessToken, ipAddress, userAgent string) error
	GoogleSignIn(ctx context.Context, idToken, ipAddress, userAgent string) (*dto.TokenResponse, error)
}

type TokenServiceInterface interface {
	GenerateAccessToken(user *models.User) (string, time.Time, error)
	GenerateRefreshToken(userID uuid.UUID) (string, time.Time, error)
	ValidateAccessToken(tokenString string) (*models.CustomClaims, error)
	ValidateRefreshToken(tokenString string) (*models.CustomClaims, error)
	ExtractTokenFromHeader(authHeader string) (string, error)
	GetJTI(tokenString string) (string, error)
	GetTokenExpiry(tokenString string) (time.Time, error)
}

type PasswordServiceInterface interface {
	ValidatePassword(password string) error
	HashPassword(password string) (string, error)
	ComparePassword(password, hash string) bool
	PasswordStrength(password string) int
	ChangePassword(userID uuid.UUID, currentPassword, newPassword string) error
}

// UserServiceInterface covers the signed-in user's own profile
type UserServiceInterface interface {
	GetProfile(userID uuid.UUID) (*models.User, error)
	UpdateProfile(userID uuid.UUID, req *dto.UpdateProfileRequest) (*models.User, error)
}

// CalendarServiceInterface manages stored budget calendars and the
// stateless calendar transforms
type CalendarServiceInterface interface {
	Generate(userID uuid.UUID, calendarID string, start time.Time, numDays int, plan analytics.Expenses) ([]models.CalendarDay, error)
	Get(userID uuid.UUID, calendarID string) ([]models.CalendarDay, error)
	UpdateDay(userID uuid.UUID, calendarID string, date time.Time, planned analytics.Expenses) (*models.CalendarDay, error)
	Redistribute(raw analytics.RawCalendar, strategy string, asOf *time.Time) (analytics.RedistributionPlan, error)
	RedistributeStored(userID uuid.UUID, calendarID string, strategy string, asOf *time.Time) (analytics.RedistributionPlan, error)
	BuildShell(cfg analytics.ShellConfig) (analytics.Calendar, error)
}

// TransactionServiceInterface records expenses against calendar days
type TransactionServiceInterface interface {
	Record(userID uuid.UUID, req *dto.CreateTransactionRequest) (*models.Transaction, error)
	ListMonth(userID uuid.UUID, year int, month time.Month) ([]models.Transaction, error)
}

// AnalyticsServiceInterface runs the analytics core over stored data and
// over caller supplied calendars
type AnalyticsServiceInterface interface {
	MonthlySummary(userID uuid.UUID, year int, month time.Month) (*dto.MonthlySummaryResponse, error)
	Trend(userID uuid.UUID, months int) ([]analytics.TrendPoint, error)
	MonthAnomalies(ctx context.Context, userID uuid.UUID, year int, month time.Month, threshold decimal.Decimal) (analytics.AnomalyReport, error)
	CategoryAnomalies(userID uuid.UUID, months int, threshold decimal.Decimal) (analytics.AnomalyReport, error)
	Aggregate(raw analytics.RawCalendar) (analytics.AggregateResult, error)
	DetectAnomalies(raw analytics.RawCalendar, threshold decimal.Decimal) (analytics.AnomalyReport, error)
}

type ReferralServiceInterface interface {
	Code(userID uuid.UUID) string
	CheckEligibility(userID uuid.UUID) (bool, string, error)
	Claim(userID uuid.UUID, code string) (*models.ReferralClaim, error)
}

// NotificationServiceInterface registers devices, queues events and
// delivers them from the worker
type NotificationServiceInterface interface {
	RegisterPushToken(userID uuid.UUID, token, platform string) (*models.PushToken, error)
	UnregisterPushToken(userID uuid.UUID, token string) error
	Enqueue(ctx context.Context, event notifications.Event) error
	Deliver(ctx context.Context, body []byte) error
	History(userID uuid.UUID, limit int) ([]models.NotificationLog, error)
}

type DriftServiceInterface interface {
	Record(ctx context.Context, userID uuid.UUID, month string, value decimal.Decimal) error
	Report(ctx context.Context, userID uuid.UUID, month string) (*drift.Report, error)
}

// Publisher puts a message on the notification queue
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

type MetricsRecorderInterface interface {
	IncrementCounter(name string, tags map[string]string)
	RecordProcessingTime(name string, duration time.Duration)
	RecordGauge(name string, value float64, tags map[string]string)
}

type CircuitBreakerInterface interface {
	Allow() bool
	Success()
	Failure()
	State() string
	Failures() int
	Reset()
}
