package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mita-backend/internal/dto"
	"mita-backend/internal/models"
	"mita-backend/internal/repositories"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountLocked       = errors.New("account is locked due to too many failed attempts")
	ErrUserAlreadyExists   = errors.New("user with this email already exists")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// maxUserAgentLength matches the refresh_tokens.user_agent column
const maxUserAgentLength = 255

// Authentication event types reported to the metrics recorder
const (
	AuthEventRegister      = "register"
	AuthEventLogin         = "login"
	AuthEventLoginFailed   = "login_failed"
	AuthEventAccountLocked = "account_locked"
	AuthEventTokenRefresh  = "token_refresh"
	AuthEventRefreshFailed = "token_refresh_failed"
	AuthEventLogout        = "logout"
	AuthEventGoogleLogin   = "google_login"
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo             repositories.UserRepositoryInterface
	refreshTokenRepo     repositories.RefreshTokenRepositoryInterface
	blacklistedTokenRepo repositories.BlacklistedTokenRepositoryInterface
	passwordService      PasswordServiceInterface
	tokenService         TokenServiceInterface
	metrics              MetricsRecorderInterface
	logger               *slog.Logger
	now                  func() time.Time
	lockoutThreshold     int
	googleVerifier       GoogleTokenVerifier
}

// AuthOption adjusts an AuthService built by NewAuthService
type AuthOption func(*AuthService)

// WithLockoutThreshold locks an account after n consecutive bad passwords
func WithLockoutThreshold(n int) AuthOption {
	return func(s *AuthService) {
		if n > 0 {
			s.lockoutThreshold = n
		}
	}
}

// WithClock replaces time.Now for lockout, login and token expiry checks
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		s.now = now
	}
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo repositories.UserRepositoryInterface,
	refreshTokenRepo repositories.RefreshTokenRepositoryInterface,
	blacklistedTokenRepo repositories.BlacklistedTokenRepositoryInterface,
	passwordService PasswordServiceInterface,
	tokenService TokenServiceInterface,
	metrics MetricsRecorderInterface,
	logger *slog.Logger,
	opts ...AuthOption,
) AuthServiceInterface {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &AuthService{
		userRepo:             userRepo,
		refreshTokenRepo:     refreshTokenRepo,
		blacklistedTokenRepo: blacklistedTokenRepo,
		passwordService:      passwordService,
		tokenService:         tokenService,
		metrics:              metrics,
		logger:               logger,
		now:                  time.Now,
		lockoutThreshold:     models.DefaultMaxFailedLoginAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user with role USER. Emails are stored lowercased.
func (s *AuthService) Register(req *dto.RegisterRequest, ipAddress, userAgent string) (*models.User, error) {
	email := normalizeEmail(req.Email)

	switch existing, err := s.userRepo.GetByEmail(email); {
	case err != nil && !errors.Is(err, repositories.ErrUserNotFound):
		return nil, fmt.Errorf("look up email: %w", err)
	case existing != nil:
		s.logger.Info("registration rejected", "reason", "email_already_exists", "ip_address", ipAddress)
		return nil, ErrUserAlreadyExists
	}

	hash, err := s.passwordService.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Country:      strings.ToUpper(req.Country),
		Timezone:     req.Timezone,
		Role:         models.RoleUser,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.recordEvent(AuthEventRegister)
	s.logger.Info("user registered", "user_id", user.ID, "ip_address", ipAddress, "user_agent", userAgent)
	return user, nil
}

// Login checks the credentials and issues a token pair. Unknown emails and
// wrong passwords return the same error.
func (s *AuthService) Login(req *dto.LoginRequest, ipAddress, userAgent string) (*dto.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(normalizeEmail(req.Email))
	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		s.failedLogin("user_not_found", ipAddress)
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("load user: %w", err)
	case user.IsLocked():
		s.failedLogin("account_locked", ipAddress)
		return nil, ErrAccountLocked
	}

	if err := s.checkPassword(user, req.Password, ipAddress); err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(user, userAgent)
	if err != nil {
		return nil, err
	}

	s.recordEvent(AuthEventLogin)
	s.logger.Info("user logged in", "user_id", user.ID, "ip_address", ipAddress)
	return tokens, nil
}

// checkPassword compares the password and persists the lockout counter
// either way. Persisting is best effort.
func (s *AuthService) checkPassword(user *models.User, password, ipAddress string) error {
	if s.passwordService.ComparePassword(password, user.PasswordHash) {
		user.RecordLogin(s.now())
		if err := s.userRepo.UpdateFailedLoginAttempts(user); err != nil {
			s.logger.Warn("login attempts not reset", "error", err, "user_id", user.ID)
		}
		return nil
	}

	locked := user.RecordFailedLogin(s.lockoutThreshold, s.now())
	if err := s.userRepo.UpdateFailedLoginAttempts(user); err != nil {
		s.logger.Error("login attempts not stored", "error", err, "user_id", user.ID)
	}
	if locked {
		s.recordEvent(AuthEventAccountLocked)
		s.logger.Warn("user locked after failed logins", "user_id", user.ID, "ip_address", ipAddress)
	}
	s.failedLogin("invalid_password", ipAddress)
	return ErrInvalidCredentials
}

// RefreshTokens rotates a refresh token into a new token pair. The presented
// token is revoked even when issuing the new pair fails afterwards.
func (s *AuthService) RefreshTokens(refreshToken, ipAddress, userAgent string) (*dto.TokenResponse, error) {
	stored, reason, err := s.redeemRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		s.failedRefresh(reason, ipAddress)
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetByID(stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := s.refreshTokenRepo.Revoke(stored.ID); err != nil {
		s.logger.Warn("old refresh token not revoked", "error", err, "user_id", user.ID, "token_id", stored.ID)
	}

	tokens, err := s.issueTokens(user, userAgent)
	if err != nil {
		return nil, err
	}

	s.recordEvent(AuthEventTokenRefresh)
	return tokens, nil
}

// redeemRefreshToken returns the stored token when raw is a live refresh
// token of the user it names, or a rejection reason otherwise.
func (s *AuthService) redeemRefreshToken(raw string) (*models.RefreshToken, string, error) {
	claims, err := s.tokenService.ValidateRefreshToken(raw)
	if err != nil {
		return nil, "invalid_token", nil
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, "", fmt.Errorf("user id in refresh token: %w", err)
	}

	stored, err := s.refreshTokenRepo.GetByTokenHash(hashToken(raw))
	if err != nil {
		return nil, "token_not_found", nil
	}
	if stored.UserID != userID || !stored.UsableAt(s.now()) {
		return nil, "token_expired_or_revoked", nil
	}
	return stored, "", nil
}

// Logout blacklists the access token and revokes every refresh token of
// its owner. An already invalid token is a no-op.
func (s *AuthService) Logout(accessToken, ipAddress, userAgent string) error {
	claims, err := s.tokenService.ValidateAccessToken(accessToken)
	if err != nil {
		s.logger.Debug("logout with invalid token", "ip_address", ipAddress)
		return nil
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil
	}

	expiry, err := s.tokenService.GetTokenExpiry(accessToken)
	if err != nil {
		expiry = s.now().Add(24 * time.Hour)
	}

	entry := &models.BlacklistedToken{JTI: claims.ID, UserID: userID, ExpiresAt: expiry}
	if err := s.blacklistedTokenRepo.Create(entry); err != nil {
		s.logger.Error("access token not blacklisted", "error", err, "jti", claims.ID, "user_id", userID)
	}
	if err := s.refreshTokenRepo.RevokeAllForUser(userID); err != nil {
		s.logger.Warn("refresh tokens not revoked", "error", err, "user_id", userID)
	}

	s.recordEvent(AuthEventLogout)
	s.logger.Info("user logged out", "user_id", userID, "ip_address", ipAddress, "user_agent", userAgent)
	return nil
}

// issueTokens signs a new pair and stores the refresh half by hash
func (s *AuthService) issueTokens(user *models.User, userAgent string) (*dto.TokenResponse, error) {
	access, accessExpiry, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExpiry, err := s.tokenService.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if len(userAgent) > maxUserAgentLength {
		userAgent = userAgent[:maxUserAgentLength]
	}
	session := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		UserAgent: userAgent,
		ExpiresAt: refreshExpiry,
	}
	if err := s.refreshTokenRepo.Create(session); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresAt:    accessExpiry,
	}, nil
}

func (s *AuthService) failedLogin(reason, ipAddress string) {
	s.recordEvent(AuthEventLoginFailed)
	s.logger.Info("login failed", "reason", reason, "ip_address", ipAddress)
}

func (s *AuthService) failedRefresh(reason, ipAddress string) {
	s.recordEvent(AuthEventRefreshFailed)
	s.logger.Info("token refresh failed", "reason", reason, "ip_address", ipAddress)
}

func (s *AuthService) recordEvent(eventType string) {
	s.metrics.IncrementCounter(MetricAuthenticationEvent, map[string]string{"event_type": eventType})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hashToken is the lookup key of a refresh token; the raw JWT is never stored
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
