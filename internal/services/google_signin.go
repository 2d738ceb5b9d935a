package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"

	"mita-backend/internal/dto"
	"mita-backend/internal/models"
	"mita-backend/internal/repositories"

	"google.golang.org/api/idtoken"
)

var (
	ErrGoogleSignInDisabled = errors.New("google sign-in is not configured")
	ErrInvalidGoogleToken   = errors.New("invalid google id token")
)

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// GoogleIdentity is the verified part of a Google ID token
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
}

// GoogleTokenVerifier checks an ID token and returns the identity it carries
type GoogleTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

type idTokenValidator interface {
	Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

// GoogleVerifier validates ID tokens issued to one OAuth client against
// Google's published signing keys
type GoogleVerifier struct {
	clientID  string
	validator idTokenValidator
}

func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	v, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("google id token validator: %w", err)
	}
	return &GoogleVerifier{clientID: clientID, validator: v}, nil
}

func (g *GoogleVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	payload, err := g.validator.Validate(ctx, idToken, g.clientID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(googleIssuers, payload.Issuer) {
		return nil, fmt.Errorf("unexpected issuer %q", payload.Issuer)
	}

	identity := &GoogleIdentity{Subject: payload.Subject}
	identity.Email, _ = payload.Claims["email"].(string)
	identity.GivenName, _ = payload.Claims["given_name"].(string)
	identity.FamilyName, _ = payload.Claims["family_name"].(string)
	switch v := payload.Claims["email_verified"].(type) {
	case bool:
		identity.EmailVerified = v
	case string:
		identity.EmailVerified = v == "true"
	}
	return identity, nil
}

// WithGoogleVerifier enables GoogleSignIn
func WithGoogleVerifier(v GoogleTokenVerifier) AuthOption {
	return func(s *AuthService) {
		s.googleVerifier = v
	}
}

// GoogleSignIn signs in the user owning the token's email, creating the
// account on first use. Only verified emails are accepted. Accounts created
// here get a random password and sign in through Google.
func (s *AuthService) GoogleSignIn(ctx context.Context, idToken, ipAddress, userAgent string) (*dto.TokenResponse, error) {
	if s.googleVerifier == nil {
		return nil, ErrGoogleSignInDisabled
	}

	identity, err := s.googleVerifier.Verify(ctx, idToken)
	if err != nil {
		s.logger.Debug("google id token rejected", "error", err)
		s.failedLogin("invalid_google_token", ipAddress)
		return nil, ErrInvalidGoogleToken
	}
	if identity.Email == "" || !identity.EmailVerified {
		s.failedLogin("google_email_unverified", ipAddress)
		return nil, ErrInvalidGoogleToken
	}

	user, err := s.userRepo.GetByEmail(normalizeEmail(identity.Email))
	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		if user, err = s.registerGoogleUser(identity, ipAddress); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("load user: %w", err)
	case user.IsLocked():
		s.failedLogin("account_locked", ipAddress)
		return nil, ErrAccountLocked
	}

	user.RecordLogin(s.now())
	if err := s.userRepo.UpdateFailedLoginAttempts(user); err != nil {
		s.logger.Warn("login attempts not reset", "error", err, "user_id", user.ID)
	}

	tokens, err := s.issueTokens(user, userAgent)
	if err != nil {
		return nil, err
	}

	s.recordEvent(AuthEventGoogleLogin)
	s.logger.Info("user logged in with google", "user_id", user.ID, "ip_address", ipAddress)
	return tokens, nil
}

func (s *AuthService) registerGoogleUser(identity *GoogleIdentity, ipAddress string) (*models.User, error) {
	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}
	// fixed prefix satisfies every character class of the password policy
	hash, err := s.passwordService.HashPassword("Gg1!" + hex.EncodeToString(secret))
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        normalizeEmail(identity.Email),
		PasswordHash: hash,
		FirstName:    truncate(identity.GivenName, 100),
		LastName:     truncate(identity.FamilyName, 100),
		Role:         models.RoleUser,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.recordEvent(AuthEventRegister)
	s.logger.Info("user registered with google", "user_id", user.ID, "ip_address", ipAddress)
	return user, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
