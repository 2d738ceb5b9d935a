package services

import (
	"errors"
	"fmt"
	"unicode"

	"mita-backend/internal/config"
	"mita-backend/internal/repositories"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores input past 72 bytes
const maxPasswordBytes = 72

// ErrWeakPassword is wrapped by every policy violation
var ErrWeakPassword = errors.New("password does not meet the policy")

var (
	ErrPasswordEmpty       = fmt.Errorf("%w: password cannot be empty", ErrWeakPassword)
	ErrPasswordTooShort    = fmt.Errorf("%w: password is too short", ErrWeakPassword)
	ErrPasswordTooLong     = fmt.Errorf("%w: password must not exceed %d bytes", ErrWeakPassword, maxPasswordBytes)
	ErrPasswordNoUppercase = fmt.Errorf("%w: password must contain an uppercase letter", ErrWeakPassword)
	ErrPasswordNoLowercase = fmt.Errorf("%w: password must contain a lowercase letter", ErrWeakPassword)
	ErrPasswordNoNumber    = fmt.Errorf("%w: password must contain a number", ErrWeakPassword)
	ErrPasswordNoSpecial   = fmt.Errorf("%w: password must contain a special character", ErrWeakPassword)

	ErrCurrentPasswordWrong = errors.New("current password is incorrect")
	ErrSamePassword         = errors.New("new password must be different from current password")
)

// PasswordPolicy is the strength rule set applied to new passwords
type PasswordPolicy struct {
	Cost             int
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// DefaultPasswordPolicy requires 8 characters with mixed case and a digit
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		Cost:             bcrypt.DefaultCost + 2,
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumber:    true,
	}
}

// PasswordPolicyFromConfig reads the PASSWORD_* and BCRYPT_COST settings
func PasswordPolicyFromConfig(cfg config.SecurityConfig) PasswordPolicy {
	return PasswordPolicy{
		Cost:             cfg.BCryptCost,
		MinLength:        cfg.PasswordMinLength,
		RequireUppercase: cfg.RequireUppercase,
		RequireLowercase: cfg.RequireLowercase,
		RequireNumber:    cfg.RequireNumbers,
		RequireSpecial:   cfg.RequireSpecialChars,
	}
}

type charClasses struct {
	upper, lower, digit, special bool
	distinct                     int
}

func classify(password string) charClasses {
	var c charClasses
	seen := make(map[rune]struct{}, len(password))
	for _, r := range password {
		seen[r] = struct{}{}
		switch {
		case unicode.IsUpper(r):
			c.upper = true
		case unicode.IsLower(r):
			c.lower = true
		case unicode.IsDigit(r):
			c.digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			c.special = true
		}
	}
	c.distinct = len(seen)
	return c
}

// PasswordService hashes passwords and changes them for signed-in users
type PasswordService struct {
	policy           PasswordPolicy
	userRepo         repositories.UserRepositoryInterface
	refreshTokenRepo repositories.RefreshTokenRepositoryInterface
}

// NewPasswordService builds the service. The repositories are only used by
// ChangePassword; refreshTokenRepo may be nil.
func NewPasswordService(
	policy PasswordPolicy,
	userRepo repositories.UserRepositoryInterface,
	refreshTokenRepo repositories.RefreshTokenRepositoryInterface,
) PasswordServiceInterface {
	defaults := DefaultPasswordPolicy()
	if policy.Cost < bcrypt.MinCost || policy.Cost > bcrypt.MaxCost {
		policy.Cost = defaults.Cost
	}
	if policy.MinLength <= 0 {
		policy.MinLength = defaults.MinLength
	}
	return &PasswordService{
		policy:           policy,
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
	}
}

// ValidatePassword returns the first policy rule the password breaks
func (ps *PasswordService) ValidatePassword(password string) error {
	switch {
	case password == "":
		return ErrPasswordEmpty
	case len([]rune(password)) < ps.policy.MinLength:
		return fmt.Errorf("%w (minimum %d characters)", ErrPasswordTooShort, ps.policy.MinLength)
	case len(password) > maxPasswordBytes:
		return ErrPasswordTooLong
	}

	c := classify(password)
	switch {
	case ps.policy.RequireUppercase && !c.upper:
		return ErrPasswordNoUppercase
	case ps.policy.RequireLowercase && !c.lower:
		return ErrPasswordNoLowercase
	case ps.policy.RequireNumber && !c.digit:
		return ErrPasswordNoNumber
	case ps.policy.RequireSpecial && !c.special:
		return ErrPasswordNoSpecial
	}
	return nil
}

// HashPassword validates the password and returns its bcrypt hash
func (ps *PasswordService) HashPassword(password string) (string, error) {
	if err := ps.ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), ps.policy.Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (ps *PasswordService) ComparePassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PasswordStrength scores a password from 0 to 100: up to 40 for length,
// 15 per character class and up to 10 for character variety. A password
// the policy accepts never scores below 80.
func (ps *PasswordService) PasswordStrength(password string) int {
	if password == "" {
		return 0
	}

	n := len([]rune(password))
	score := 0
	for _, step := range []int{8, 12, 16, 20} {
		if n >= step {
			score += 10
		}
	}

	c := classify(password)
	for _, present := range []bool{c.upper, c.lower, c.digit, c.special} {
		if present {
			score += 15
		}
	}

	switch {
	case c.distinct > n*3/4:
		score += 10
	case c.distinct > n/2:
		score += 5
	}

	if ps.ValidatePassword(password) == nil {
		score = max(score, 80)
	}
	return min(score, 100)
}

// ChangePassword replaces the password after checking the current one and
// signs the user out of every session.
func (ps *PasswordService) ChangePassword(userID uuid.UUID, currentPassword, newPassword string) error {
	if ps.userRepo == nil {
		return errors.New("user repository not configured")
	}

	switch {
	case userID == uuid.Nil:
		return ErrUserNotFound
	case currentPassword == "":
		return ErrCurrentPasswordWrong
	case currentPassword == newPassword:
		return ErrSamePassword
	}
	if err := ps.ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := ps.userRepo.GetByID(userID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	if !ps.ComparePassword(currentPassword, user.PasswordHash) {
		return ErrCurrentPasswordWrong
	}

	hash, err := ps.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := ps.userRepo.UpdateFields(user.ID, map[string]interface{}{"password_hash": hash}); err != nil {
		return fmt.Errorf("store password: %w", err)
	}

	if ps.refreshTokenRepo == nil {
		return nil
	}
	if err := ps.refreshTokenRepo.RevokeAllForUser(user.ID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}
