package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	// DefaultMaxFailedLoginAttempts applies when no lockout threshold is configured
	DefaultMaxFailedLoginAttempts = 3

	DefaultTimezone = "UTC"
)

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	countryRegex = regexp.MustCompile(`^[A-Z]{2}$`)
)

type User struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Email               string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash        string         `gorm:"type:varchar(255);not null" json:"-"`
	FirstName           string         `gorm:"type:varchar(100)" json:"first_name,omitempty"`
	LastName            string         `gorm:"type:varchar(100)" json:"last_name,omitempty"`
	Country             string         `gorm:"type:varchar(2);not null;default:'US'" json:"country"`
	Timezone            string         `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	Role                string         `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	FailedLoginAttempts int            `gorm:"default:0" json:"-"`
	LockedAt            *time.Time     `gorm:"index" json:"locked_at,omitempty"`
	LastLoginAt         *time.Time     `gorm:"index" json:"last_login_at,omitempty"`
	CreatedAt           time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
	Transactions  []Transaction  `gorm:"foreignKey:UserID" json:"-"`
	PushTokens    []PushToken    `gorm:"foreignKey:UserID" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Timezone == "" {
		u.Timezone = DefaultTimezone
	}
	u.Country = strings.ToUpper(u.Country)
	if u.Country == "" {
		u.Country = "US"
	}

	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}

	return u.Validate()
}

func (u *User) BeforeUpdate(tx *gorm.DB) error {
	// map-based updates carry an empty struct, nothing to validate
	if tx.Statement.Dest != nil {
		if _, ok := tx.Statement.Dest.(map[string]interface{}); ok {
			return nil
		}
	}

	return u.Validate()
}

func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}

	if !emailRegex.MatchString(u.Email) {
		return errors.New("invalid email format")
	}

	if !countryRegex.MatchString(u.Country) {
		return fmt.Errorf("invalid country code: %s", u.Country)
	}

	if _, err := time.LoadLocation(u.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %s", u.Timezone)
	}

	if u.Role != RoleUser && u.Role != RoleAdmin {
		return fmt.Errorf("invalid role: %s", u.Role)
	}

	return nil
}

// Location returns the user's time zone, falling back to UTC
func (u *User) Location() *time.Location {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (u *User) IsLocked() bool {
	return u.LockedAt != nil
}

// Lock marks the account locked at t
func (u *User) Lock(t time.Time) {
	u.LockedAt = &t
}

func (u *User) Unlock() {
	u.LockedAt = nil
	u.FailedLoginAttempts = 0
}

// RecordFailedLogin counts a bad password and locks the account once limit
// consecutive failures are reached. It reports whether this call locked it.
func (u *User) RecordFailedLogin(limit int, at time.Time) bool {
	if limit <= 0 {
		limit = DefaultMaxFailedLoginAttempts
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts < limit || u.IsLocked() {
		return false
	}
	u.Lock(at)
	return true
}

// RecordLogin clears the failure counter and stamps the login time
func (u *User) RecordLogin(at time.Time) {
	u.FailedLoginAttempts = 0
	u.LastLoginAt = &at
}

// DisplayName returns the full name, or the email when no name is set
func (u *User) DisplayName() string {
	name := strings.TrimSpace(fmt.Sprintf("%s %s", u.FirstName, u.LastName))
	if name == "" {
		return u.Email
	}
	return name
}

// ReferralCode derives the user's shareable referral code
func (u *User) ReferralCode() string {
	return ReferralCodeFor(u.ID)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) TableName() string {
	return "users"
}
