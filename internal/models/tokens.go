package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// CustomClaims are the JWT claims of both token types. Email and Role are
// only set on access tokens.
type CustomClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ"`
}

// RefreshToken is the server-side record of an issued refresh JWT. Only the
// SHA-256 of the token is stored; a refresh rotates it by revoking the row.
type RefreshToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	TokenHash string     `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	UserAgent string     `gorm:"type:varchar(255)" json:"user_agent,omitempty"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// UsableAt reports whether the token can still be exchanged at t
func (rt *RefreshToken) UsableAt(t time.Time) bool {
	return rt.RevokedAt == nil && t.Before(rt.ExpiresAt)
}

func (rt *RefreshToken) BeforeCreate(*gorm.DB) error {
	rt.ID, rt.CreatedAt = stampIdentity(rt.ID, rt.CreatedAt)
	return nil
}

// BlacklistedToken blocks an access token JTI until the token would have
// expired on its own.
type BlacklistedToken struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	JTI           string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"jti"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ExpiresAt     time.Time `gorm:"not null;index" json:"expires_at"`
	BlacklistedAt time.Time `gorm:"not null" json:"blacklisted_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// PrunableAt reports whether the entry can be dropped at t
func (bt *BlacklistedToken) PrunableAt(t time.Time) bool {
	return !t.Before(bt.ExpiresAt)
}

func (bt *BlacklistedToken) BeforeCreate(*gorm.DB) error {
	bt.ID, bt.BlacklistedAt = stampIdentity(bt.ID, bt.BlacklistedAt)
	return nil
}

func stampIdentity(id uuid.UUID, at time.Time) (uuid.UUID, time.Time) {
	if id == uuid.Nil {
		id = uuid.New()
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return id, at
}
