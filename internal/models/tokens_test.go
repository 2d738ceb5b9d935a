package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshToken_UsableAt(t *testing.T) {
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	revokedAt := at.Add(-time.Minute)

	tests := []struct {
		name   string
		token  RefreshToken
		usable bool
	}{
		{"active", RefreshToken{ExpiresAt: at.Add(time.Hour)}, true},
		{"expired", RefreshToken{ExpiresAt: at.Add(-time.Hour)}, false},
		{"expires this instant", RefreshToken{ExpiresAt: at}, false},
		{"revoked", RefreshToken{ExpiresAt: at.Add(time.Hour), RevokedAt: &revokedAt}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.usable, tt.token.UsableAt(at))
		})
	}
}

func TestRefreshToken_BeforeCreateKeepsExplicitValues(t *testing.T) {
	id := uuid.New()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	token := RefreshToken{ID: id, CreatedAt: created}

	require.NoError(t, token.BeforeCreate(nil))
	assert.Equal(t, id, token.ID)
	assert.Equal(t, created, token.CreatedAt)
}

func TestBlacklistedToken_BeforeCreate(t *testing.T) {
	token := BlacklistedToken{JTI: "jti", UserID: uuid.New(), ExpiresAt: time.Now().Add(-time.Minute)}

	require.NoError(t, token.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, token.ID)
	assert.NotZero(t, token.BlacklistedAt)
	assert.True(t, token.PrunableAt(time.Now()))
	assert.False(t, token.PrunableAt(token.ExpiresAt.Add(-time.Second)))
}
