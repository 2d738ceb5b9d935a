package notifications

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	userID := uuid.New()
	event := NewEvent(userID, ChannelPush, "Budget alert", "You spent 3x your usual on food")

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, userID, event.UserID)
	assert.False(t, event.CreatedAt.IsZero())
	assert.NoError(t, event.Validate())
}

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name   string
		event  Event
		errMsg string
	}{
		{"missing user", Event{Channel: ChannelPush, Body: "b"}, "user ID is required"},
		{"unknown channel", Event{UserID: uuid.New(), Channel: "sms", Body: "b"}, "unknown channel"},
		{"empty body", Event{UserID: uuid.New(), Channel: ChannelEmail}, "body is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidEvent)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseEvent(t *testing.T) {
	event := NewEvent(uuid.New(), ChannelEmail, "Weekly summary", "All good")
	event.Data = map[string]string{"month": "2025-01"}

	body, err := event.Marshal()
	require.NoError(t, err)

	parsed, err := ParseEvent(body)
	require.NoError(t, err)
	assert.Equal(t, event.ID, parsed.ID)
	assert.Equal(t, event.Channel, parsed.Channel)
	assert.Equal(t, "2025-01", parsed.Data["month"])
	assert.True(t, event.CreatedAt.Equal(parsed.CreatedAt))

	_, err = ParseEvent([]byte("{not json"))
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = ParseEvent([]byte(`{"channel":"push","body":"x"}`))
	assert.ErrorIs(t, err, ErrInvalidEvent)
}
