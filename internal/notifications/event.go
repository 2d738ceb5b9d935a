// Package notifications defines notification events and the channel
// senders that deliver them.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	ChannelPush  = "push"
	ChannelEmail = "email"
)

var (
	ErrInvalidEvent = errors.New("invalid notification event")
	ErrNoRecipient  = errors.New("no recipient address for channel")
)

// Event is the message carried on the notification queue
type Event struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	Channel   string            `json:"channel"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewEvent builds an event with a fresh ID and timestamp
func NewEvent(userID uuid.UUID, channel, title, body string) Event {
	return Event{
		ID:        uuid.New(),
		UserID:    userID,
		Channel:   channel,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
}

func (e Event) Validate() error {
	if e.UserID == uuid.Nil {
		return fmt.Errorf("%w: user ID is required", ErrInvalidEvent)
	}
	if e.Channel != ChannelPush && e.Channel != ChannelEmail {
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidEvent, e.Channel)
	}
	if e.Body == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidEvent)
	}
	return nil
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// ParseEvent decodes and validates a queued event
func ParseEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Recipient holds the addresses a user can be reached at
type Recipient struct {
	Email      string
	PushTokens []string
}

// Result reports the outcome of a delivery. StaleTokens lists push tokens
// the provider no longer accepts.
type Result struct {
	Delivered   int
	StaleTokens []string
}

// Sender delivers events on one channel
type Sender interface {
	Channel() string
	Send(ctx context.Context, to Recipient, event Event) (Result, error)
}
