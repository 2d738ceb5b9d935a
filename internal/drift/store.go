// Package drift keeps a per-user log of monthly budget drift values.
package drift

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MonthLayout is the format of the month key, e.g. "2025-01"
const MonthLayout = "2006-01"

var (
	ErrNotFound     = errors.New("drift entry not found")
	ErrInvalidEntry = errors.New("invalid drift entry")
)

// Entry is a single drift value recorded for a user and month
type Entry struct {
	UserID    string    `firestore:"user_id" json:"user_id"`
	Month     string    `firestore:"month" json:"month"`
	Value     float64   `firestore:"value" json:"value"`
	UpdatedAt time.Time `firestore:"updated_at" json:"updated_at"`
}

// Point is one month of a user's drift history
type Point struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// Report is the drift value of one month together with the user's history
type Report struct {
	UserID     string  `json:"user_id"`
	Month      string  `json:"month"`
	DriftValue float64 `json:"drift_value"`
	History    []Point `json:"history"`
}

// Store persists drift entries keyed by user and month
type Store interface {
	Put(ctx context.Context, entry Entry) error
	Get(ctx context.Context, userID, month string) (*Entry, error)
	History(ctx context.Context, userID string) ([]Entry, error)
}

// ParseMonth validates a month key
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, month)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: month must be YYYY-MM", ErrInvalidEntry)
	}
	return t, nil
}

func (e Entry) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("%w: user ID is required", ErrInvalidEntry)
	}
	if _, err := ParseMonth(e.Month); err != nil {
		return err
	}
	return nil
}

func documentID(userID, month string) string {
	return userID + "_" + month
}
