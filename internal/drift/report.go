package drift

import (
	"context"
	"errors"
)

// BuildReport reads the drift value for month (zero when none was recorded)
// together with the user's full history.
func BuildReport(ctx context.Context, store Store, userID, month string) (*Report, error) {
	if _, err := ParseMonth(month); err != nil {
		return nil, err
	}

	report := &Report{
		UserID:  userID,
		Month:   month,
		History: []Point{},
	}

	entry, err := store.Get(ctx, userID, month)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, err
	default:
		report.DriftValue = entry.Value
	}

	history, err := store.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, e := range history {
		report.History = append(report.History, Point{Month: e.Month, Value: e.Value})
	}
	return report, nil
}
