package repositories

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// lookupError maps a missing row to notFound and wraps anything else with op
func lookupError(err error, notFound error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isDuplicateKeyError matches gorm's translated error as well as the raw
// postgres (23505) and sqlite unique violations.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{"duplicate key", "UNIQUE constraint", "23505"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
