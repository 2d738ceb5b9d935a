package models

import (
	"regexp"
	"strings"
)

// MaxCategoryLength bounds category names stored in calendars and transactions
const MaxCategoryLength = 50

var categoryRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_ -]*$`)

// Common spending categories offered to new users
const (
	CategoryFood          = "food"
	CategoryGroceries     = "groceries"
	CategoryTransport     = "transport"
	CategoryRent          = "rent"
	CategoryUtilities     = "utilities"
	CategoryEntertainment = "entertainment"
	CategoryHealth        = "health"
	CategoryShopping      = "shopping"
	CategoryTravel        = "travel"
	CategoryOther         = "other"
)

// DefaultCategories returns the suggested category set
func DefaultCategories() []string {
	return []string{
		CategoryFood,
		CategoryGroceries,
		CategoryTransport,
		CategoryRent,
		CategoryUtilities,
		CategoryEntertainment,
		CategoryHealth,
		CategoryShopping,
		CategoryTravel,
		CategoryOther,
	}
}

// NormalizeCategory lower-cases and trims a category name
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// IsValidCategory checks that a category name is a short lowercase label.
// Any such label is accepted; DefaultCategories is only a suggestion.
func IsValidCategory(category string) bool {
	if len(category) == 0 || len(category) > MaxCategoryLength {
		return false
	}
	return categoryRegex.MatchString(category)
}
