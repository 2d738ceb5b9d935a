package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type amountInput struct {
	Amount decimal.Decimal `json:"amount" validate:"decimal_amount"`
}

type positiveInput struct {
	Amount decimal.Decimal `json:"amount" validate:"positive_amount"`
	Count  int             `json:"count" validate:"positive_amount"`
}

type categoryInput struct {
	Category string `json:"category" validate:"required,category"`
	Strategy string `json:"strategy" validate:"omitempty,strategy"`
}

func TestDecimalAmount(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		amount string
		valid  bool
	}{
		{"0", true},
		{"12.5", true},
		{"1200.00", true},
		{"0.01", true},
		{"0.001", false},
		{"-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := v.Struct(amountInput{Amount: decimal.RequireFromString(tt.amount)})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPositiveAmount(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Struct(positiveInput{Amount: decimal.NewFromInt(1), Count: 1}))
	assert.Error(t, v.Struct(positiveInput{Amount: decimal.Zero, Count: 1}))
	assert.Error(t, v.Struct(positiveInput{Amount: decimal.NewFromInt(1), Count: 0}))
}

func TestCategoryAndStrategy(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Struct(categoryInput{Category: "food"}))
	assert.NoError(t, v.Struct(categoryInput{Category: "Eating Out", Strategy: "front_load"}))
	assert.NoError(t, v.Struct(categoryInput{Category: "rent", Strategy: "balance"}))

	err := v.Struct(categoryInput{Category: "-food"})
	require.Error(t, err)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "category", verrs[0].Field())
	assert.Equal(t, "category", verrs[0].Tag())

	err = v.Struct(categoryInput{Category: "food", Strategy: "random"})
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "strategy", verrs[0].Tag())
}

func TestDefault_Shared(t *testing.T) {
	assert.Same(t, Default(), Default())
}
