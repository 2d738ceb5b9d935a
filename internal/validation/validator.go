package validation

import (
	"reflect"
	"strings"
	"sync"

	"mita-backend/internal/analytics"
	"mita-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// MaxAmountPlaces is the number of decimal places accepted for money input
const MaxAmountPlaces = 2

// rules maps the custom tags usable in validate struct tags
var rules = map[string]validator.Func{
	"category":        validateCategory,
	"strategy":        validateStrategy,
	"decimal_amount":  validateDecimalAmount,
	"positive_amount": validatePositiveAmount,
}

// Validator checks request structs against the standard and custom rules.
// Field names in errors are the json names.
type Validator struct {
	validate *validator.Validate
}

var (
	shared     *Validator
	sharedOnce sync.Once
)

// Default returns the process-wide validator
func Default() *Validator {
	sharedOnce.Do(func() { shared = NewValidator() })
	return shared
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	v.RegisterTagNameFunc(jsonFieldName)
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	return &Validator{validate: v}
}

// Validate makes Validator usable as an echo.Validator
func (v *Validator) Validate(i any) error {
	return v.validate.Struct(i)
}

func (v *Validator) Struct(s any) error {
	return v.validate.Struct(s)
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// decimals are validated through their string form
func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

// validateCategory accepts short lowercase labels. Input is normalised first
// so "Eating Out" passes as "eating out".
func validateCategory(fl validator.FieldLevel) bool {
	return models.IsValidCategory(models.NormalizeCategory(fl.Field().String()))
}

// validateStrategy accepts the redistribution strategy names
func validateStrategy(fl validator.FieldLevel) bool {
	_, err := analytics.ParseStrategy(fl.Field().String())
	return err == nil
}

// validateDecimalAmount validates a non-negative amount with at most two
// decimal places
func validateDecimalAmount(fl validator.FieldLevel) bool {
	amount, ok := parseDecimal(fl.Field())
	if !ok {
		return false
	}
	return !amount.IsNegative() && amount.Equal(amount.Truncate(MaxAmountPlaces))
}

// validatePositiveAmount validates that an amount is greater than 0
func validatePositiveAmount(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fl.Field().Int() > 0
	case reflect.Float32, reflect.Float64:
		return fl.Field().Float() > 0
	case reflect.String:
		amount, ok := parseDecimal(fl.Field())
		return ok && amount.IsPositive()
	default:
		return false
	}
}

func parseDecimal(field reflect.Value) (decimal.Decimal, bool) {
	if field.Kind() != reflect.String {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(field.String())
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}
