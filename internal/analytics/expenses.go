package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CategoryAmount is a single category entry of a day's expenses
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// Expenses is an ordered category -> amount mapping. Iteration order is
// insertion order, which keeps category output deterministic.
type Expenses []CategoryAmount

// Get returns the amount recorded for a category
func (e Expenses) Get(category string) (decimal.Decimal, bool) {
	for _, item := range e {
		if item.Category == category {
			return item.Amount, true
		}
	}
	return decimal.Zero, false
}

// Set replaces the amount of an existing category or appends a new one
func (e *Expenses) Set(category string, amount decimal.Decimal) {
	for i := range *e {
		if (*e)[i].Category == category {
			(*e)[i].Amount = amount
			return
		}
	}
	*e = append(*e, CategoryAmount{Category: category, Amount: amount})
}

// Add increases the amount of a category, appending it when missing
func (e *Expenses) Add(category string, amount decimal.Decimal) {
	current, _ := e.Get(category)
	e.Set(category, current.Add(amount))
}

// Total returns the sum of all category amounts
func (e Expenses) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range e {
		total = total.Add(item.Amount)
	}
	return total
}

// Categories returns category names in insertion order
func (e Expenses) Categories() []string {
	names := make([]string, 0, len(e))
	for _, item := range e {
		names = append(names, item.Category)
	}
	return names
}

// Clone returns an independent copy
func (e Expenses) Clone() Expenses {
	if e == nil {
		return Expenses{}
	}
	out := make(Expenses, len(e))
	copy(out, e)
	return out
}

// MarshalJSON encodes the mapping as a JSON object preserving order
func (e Expenses) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, item := range e {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(item.Category)
		if err != nil {
			return nil, err
		}
		value, err := item.Amount.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order. Amounts must be
// valid non-negative decimals and categories must be unique.
func (e *Expenses) UnmarshalJSON(data []byte) error {
	var raw RawExpenses
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := raw.Parse()
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// RawExpense is an unvalidated category entry as received from a caller
type RawExpense struct {
	Category string
	Amount   json.RawMessage
}

// RawExpenses is an unvalidated, ordered category -> amount mapping
type RawExpenses []RawExpense

// UnmarshalJSON reads a JSON object token by token so that key order survives
func (r *RawExpenses) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expenses must be a JSON object")
	}

	out := RawExpenses{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expenses key must be a string")
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out = append(out, RawExpense{Category: key, Amount: value})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = out
	return nil
}

// MarshalJSON re-encodes the raw mapping in its original order
func (r RawExpenses) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, item := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(item.Category)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(item.Amount) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(item.Amount)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Parse validates the raw mapping: category names must be non-empty and
// unique, amounts non-negative numbers
func (r RawExpenses) Parse() (Expenses, error) {
	out := make(Expenses, 0, len(r))
	seen := make(map[string]struct{}, len(r))

	for _, item := range r {
		if item.Category == "" {
			return nil, fmt.Errorf("%w: empty category name", ErrMalformedCalendar)
		}
		if _, dup := seen[item.Category]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrMalformedCalendar, item.Category)
		}
		seen[item.Category] = struct{}{}

		amount, err := ParseAmount(item.Amount)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", item.Category, err)
		}
		out = append(out, CategoryAmount{Category: item.Category, Amount: amount})
	}

	return out, nil
}

// ParseAmount converts a raw JSON number or numeric string into a
// non-negative decimal
func ParseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	text := string(bytes.TrimSpace(raw))
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	if text == "" || text == "null" {
		return decimal.Zero, fmt.Errorf("%w: missing amount", ErrInvalidAmount)
	}

	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, text)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amount.String())
	}

	return amount, nil
}

// ExpensesFromPairs builds Expenses from pairs, summing repeated categories
func ExpensesFromPairs(pairs ...CategoryAmount) Expenses {
	out := make(Expenses, 0, len(pairs))
	for _, p := range pairs {
		out.Add(p.Category, p.Amount)
	}
	return out
}
