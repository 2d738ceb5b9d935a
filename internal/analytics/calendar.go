// Package analytics holds the spending analytics core: calendar validation,
// aggregation, month-over-month trends, anomaly detection and budget
// redistribution. Every function is a pure transform over in-memory values.
package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO-8601 calendar date format used on the wire
const DateLayout = "2006-01-02"

var (
	ErrMalformedCalendar = errors.New("malformed calendar")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrUnknownStrategy   = errors.New("unknown redistribution strategy")
)

// RawDay is a day record exactly as supplied by a caller
type RawDay struct {
	Date     string      `json:"date"`
	Expenses RawExpenses `json:"expenses"`
}

// RawCalendar is an unvalidated calendar document
type RawCalendar struct {
	CalendarID string   `json:"calendar_id,omitempty"`
	Days       []RawDay `json:"days"`
}

// Day is a validated calendar day
type Day struct {
	Date     time.Time
	Expenses Expenses
}

// Total returns the sum of the day's category amounts
func (d Day) Total() decimal.Decimal {
	return d.Expenses.Total()
}

type dayJSON struct {
	Date     string          `json:"date"`
	Expenses Expenses        `json:"expenses"`
	Total    decimal.Decimal `json:"total"`
}

// MarshalJSON renders the day with its date as YYYY-MM-DD and its derived total
func (d Day) MarshalJSON() ([]byte, error) {
	expenses := d.Expenses
	if expenses == nil {
		expenses = Expenses{}
	}
	return json.Marshal(dayJSON{
		Date:     d.Date.Format(DateLayout),
		Expenses: expenses,
		Total:    d.Total(),
	})
}

// Calendar is an ordered run of days with unique, strictly increasing dates
type Calendar struct {
	ID   string `json:"calendar_id,omitempty"`
	Days []Day  `json:"days"`
}

// Total returns the sum of all day totals
func (c Calendar) Total() decimal.Decimal {
	total := decimal.Zero
	for _, d := range c.Days {
		total = total.Add(d.Total())
	}
	return total
}

// Clone returns a deep copy of the calendar
func (c Calendar) Clone() Calendar {
	days := make([]Day, len(c.Days))
	for i, d := range c.Days {
		days[i] = Day{Date: d.Date, Expenses: d.Expenses.Clone()}
	}
	return Calendar{ID: c.ID, Days: days}
}

// ParseDate parses a YYYY-MM-DD date into a UTC midnight timestamp
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// ReadCalendar validates a raw calendar and converts it into a Calendar.
// Duplicate, missing, unparsable or out-of-order dates and empty category
// names yield ErrMalformedCalendar; negative or non-numeric amounts yield
// ErrInvalidAmount. The raw input is left untouched.
func ReadCalendar(raw RawCalendar) (Calendar, error) {
	cal := Calendar{ID: raw.CalendarID, Days: make([]Day, 0, len(raw.Days))}

	var previous time.Time
	for i, rd := range raw.Days {
		if strings.TrimSpace(rd.Date) == "" {
			return Calendar{}, fmt.Errorf("%w: day %d has no date", ErrMalformedCalendar, i)
		}

		date, err := ParseDate(rd.Date)
		if err != nil {
			return Calendar{}, fmt.Errorf("%w: day %d has invalid date %q", ErrMalformedCalendar, i, rd.Date)
		}

		if i > 0 {
			switch {
			case date.Equal(previous):
				return Calendar{}, fmt.Errorf("%w: duplicate date %s", ErrMalformedCalendar, rd.Date)
			case date.Before(previous):
				return Calendar{}, fmt.Errorf("%w: date %s is out of order", ErrMalformedCalendar, rd.Date)
			}
		}
		previous = date

		expenses, err := rd.Expenses.Parse()
		if err != nil {
			return Calendar{}, fmt.Errorf("day %s: %w", rd.Date, err)
		}

		cal.Days = append(cal.Days, Day{Date: date, Expenses: expenses})
	}

	return cal, nil
}

// ToRaw converts a validated calendar back into its raw wire form
func (c Calendar) ToRaw() RawCalendar {
	raw := RawCalendar{CalendarID: c.ID, Days: make([]RawDay, 0, len(c.Days))}
	for _, d := range c.Days {
		expenses := make(RawExpenses, 0, len(d.Expenses))
		for _, item := range d.Expenses {
			expenses = append(expenses, RawExpense{
				Category: item.Category,
				Amount:   json.RawMessage(item.Amount.String()),
			})
		}
		raw.Days = append(raw.Days, RawDay{Date: d.Date.Format(DateLayout), Expenses: expenses})
	}
	return raw
}

// scale returns the number of decimal places needed to represent every
// amount in the calendar, with a floor of two
func (c Calendar) scale() int32 {
	var places int32 = 2
	for _, d := range c.Days {
		for _, item := range d.Expenses {
			if exp := item.Amount.Exponent(); -exp > places {
				places = -exp
			}
		}
	}
	return places
}
