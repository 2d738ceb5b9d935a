package analytics

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// PercentPlaces is the rounding applied to month-over-month ratios
const PercentPlaces = 4

// PercentKind tags the variant held by a Percent
type PercentKind int

const (
	// PercentNoPrior marks the first period, which has nothing to compare against
	PercentNoPrior PercentKind = iota
	// PercentUndefined marks a change measured against a zero previous total
	PercentUndefined
	// PercentDefined carries a ratio
	PercentDefined
)

// Percent is the relative change between two periods. The zero value is the
// "no prior period" variant.
type Percent struct {
	kind  PercentKind
	value decimal.Decimal
}

// DefinedPercent wraps a computed ratio
func DefinedPercent(v decimal.Decimal) Percent {
	return Percent{kind: PercentDefined, value: v}
}

// UndefinedPercent is the ratio against a zero base
func UndefinedPercent() Percent {
	return Percent{kind: PercentUndefined}
}

// Kind reports which variant p holds
func (p Percent) Kind() PercentKind {
	return p.kind
}

// Value returns the ratio and whether p is defined
func (p Percent) Value() (decimal.Decimal, bool) {
	return p.value, p.kind == PercentDefined
}

func (p Percent) String() string {
	switch p.kind {
	case PercentDefined:
		return p.value.String()
	case PercentUndefined:
		return "undefined"
	default:
		return "none"
	}
}

// MarshalJSON encodes the variants as a decimal, "undefined" or null
func (p Percent) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case PercentDefined:
		return p.value.MarshalJSON()
	case PercentUndefined:
		return []byte(`"undefined"`), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts the three encodings produced by MarshalJSON
func (p *Percent) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "null":
		*p = Percent{}
		return nil
	case `"undefined"`:
		*p = UndefinedPercent()
		return nil
	}

	var v decimal.Decimal
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid percent %s: %w", string(data), err)
	}
	*p = DefinedPercent(v)
	return nil
}

// PeriodCalendar pairs a period label such as "2025-01" with its calendar
type PeriodCalendar struct {
	Period   string   `json:"period"`
	Calendar Calendar `json:"calendar"`
}

// TrendPoint is one period of a month-over-month trend
type TrendPoint struct {
	Period  string              `json:"period"`
	Total   decimal.Decimal     `json:"total"`
	Delta   decimal.NullDecimal `json:"delta"`
	Percent Percent             `json:"percent"`
}

// HasPrior reports whether the point was compared against a previous period
func (t TrendPoint) HasPrior() bool {
	return t.Delta.Valid
}

// MonthlyTrend computes period totals and their change against the previous
// period. history must already be in chronological order; it is not re-sorted.
func MonthlyTrend(history []PeriodCalendar) []TrendPoint {
	points := make([]TrendPoint, 0, len(history))

	for i, pc := range history {
		point := TrendPoint{
			Period: pc.Period,
			Total:  Aggregate(pc.Calendar).Total,
		}

		if i > 0 {
			prev := points[i-1].Total
			delta := point.Total.Sub(prev)
			point.Delta = decimal.NewNullDecimal(delta)

			if prev.IsZero() {
				point.Percent = UndefinedPercent()
			} else {
				point.Percent = DefinedPercent(delta.DivRound(prev, PercentPlaces))
			}
		}

		points = append(points, point)
	}

	return points
}
