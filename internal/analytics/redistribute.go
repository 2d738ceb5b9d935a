package analytics

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Strategy selects how remaining budget is spread over remaining days
type Strategy string

const (
	StrategyBalance   Strategy = "balance"
	StrategyFrontLoad Strategy = "front_load"
	StrategyBackLoad  Strategy = "back_load"
)

// Strategies lists every recognized strategy
var Strategies = []Strategy{StrategyBalance, StrategyFrontLoad, StrategyBackLoad}

// ParseStrategy resolves a strategy name. An empty name selects balance; any
// other unrecognized name is rejected.
func ParseStrategy(name string) (Strategy, error) {
	if name == "" {
		return StrategyBalance, nil
	}
	s := Strategy(name)
	if !slices.Contains(Strategies, s) {
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return s, nil
}

// weights returns the per-day weights of a strategy over n days
func (s Strategy) weights(n int) []int64 {
	w := make([]int64, n)
	for i := range w {
		switch s {
		case StrategyFrontLoad:
			w[i] = int64(n - i)
		case StrategyBackLoad:
			w[i] = int64(i + 1)
		default:
			w[i] = 1
		}
	}
	return w
}

// RedistributionPlan is the rewritten calendar together with the strategy used
type RedistributionPlan struct {
	Calendar
	Strategy Strategy   `json:"strategy"`
	AsOf     *time.Time `json:"-"`
}

// RedistributeOptions narrows which days are rewritten
type RedistributeOptions struct {
	// AsOf, when set, leaves days before it unchanged
	AsOf *time.Time
}

// Redistribute spreads each category's total over the remaining days of the
// calendar according to strategy. Per-category totals and the overall total
// are conserved exactly. Day totals follow Allocate of the overall total, so
// rounding never piles up on one day when there are several categories.
func Redistribute(cal Calendar, strategyName string, opts RedistributeOptions) (RedistributionPlan, error) {
	strategy, err := ParseStrategy(strategyName)
	if err != nil {
		return RedistributionPlan{}, err
	}

	out := cal.Clone()
	plan := RedistributionPlan{Calendar: out, Strategy: strategy, AsOf: opts.AsOf}

	start := 0
	if opts.AsOf != nil {
		start = len(out.Days)
		for i, d := range out.Days {
			if !d.Date.Before(*opts.AsOf) {
				start = i
				break
			}
		}
	}

	remaining := out.Days[start:]
	if len(remaining) == 0 {
		return plan, nil
	}

	var totals Expenses
	for _, d := range remaining {
		for _, item := range d.Expenses {
			totals.Add(item.Category, item.Amount)
		}
	}

	scale := cal.scale()
	shares := spread(totals, strategy.weights(len(remaining)), scale)
	for i := range remaining {
		remaining[i].Expenses = make(Expenses, 0, len(totals))
		for j, item := range totals {
			remaining[i].Expenses = append(remaining[i].Expenses, CategoryAmount{
				Category: item.Category,
				Amount:   shares[j][i],
			})
		}
	}

	plan.Calendar = out
	return plan, nil
}

// spread splits every category over len(weights) days. Each category keeps
// its floor share per day; its rounding units go to the days furthest below
// their target, where targets are Allocate of the grand total. The result is
// indexed [category][day].
func spread(totals Expenses, weights []int64, scale int32) [][]decimal.Decimal {
	grand := decimal.Zero
	for _, item := range totals {
		grand = grand.Add(item.Amount)
	}
	deficit := Allocate(grand, weights, scale)

	var weightSum int64
	for _, w := range weights {
		weightSum += w
	}
	divisor := decimal.NewFromInt(weightSum)
	unit := decimal.New(1, -scale)

	idx := make([]int, len(weights))
	out := make([][]decimal.Decimal, len(totals))
	for j, item := range totals {
		units := item.Amount.Shift(scale).Truncate(0)
		dust := item.Amount.Sub(units.Shift(-scale))

		shares := make([]decimal.Decimal, len(weights))
		assigned := decimal.Zero
		for i, w := range weights {
			q, _ := units.Mul(decimal.NewFromInt(w)).QuoRem(divisor, 0)
			assigned = assigned.Add(q)
			shares[i] = q.Shift(-scale)
			deficit[i] = deficit[i].Sub(shares[i])
		}

		for i := range idx {
			idx[i] = i
		}
		slices.SortStableFunc(idx, func(a, b int) int {
			return deficit[b].Cmp(deficit[a])
		})
		short := int(units.Sub(assigned).IntPart())
		for k := 0; k < short; k++ {
			i := idx[k%len(idx)]
			shares[i] = shares[i].Add(unit)
			deficit[i] = deficit[i].Sub(unit)
		}

		shares[0] = shares[0].Add(dust)
		deficit[0] = deficit[0].Sub(dust)
		out[j] = shares
	}
	return out
}

// Allocate splits total into len(weights) parts proportional to weights,
// rounded to scale decimal places. The parts always sum to total: units lost
// to rounding go to the largest fractional remainders, earlier parts first
// on ties.
func Allocate(total decimal.Decimal, weights []int64, scale int32) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(weights))
	if len(weights) == 0 {
		return shares
	}

	var weightSum int64
	for _, w := range weights {
		weightSum += w
	}
	if weightSum <= 0 {
		for i := range shares {
			shares[i] = decimal.Zero
		}
		shares[0] = total
		return shares
	}

	units := total.Shift(scale).Truncate(0)
	leftover := total.Sub(units.Shift(-scale))
	divisor := decimal.NewFromInt(weightSum)

	remainders := make([]decimal.Decimal, len(weights))
	assigned := decimal.Zero
	for i, w := range weights {
		q, r := units.Mul(decimal.NewFromInt(w)).QuoRem(divisor, 0)
		shares[i] = q
		remainders[i] = r
		assigned = assigned.Add(q)
	}

	idx := make([]int, len(weights))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return remainders[b].Cmp(remainders[a])
	})

	short := units.Sub(assigned).IntPart()
	for k := int64(0); k < short; k++ {
		i := idx[int(k)%len(idx)]
		shares[i] = shares[i].Add(decimal.NewFromInt(1))
	}

	for i := range shares {
		shares[i] = shares[i].Shift(-scale)
	}
	// sub-unit dust beyond scale stays with the first part
	shares[0] = shares[0].Add(leftover)

	return shares
}
