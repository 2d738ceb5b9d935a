package analytics

import (
	"math"

	"github.com/shopspring/decimal"
)

const statsPrecision = 16

var two = decimal.NewFromInt(2)

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, values...).DivRound(decimal.NewFromInt(int64(len(values))), statsPrecision)
}

// populationStdDev returns the population standard deviation of values
func populationStdDev(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}

	m := mean(values)
	sumSq := decimal.Zero
	for _, v := range values {
		d := v.Sub(m)
		sumSq = sumSq.Add(d.Mul(d))
	}

	return sqrt(sumSq.DivRound(decimal.NewFromInt(int64(len(values))), statsPrecision))
}

// sqrt computes a decimal square root by Newton iteration seeded from float64
func sqrt(x decimal.Decimal) decimal.Decimal {
	if x.Sign() <= 0 {
		return decimal.Zero
	}

	f, _ := x.Float64()
	z := decimal.NewFromFloat(math.Sqrt(f))
	if z.Sign() <= 0 {
		z = x
	}

	for i := 0; i < 20; i++ {
		next := z.Add(x.DivRound(z, statsPrecision)).DivRound(two, statsPrecision)
		if next.Equal(z) {
			break
		}
		z = next
	}

	return z
}

// hasVariance reports whether values contain at least two distinct numbers
func hasVariance(values []decimal.Decimal) bool {
	for _, v := range values[1:] {
		if !v.Equal(values[0]) {
			return true
		}
	}
	return false
}

// without returns values with the element at index i removed
func without(values []decimal.Decimal, i int) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(values)-1)
	out = append(out, values[:i]...)
	return append(out, values[i+1:]...)
}
