package analytics

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedistribute_BalanceEvensOut(t *testing.T) {
	cal := mustRead(t, `{"calendar_id": "c", "days": [
		{"date": "2025-01-01", "expenses": {"food": 70}},
		{"date": "2025-01-02", "expenses": {"food": 10}},
		{"date": "2025-01-03", "expenses": {"food": 0}},
		{"date": "2025-01-04", "expenses": {"food": 20}}
	]}`)

	plan, err := Redistribute(cal, "balance", RedistributeOptions{})
	require.NoError(t, err)

	assert.Equal(t, StrategyBalance, plan.Strategy)
	assert.Equal(t, "c", plan.ID)
	require.Len(t, plan.Days, 4)
	for _, d := range plan.Days {
		assert.True(t, d.Total().Equal(decimal.NewFromInt(25)), d.Date.Format(DateLayout))
	}
}

func TestRedistribute_BalanceAcrossCategories(t *testing.T) {
	cal := mustRead(t, `{"days": [
		{"date": "2025-01-01", "expenses": {"food": 10, "transit": 10, "fun": 10}},
		{"date": "2025-01-02", "expenses": {}},
		{"date": "2025-01-03", "expenses": {}}
	]}`)

	plan, err := Redistribute(cal, "balance", RedistributeOptions{})
	require.NoError(t, err)

	for _, d := range plan.Days {
		assert.Equal(t, "10", d.Total().String(), d.Date.Format(DateLayout))
	}
	after := Aggregate(plan.Calendar)
	for _, c := range []string{"food", "transit", "fun"} {
		assert.True(t, after.Lookup(c).Equal(decimal.NewFromInt(10)), c)
	}
}

func TestRedistribute_BalanceKeepsDaysLevel(t *testing.T) {
	faker := gofakeit.New(11)
	cent := decimal.New(1, -2)

	for i := 0; i < 100; i++ {
		cal := randomCalendar(faker, faker.IntRange(2, 31))

		plan, err := Redistribute(cal, "balance", RedistributeOptions{})
		require.NoError(t, err)

		want := Allocate(cal.Total(), StrategyBalance.weights(len(cal.Days)), 2)
		low, high := plan.Days[0].Total(), plan.Days[0].Total()
		for d, day := range plan.Days {
			assert.True(t, day.Total().Equal(want[d]), "iteration %d day %d: got %s want %s", i, d, day.Total(), want[d])
			low, high = decimal.Min(low, day.Total()), decimal.Max(high, day.Total())
		}
		assert.True(t, high.Sub(low).LessThanOrEqual(cent), "iteration %d spread %s", i, high.Sub(low))
	}
}

func TestRedistribute_DefaultsToBalance(t *testing.T) {
	cal := dailyCalendar(1, 2, 3)

	plan, err := Redistribute(cal, "", RedistributeOptions{})
	require.NoError(t, err)
	assert.Equal(t, StrategyBalance, plan.Strategy)
	for _, d := range plan.Days {
		assert.True(t, d.Total().Equal(decimal.NewFromInt(2)))
	}
}

func TestRedistribute_UnknownStrategy(t *testing.T) {
	plan, err := Redistribute(dailyCalendar(1, 2, 3), "unknown_strategy", RedistributeOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	assert.Empty(t, plan.Days)
}

func TestRedistribute_FrontAndBackLoad(t *testing.T) {
	cal := dailyCalendar(0, 0, 0, 100)

	front, err := Redistribute(cal, "front_load", RedistributeOptions{})
	require.NoError(t, err)
	back, err := Redistribute(cal, "back_load", RedistributeOptions{})
	require.NoError(t, err)

	expected := []string{"40", "30", "20", "10"}
	for i, d := range front.Days {
		assert.Equal(t, expected[i], d.Total().String())
		assert.Equal(t, expected[len(expected)-1-i], back.Days[i].Total().String())
	}
}

func TestRedistribute_AsOfKeepsPastDays(t *testing.T) {
	cal := dailyCalendar(30, 5, 15, 0)
	asOf := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	plan, err := Redistribute(cal, "balance", RedistributeOptions{AsOf: &asOf})
	require.NoError(t, err)

	assert.True(t, plan.Days[0].Total().Equal(decimal.NewFromInt(30)))
	assert.True(t, plan.Total().Equal(cal.Total()))
	assert.Equal(t, "6.67", plan.Days[1].Total().String())
	assert.Equal(t, "6.67", plan.Days[2].Total().String())
	assert.Equal(t, "6.66", plan.Days[3].Total().String())
}

func TestRedistribute_AsOfAfterLastDay(t *testing.T) {
	cal := dailyCalendar(1, 2, 3)
	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	plan, err := Redistribute(cal, "back_load", RedistributeOptions{AsOf: &asOf})
	require.NoError(t, err)
	for i, d := range plan.Days {
		assert.True(t, d.Total().Equal(cal.Days[i].Total()))
	}
}

func TestRedistribute_DoesNotMutateInput(t *testing.T) {
	cal := dailyCalendar(10, 20, 30)

	_, err := Redistribute(cal, "front_load", RedistributeOptions{})
	require.NoError(t, err)

	assert.True(t, cal.Days[0].Total().Equal(decimal.NewFromInt(10)))
	assert.True(t, cal.Days[2].Total().Equal(decimal.NewFromInt(30)))
}

func TestRedistribute_ConservesTotals(t *testing.T) {
	faker := gofakeit.New(7)

	for i := 0; i < 100; i++ {
		cal := randomCalendar(faker, faker.IntRange(1, 31))
		strategy := Strategies[faker.IntRange(0, len(Strategies)-1)]

		plan, err := Redistribute(cal, string(strategy), RedistributeOptions{})
		require.NoError(t, err)

		assert.True(t, plan.Total().Equal(cal.Total()), "iteration %d strategy %s", i, strategy)

		before := Aggregate(cal)
		after := Aggregate(plan.Calendar)
		for _, c := range before.Categories {
			assert.True(t, after.Lookup(c.Category).Equal(c.Amount), "category %s", c.Category)
		}
	}
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		name    string
		total   string
		weights []int64
		scale   int32
		want    []string
	}{
		{"even split", "100", []int64{1, 1, 1, 1}, 2, []string{"25", "25", "25", "25"}},
		{"remainder to earliest", "10", []int64{1, 1, 1}, 2, []string{"3.34", "3.33", "3.33"}},
		{"weighted", "1", []int64{3, 2, 1}, 2, []string{"0.5", "0.33", "0.17"}},
		{"single part", "12.345", []int64{5}, 3, []string{"12.345"}},
		{"zero total", "0", []int64{1, 2}, 2, []string{"0", "0"}},
		{"sub-scale dust", "1.005", []int64{1, 1}, 2, []string{"0.505", "0.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Allocate(decimal.RequireFromString(tt.total), tt.weights, tt.scale)

			require.Len(t, got, len(tt.want))
			sum := decimal.Zero
			for i, g := range got {
				assert.True(t, g.Equal(decimal.RequireFromString(tt.want[i])), "part %d: got %s", i, g)
				sum = sum.Add(g)
			}
			assert.True(t, sum.Equal(decimal.RequireFromString(tt.total)))
		})
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyBalance, s)

	s, err = ParseStrategy("back_load")
	require.NoError(t, err)
	assert.Equal(t, StrategyBackLoad, s)

	_, err = ParseStrategy("Balance")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}
