package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func periodOf(period string, amounts ...int64) PeriodCalendar {
	start, _ := time.Parse("2006-01", period)
	cal := Calendar{}
	for i, a := range amounts {
		cal.Days = append(cal.Days, Day{
			Date:     start.AddDate(0, 0, i),
			Expenses: Expenses{{Category: "food", Amount: decimal.NewFromInt(a)}},
		})
	}
	return PeriodCalendar{Period: period, Calendar: cal}
}

func TestMonthlyTrend_SinglePeriod(t *testing.T) {
	points := MonthlyTrend([]PeriodCalendar{periodOf("2025-01", 10, 20)})

	require.Len(t, points, 1)
	assert.Equal(t, "2025-01", points[0].Period)
	assert.True(t, points[0].Total.Equal(decimal.NewFromInt(30)))
	assert.False(t, points[0].HasPrior())
	assert.Equal(t, PercentNoPrior, points[0].Percent.Kind())

	data, err := json.Marshal(points[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"period":"2025-01","total":"30","delta":null,"percent":null}`, string(data))
}

func TestMonthlyTrend_Deltas(t *testing.T) {
	points := MonthlyTrend([]PeriodCalendar{
		periodOf("2025-01", 100),
		periodOf("2025-02", 150),
		periodOf("2025-03", 50),
	})

	require.Len(t, points, 3)

	assert.True(t, points[1].Delta.Decimal.Equal(decimal.NewFromInt(50)))
	pct, ok := points[1].Percent.Value()
	require.True(t, ok)
	assert.Equal(t, "0.5", pct.String())

	assert.True(t, points[2].Delta.Decimal.Equal(decimal.NewFromInt(-100)))
	pct, ok = points[2].Percent.Value()
	require.True(t, ok)
	assert.Equal(t, "-0.6667", pct.String())
}

func TestMonthlyTrend_ZeroPreviousIsUndefined(t *testing.T) {
	points := MonthlyTrend([]PeriodCalendar{
		{Period: "2025-01"},
		periodOf("2025-02", 40),
	})

	require.Len(t, points, 2)
	assert.True(t, points[1].HasPrior())
	assert.Equal(t, PercentUndefined, points[1].Percent.Kind())
	_, ok := points[1].Percent.Value()
	assert.False(t, ok)

	data, err := json.Marshal(points[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"period":"2025-02","total":"40","delta":"40","percent":"undefined"}`, string(data))
}

func TestMonthlyTrend_PreservesInputOrder(t *testing.T) {
	points := MonthlyTrend([]PeriodCalendar{
		periodOf("2025-03", 1),
		periodOf("2025-01", 2),
		periodOf("2025-02", 3),
	})

	var periods []string
	for _, p := range points {
		periods = append(periods, p.Period)
	}
	assert.Equal(t, []string{"2025-03", "2025-01", "2025-02"}, periods)
}

func TestMonthlyTrend_Empty(t *testing.T) {
	assert.Empty(t, MonthlyTrend(nil))
}

func TestPercent_UnmarshalJSON(t *testing.T) {
	var p Percent

	require.NoError(t, json.Unmarshal([]byte(`"undefined"`), &p))
	assert.Equal(t, PercentUndefined, p.Kind())

	require.NoError(t, json.Unmarshal([]byte(`"0.25"`), &p))
	v, ok := p.Value()
	require.True(t, ok)
	assert.Equal(t, "0.25", v.String())

	require.NoError(t, json.Unmarshal([]byte(`null`), &p))
	assert.Equal(t, PercentNoPrior, p.Kind())
}
