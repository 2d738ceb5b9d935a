package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type AnomalyDetectorTestSuite struct {
	suite.Suite
	threshold decimal.Decimal
}

func TestAnomalyDetectorSuite(t *testing.T) {
	suite.Run(t, new(AnomalyDetectorTestSuite))
}

func (s *AnomalyDetectorTestSuite) SetupTest() {
	s.threshold = decimal.NewFromFloat(2.0)
}

func dailyCalendar(amounts ...int64) Calendar {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cal := Calendar{}
	for i, a := range amounts {
		cal.Days = append(cal.Days, Day{
			Date:     start.AddDate(0, 0, i),
			Expenses: Expenses{{Category: "food", Amount: decimal.NewFromInt(a)}},
		})
	}
	return cal
}

func (s *AnomalyDetectorTestSuite) TestDetectAnomalies_SpikeIsFlagged() {
	report := DetectAnomalies(dailyCalendar(10, 50, 12), s.threshold)

	s.False(report.InsufficientData)
	s.Require().Len(report.Flags, 1)

	flag := report.Flags[0]
	s.Equal("2025-01-02", flag.Subject)
	s.Equal(SubjectDay, flag.Kind)
	s.True(flag.Observed.Equal(decimal.NewFromInt(50)))
	s.True(flag.Expected.Equal(decimal.NewFromInt(24)), flag.Expected.String())
	s.True(flag.Baseline.Equal(decimal.NewFromInt(11)))
	s.True(flag.Deviation.Equal(decimal.NewFromInt(39)))
	s.Equal(SeveritySevere, flag.Severity)
}

func (s *AnomalyDetectorTestSuite) TestDetectAnomalies_TooFewDays() {
	for _, cal := range []Calendar{dailyCalendar(), dailyCalendar(5), dailyCalendar(5, 500)} {
		report := DetectAnomalies(cal, s.threshold)
		s.True(report.InsufficientData)
		s.Empty(report.Flags)
	}
}

func (s *AnomalyDetectorTestSuite) TestDetectAnomalies_ZeroVariance() {
	report := DetectAnomalies(dailyCalendar(7, 7, 7, 7, 7), s.threshold)

	s.True(report.InsufficientData)
	s.Empty(report.Flags)
}

func (s *AnomalyDetectorTestSuite) TestDetectAnomalies_FlatBaselineUsesPeriodSpread() {
	// the others are all 10, so the period's own spread is the yardstick
	report := DetectAnomalies(dailyCalendar(10, 10, 10, 50), s.threshold)

	s.Require().Len(report.Flags, 1)
	s.Equal("2025-01-04", report.Flags[0].Subject)
	s.Equal(SeverityModerate, report.Flags[0].Severity)
	s.Equal("2.3094", report.Flags[0].Deviation.String())
}

func (s *AnomalyDetectorTestSuite) TestDetectAnomalies_OrderedByMagnitudeThenDate() {
	report := DetectAnomalies(dailyCalendar(10, 11, 10, 200, 11, 10, 200, 10, 11, 10, 400), s.threshold)

	s.Require().NotEmpty(report.Flags)
	for i := 1; i < len(report.Flags); i++ {
		prev, cur := report.Flags[i-1], report.Flags[i]
		cmp := prev.Deviation.Abs().Cmp(cur.Deviation.Abs())
		s.GreaterOrEqual(cmp, 0)
		if cmp == 0 {
			s.Less(prev.Subject, cur.Subject)
		}
	}
	s.Equal("2025-01-11", report.Flags[0].Subject)
}

func (s *AnomalyDetectorTestSuite) TestDetectAnomalies_TiesBrokenByDate() {
	report := DetectAnomalies(dailyCalendar(1, 1, 1, 1, 1, 1, 1, 1, 90, 90), decimal.NewFromFloat(1.5))

	s.Require().Len(report.Flags, 2)
	s.True(report.Flags[0].Deviation.Equal(report.Flags[1].Deviation))
	s.Equal("2025-01-09", report.Flags[0].Subject)
	s.Equal("2025-01-10", report.Flags[1].Subject)
}

func (s *AnomalyDetectorTestSuite) TestDetectAnomalies_DefaultThreshold() {
	report := DetectAnomalies(dailyCalendar(10, 50, 12), decimal.Zero)

	s.True(report.Threshold.Equal(DefaultThreshold))
	s.Len(report.Flags, 1)
}

func (s *AnomalyDetectorTestSuite) TestDetectAnomalies_HighThresholdSuppressesFlags() {
	report := DetectAnomalies(dailyCalendar(10, 50, 12), decimal.NewFromInt(100))

	s.False(report.InsufficientData)
	s.Empty(report.Flags)
}

func (s *AnomalyDetectorTestSuite) TestDetectCategoryAnomalies_LastPeriodSpike() {
	history := []PeriodCalendar{
		{Period: "2025-01", Calendar: mustCalendar(s.T(), "2025-01-01", Expenses{{"food", decimal.NewFromInt(100)}, {"fun", decimal.NewFromInt(20)}})},
		{Period: "2025-02", Calendar: mustCalendar(s.T(), "2025-02-01", Expenses{{"food", decimal.NewFromInt(110)}, {"fun", decimal.NewFromInt(25)}})},
		{Period: "2025-03", Calendar: mustCalendar(s.T(), "2025-03-01", Expenses{{"food", decimal.NewFromInt(105)}, {"fun", decimal.NewFromInt(22)}})},
		{Period: "2025-04", Calendar: mustCalendar(s.T(), "2025-04-01", Expenses{{"food", decimal.NewFromInt(400)}, {"fun", decimal.NewFromInt(24)}})},
	}

	report := DetectCategoryAnomalies(history, s.threshold)

	s.False(report.InsufficientData)
	s.Require().Len(report.Flags, 1)
	s.Equal("food", report.Flags[0].Subject)
	s.Equal(SubjectCategory, report.Flags[0].Kind)
	s.Equal("2025-04", report.Flags[0].Period)
	s.True(report.Flags[0].Expected.Equal(decimal.RequireFromString("178.75")))
	s.True(report.Flags[0].Baseline.Equal(decimal.NewFromInt(105)))
	s.Equal(SeveritySevere, report.Flags[0].Severity)
}

func (s *AnomalyDetectorTestSuite) TestDetectCategoryAnomalies_MissingCategoryCountsAsZero() {
	history := []PeriodCalendar{
		{Period: "2025-01", Calendar: mustCalendar(s.T(), "2025-01-01", Expenses{{"food", decimal.NewFromInt(100)}})},
		{Period: "2025-02", Calendar: mustCalendar(s.T(), "2025-02-01", Expenses{{"food", decimal.NewFromInt(100)}})},
		{Period: "2025-03", Calendar: mustCalendar(s.T(), "2025-03-01", Expenses{{"food", decimal.NewFromInt(100)}})},
		{Period: "2025-04", Calendar: mustCalendar(s.T(), "2025-04-01", Expenses{{"food", decimal.NewFromInt(100)}, {"travel", decimal.NewFromInt(900)}})},
	}

	report := DetectCategoryAnomalies(history, s.threshold)

	s.Require().Len(report.Flags, 1)
	s.Equal("travel", report.Flags[0].Subject)
	s.True(report.Flags[0].Expected.Equal(decimal.NewFromInt(225)))
	s.True(report.Flags[0].Baseline.IsZero())
}

func (s *AnomalyDetectorTestSuite) TestDetectCategoryAnomalies_InsufficientHistory() {
	history := []PeriodCalendar{
		{Period: "2025-01", Calendar: mustCalendar(s.T(), "2025-01-01", Expenses{{"food", decimal.NewFromInt(1)}})},
		{Period: "2025-02", Calendar: mustCalendar(s.T(), "2025-02-01", Expenses{{"food", decimal.NewFromInt(900)}})},
	}

	report := DetectCategoryAnomalies(history, s.threshold)
	s.True(report.InsufficientData)
	s.Empty(report.Flags)
}

func (s *AnomalyDetectorTestSuite) TestDetectCategoryAnomalies_FlatHistory() {
	var history []PeriodCalendar
	for _, p := range []string{"2025-01", "2025-02", "2025-03"} {
		history = append(history, PeriodCalendar{
			Period:   p,
			Calendar: mustCalendar(s.T(), p+"-01", Expenses{{"food", decimal.NewFromInt(50)}}),
		})
	}

	report := DetectCategoryAnomalies(history, s.threshold)
	s.True(report.InsufficientData)
	s.Empty(report.Flags)
}

func TestAnomalyReport_Severe(t *testing.T) {
	report := AnomalyReport{Flags: []AnomalyFlag{
		{Subject: "a", Severity: SeveritySevere},
		{Subject: "b", Severity: SeverityModerate},
	}}

	severe := report.Severe()
	require.Len(t, severe, 1)
	assert.Equal(t, "a", severe[0].Subject)
}

func TestSqrt(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1", "1"},
		{"4", "2"},
		{"2", "1.4142"},
		{"300", "17.3205"},
	}
	for _, tt := range tests {
		got := sqrt(decimal.RequireFromString(tt.in)).Round(4)
		assert.Equal(t, tt.want, got.String(), tt.in)
	}
}

func mustCalendar(t *testing.T, date string, expenses Expenses) Calendar {
	t.Helper()
	d, err := ParseDate(date)
	require.NoError(t, err)
	return Calendar{Days: []Day{{Date: d, Expenses: expenses}}}
}
