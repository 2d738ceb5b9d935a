package analytics

import (
	"slices"

	"github.com/shopspring/decimal"
)

// MinAnomalyPoints is the smallest series the detector will evaluate
const MinAnomalyPoints = 3

const deviationPlaces = 4

// DefaultThreshold is the deviation, in standard deviations, at which an
// observation is flagged
var DefaultThreshold = decimal.NewFromFloat(2.0)

var severeFactor = decimal.NewFromFloat(1.5)

// Severity labels how far past the threshold an observation landed
type Severity string

const (
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// SubjectKind distinguishes day flags from category flags
type SubjectKind string

const (
	SubjectDay      SubjectKind = "day"
	SubjectCategory SubjectKind = "category"
)

// AnomalyFlag describes one observation that deviates from its baseline.
// Expected is the mean of the whole series, the observation included.
// Baseline is the mean of the other observations, which Deviation is
// measured against. Deviation is signed; ordering and severity use its
// magnitude.
type AnomalyFlag struct {
	Subject   string          `json:"subject"`
	Kind      SubjectKind     `json:"kind"`
	Period    string          `json:"period,omitempty"`
	Observed  decimal.Decimal `json:"observed"`
	Expected  decimal.Decimal `json:"expected"`
	Baseline  decimal.Decimal `json:"baseline"`
	Deviation decimal.Decimal `json:"deviation"`
	Severity  Severity        `json:"severity"`
}

// AnomalyReport is the outcome of a detection run. InsufficientData is set
// when the series was too short or flat to evaluate; it is not an error.
type AnomalyReport struct {
	Threshold        decimal.Decimal `json:"threshold"`
	InsufficientData bool            `json:"insufficient_data"`
	Flags            []AnomalyFlag   `json:"flags"`
}

// Severe returns the flags labelled severe
func (r AnomalyReport) Severe() []AnomalyFlag {
	var out []AnomalyFlag
	for _, f := range r.Flags {
		if f.Severity == SeveritySevere {
			out = append(out, f)
		}
	}
	return out
}

type observation struct {
	subject string
	value   decimal.Decimal
	order   int
}

// baseline returns the mean and spread an observation is compared against:
// the remaining observations, falling back to the full series spread when
// the remaining ones are all equal
func baseline(all []decimal.Decimal, i int) (decimal.Decimal, decimal.Decimal) {
	rest := without(all, i)
	m := mean(rest)
	sd := populationStdDev(rest)
	if sd.IsZero() {
		sd = populationStdDev(all)
	}
	return m, sd
}

func normalizeThreshold(threshold decimal.Decimal) decimal.Decimal {
	if threshold.Sign() <= 0 {
		return DefaultThreshold
	}
	return threshold
}

func classify(deviation, threshold decimal.Decimal) (Severity, bool) {
	magnitude := deviation.Abs()
	if magnitude.LessThan(threshold) {
		return "", false
	}
	if magnitude.GreaterThanOrEqual(threshold.Mul(severeFactor)) {
		return SeveritySevere, true
	}
	return SeverityModerate, true
}

func sortFlags(flags []AnomalyFlag, order map[string]int) {
	slices.SortStableFunc(flags, func(a, b AnomalyFlag) int {
		if c := b.Deviation.Abs().Cmp(a.Deviation.Abs()); c != 0 {
			return c
		}
		return order[a.Subject] - order[b.Subject]
	})
}

// DetectAnomalies flags days whose total deviates from the rest of the
// period by at least threshold standard deviations. A non-positive threshold
// selects DefaultThreshold. Fewer than MinAnomalyPoints days, or days that
// all share one total, produce no flags.
func DetectAnomalies(cal Calendar, threshold decimal.Decimal) AnomalyReport {
	threshold = normalizeThreshold(threshold)
	report := AnomalyReport{Threshold: threshold, Flags: []AnomalyFlag{}}

	totals := make([]decimal.Decimal, len(cal.Days))
	obs := make([]observation, len(cal.Days))
	for i, d := range cal.Days {
		totals[i] = d.Total()
		obs[i] = observation{subject: d.Date.Format(DateLayout), value: totals[i], order: i}
	}

	if len(totals) < MinAnomalyPoints || !hasVariance(totals) {
		report.InsufficientData = true
		return report
	}

	order := make(map[string]int, len(obs))
	for i, o := range obs {
		order[o.subject] = o.order
		m, sd := baseline(totals, i)
		if sd.IsZero() {
			continue
		}

		deviation := o.value.Sub(m).DivRound(sd, deviationPlaces)
		severity, flagged := classify(deviation, threshold)
		if !flagged {
			continue
		}

		report.Flags = append(report.Flags, AnomalyFlag{
			Subject:   o.subject,
			Kind:      SubjectDay,
			Observed:  o.value,
			Expected:  mean(totals).Round(deviationPlaces),
			Baseline:  m.Round(deviationPlaces),
			Deviation: deviation,
			Severity:  severity,
		})
	}

	sortFlags(report.Flags, order)
	return report
}

// DetectCategoryAnomalies evaluates the last period of history. Each
// category's total in that period is compared against the same category's
// totals in the earlier periods; a period without the category counts as
// zero. history must be chronological and hold at least MinAnomalyPoints
// periods.
func DetectCategoryAnomalies(history []PeriodCalendar, threshold decimal.Decimal) AnomalyReport {
	threshold = normalizeThreshold(threshold)
	report := AnomalyReport{Threshold: threshold, Flags: []AnomalyFlag{}}

	if len(history) < MinAnomalyPoints {
		report.InsufficientData = true
		return report
	}

	aggregates := make([]AggregateResult, len(history))
	var categories []string
	order := make(map[string]int)
	for i, pc := range history {
		aggregates[i] = Aggregate(pc.Calendar)
		for _, c := range aggregates[i].Categories {
			if _, seen := order[c.Category]; !seen {
				order[c.Category] = len(categories)
				categories = append(categories, c.Category)
			}
		}
	}

	last := len(history) - 1
	evaluated := false
	for _, category := range categories {
		series := make([]decimal.Decimal, len(history))
		for i, agg := range aggregates {
			series[i] = agg.Lookup(category)
		}

		if !hasVariance(series) {
			continue
		}
		evaluated = true

		m, sd := baseline(series, last)
		if sd.IsZero() {
			continue
		}

		deviation := series[last].Sub(m).DivRound(sd, deviationPlaces)
		severity, flagged := classify(deviation, threshold)
		if !flagged {
			continue
		}

		report.Flags = append(report.Flags, AnomalyFlag{
			Subject:   category,
			Kind:      SubjectCategory,
			Period:    history[last].Period,
			Observed:  series[last],
			Expected:  mean(series).Round(deviationPlaces),
			Baseline:  m.Round(deviationPlaces),
			Deviation: deviation,
			Severity:  severity,
		})
	}

	report.InsufficientData = !evaluated
	sortFlags(report.Flags, order)
	return report
}
