package cohort

import (
	"sort"
	"time"

	"funnel-mcp/internal/lag"

	"gonum.org/v1/gonum/stat"
)

// LatencyStats is an aggregate lag summary over a cohort set.
type LatencyStats struct {
	MedianLagDays float64 `json:"median_lag_days"`
	MeanLagDays   float64 `json:"mean_lag_days,omitempty"`
}

// Helpers turns raw parameter rows into cohorts. The engine never parses rows itself.
type Helpers interface {
	// AggregateCohortData builds cohorts from cohort-mode rows.
	AggregateCohortData(values []ParamValue, queryDate time.Time, window *DateRange) []lag.CohortData
	// AggregateWindowData builds cohorts from window-mode rows.
	AggregateWindowData(values []ParamValue, queryDate time.Time, window *DateRange) []lag.CohortData
	// AggregateLatencyStats summarises per-cohort lags; ok is false without lag data.
	AggregateLatencyStats(cohorts []lag.CohortData) (LatencyStats, bool)
}

// DefaultHelpers merges rows by date, with the most recently retrieved row
// winning for a date present in several rows.
type DefaultHelpers struct{}

var _ Helpers = DefaultHelpers{}

func (DefaultHelpers) AggregateCohortData(values []ParamValue, queryDate time.Time, window *DateRange) []lag.CohortData {
	return aggregate(values, ModeCohort, queryDate, window)
}

func (DefaultHelpers) AggregateWindowData(values []ParamValue, queryDate time.Time, window *DateRange) []lag.CohortData {
	return aggregate(values, ModeWindow, queryDate, window)
}

// AggregateLatencyStats returns k-weighted averages of the per-cohort median and
// mean lags. Cohorts without successes only count when no cohort has any.
func (DefaultHelpers) AggregateLatencyStats(cohorts []lag.CohortData) (LatencyStats, bool) {
	var medians, medianW, means, meanW []float64
	for _, c := range cohorts {
		if !lag.ValidLag(c.MedianLagDays) {
			continue
		}
		medians = append(medians, c.MedianLagDays)
		medianW = append(medianW, float64(c.K))
		if lag.ValidLag(c.MeanLagDays) {
			means = append(means, c.MeanLagDays)
			meanW = append(meanW, float64(c.K))
		}
	}
	if len(medians) == 0 {
		return LatencyStats{}, false
	}

	out := LatencyStats{MedianLagDays: weightedMean(medians, medianW)}
	if len(means) > 0 {
		out.MeanLagDays = weightedMean(means, meanW)
	}
	return out, true
}

func weightedMean(x, w []float64) float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	if total <= 0 {
		return stat.Mean(x, nil)
	}
	return stat.Mean(x, w)
}

type dated struct {
	day       time.Time
	retrieved time.Time
	data      lag.CohortData
}

func aggregate(values []ParamValue, mode SliceMode, queryDate time.Time, window *DateRange) []lag.CohortData {
	now := Day(queryDate)
	byDay := make(map[time.Time]dated)

	for vi := range values {
		v := &values[vi]
		if v.Mode != mode {
			continue
		}
		retrieved := v.retrievedAt()

		for i, raw := range v.Dates {
			day, err := ParseDate(raw)
			if err != nil || !window.Contains(day) || day.After(now) {
				continue
			}

			c := lag.CohortData{
				Date:                day.Format("2006-01-02"),
				N:                   intAt(v.NDaily, i),
				K:                   intAt(v.KDaily, i),
				Age:                 now.Sub(day).Hours() / 24,
				MedianLagDays:       lagAt(v.MedianLagDays, i),
				MeanLagDays:         lagAt(v.MeanLagDays, i),
				AnchorMedianLagDays: lagAt(v.AnchorMedianLagDays, i),
				AnchorMeanLagDays:   lagAt(v.AnchorMeanLagDays, i),
			}

			cur, seen := byDay[day]
			if seen && retrieved.Before(cur.retrieved) {
				continue
			}
			byDay[day] = dated{day: day, retrieved: retrieved, data: c}
		}
	}

	if len(byDay) == 0 {
		return nil
	}

	rows := make([]dated, 0, len(byDay))
	for _, d := range byDay {
		rows = append(rows, d)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].day.Before(rows[j].day) })

	out := make([]lag.CohortData, len(rows))
	for i, r := range rows {
		out[i] = r.data
	}
	return out
}

func intAt(xs []int, i int) int {
	if i >= len(xs) || xs[i] < 0 {
		return 0
	}
	return xs[i]
}

func lagAt(xs []float64, i int) float64 {
	if i >= len(xs) || !lag.ValidLag(xs[i]) {
		return 0
	}
	return xs[i]
}
