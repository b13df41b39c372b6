package cohort

import (
	"fmt"
	"strings"
	"time"
)

// SliceMode distinguishes how a parameter row was retrieved.
type SliceMode string

const (
	// ModeCohort rows track a fixed anchor-entry population over time.
	ModeCohort SliceMode = "cohort"
	// ModeWindow rows measure activity within a calendar range.
	ModeWindow SliceMode = "window"
)

// ParseSliceMode classifies a legacy slice descriptor such as
// "cohort(2025-01-01:2025-01-31).visited(x)" or "window(-30d:)".
func ParseSliceMode(dsl string) (SliceMode, error) {
	s := strings.ToLower(dsl)
	hasCohort := strings.Contains(s, "cohort(")
	hasWindow := strings.Contains(s, "window(")

	switch {
	case hasCohort && hasWindow:
		return "", fmt.Errorf("slice descriptor %q is both cohort and window", dsl)
	case hasCohort:
		return ModeCohort, nil
	case hasWindow:
		return ModeWindow, nil
	}
	return "", fmt.Errorf("slice descriptor %q has no cohort or window clause", dsl)
}

// Valid reports whether m is a known mode.
func (m SliceMode) Valid() bool {
	return m == ModeCohort || m == ModeWindow
}

// ParamValue is one retrieved slice of per-day data for an edge. Daily arrays
// are parallel to Dates; lag entries <= 0 or missing mean "absent".
type ParamValue struct {
	Mode     SliceMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	SliceDSL string    `json:"slice_dsl,omitempty" yaml:"slice_dsl,omitempty"`

	Dates               []string  `json:"dates,omitempty" yaml:"dates,omitempty"`
	NDaily              []int     `json:"n_daily,omitempty" yaml:"n_daily,omitempty"`
	KDaily              []int     `json:"k_daily,omitempty" yaml:"k_daily,omitempty"`
	MedianLagDays       []float64 `json:"median_lag_days,omitempty" yaml:"median_lag_days,omitempty"`
	MeanLagDays         []float64 `json:"mean_lag_days,omitempty" yaml:"mean_lag_days,omitempty"`
	AnchorMedianLagDays []float64 `json:"anchor_median_lag_days,omitempty" yaml:"anchor_median_lag_days,omitempty"`
	AnchorMeanLagDays   []float64 `json:"anchor_mean_lag_days,omitempty" yaml:"anchor_mean_lag_days,omitempty"`

	// Scalar summary of the slice.
	N        float64  `json:"n,omitempty" yaml:"n,omitempty"`
	K        float64  `json:"k,omitempty" yaml:"k,omitempty"`
	Mean     float64  `json:"mean,omitempty" yaml:"mean,omitempty"`
	Forecast *float64 `json:"forecast,omitempty" yaml:"forecast,omitempty"`

	RetrievedAt string `json:"retrieved_at,omitempty" yaml:"retrieved_at,omitempty"`
}

// Classify fills Mode from SliceDSL when it is not set explicitly.
func (v *ParamValue) Classify() error {
	if v.Mode != "" {
		if !v.Mode.Valid() {
			return fmt.Errorf("unknown slice mode %q", v.Mode)
		}
		return nil
	}
	mode, err := ParseSliceMode(v.SliceDSL)
	if err != nil {
		return err
	}
	v.Mode = mode
	return nil
}

// Population returns the scalar N, or the sum of the daily populations.
func (v *ParamValue) Population() float64 {
	if v.N > 0 {
		return v.N
	}
	total := 0
	for _, n := range v.NDaily {
		total += n
	}
	return float64(total)
}

func (v *ParamValue) retrievedAt() time.Time {
	ts, err := time.Parse(time.RFC3339, v.RetrievedAt)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// BaselinePopulation returns the population of the most recently retrieved
// window-mode slice that carries a scalar forecast. Later rows win ties.
func BaselinePopulation(values []ParamValue) (float64, bool) {
	var best *ParamValue
	for i := range values {
		v := &values[i]
		if v.Mode != ModeWindow || v.Forecast == nil {
			continue
		}
		if best == nil || !v.retrievedAt().Before(best.retrievedAt()) {
			best = v
		}
	}
	if best == nil {
		return 0, false
	}
	n := best.Population()
	return n, n > 0
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ParseDateRange parses an inclusive range. Either bound may be empty.
func ParseDateRange(from, to string) (*DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	r := &DateRange{}
	if from != "" {
		d, err := ParseDate(from)
		if err != nil {
			return nil, fmt.Errorf("range start: %w", err)
		}
		r.From = d
	}
	if to != "" {
		d, err := ParseDate(to)
		if err != nil {
			return nil, fmt.Errorf("range end: %w", err)
		}
		r.To = d
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return nil, fmt.Errorf("range end %s before start %s", to, from)
	}
	return r, nil
}

// Contains reports whether day falls inside the range. A nil range contains everything.
func (r *DateRange) Contains(day time.Time) bool {
	if r == nil {
		return true
	}
	if !r.From.IsZero() && day.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && day.After(r.To) {
		return false
	}
	return true
}

var dateLayouts = []string{"2006-01-02", "2-Jan-06", time.RFC3339}

// ParseDate accepts ISO dates, "2-Jan-06" style dates and RFC3339 timestamps,
// truncated to a UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return Day(d), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Lookup maps edge ids to their retrieved parameter rows.
type Lookup map[string][]ParamValue
