package cohort

import (
	"testing"
	"time"

	"funnel-mcp/internal/lag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestParseSliceMode(t *testing.T) {
	tests := []struct {
		dsl     string
		want    SliceMode
		wantErr bool
	}{
		{"cohort(2025-01-01:2025-01-31).visited(x)", ModeCohort, false},
		{"from(a).to(b).window(-30d:)", ModeWindow, false},
		{"COHORT(1-Jan-25:)", ModeCohort, false},
		{"from(a).to(b)", "", true},
		{"cohort(x).window(y)", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.dsl, func(t *testing.T) {
			got, err := ParseSliceMode(tt.dsl)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSliceMode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSliceMode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParamValue_Classify(t *testing.T) {
	v := ParamValue{SliceDSL: "window(-7d:)"}
	require.NoError(t, v.Classify())
	assert.Equal(t, ModeWindow, v.Mode)

	explicit := ParamValue{Mode: ModeCohort, SliceDSL: "window(-7d:)"}
	require.NoError(t, explicit.Classify())
	assert.Equal(t, ModeCohort, explicit.Mode, "explicit mode is never reclassified")

	bad := ParamValue{Mode: "weekly"}
	assert.Error(t, bad.Classify())
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2025-03-09", "9-Mar-25", "2025-03-09T17:45:00Z"} {
		got, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), "%s parsed as %s", s, got)
	}
	_, err := ParseDate("March 9")
	assert.Error(t, err)
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2025-01-10", "2025-01-20")
	require.NoError(t, err)
	assert.True(t, r.Contains(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, r.Contains(time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC)))

	r, err = ParseDateRange("", "")
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.True(t, r.Contains(time.Now()))

	_, err = ParseDateRange("2025-02-01", "2025-01-01")
	assert.Error(t, err)
}

func TestAggregateCohortData(t *testing.T) {
	query := time.Date(2025, 1, 31, 15, 0, 0, 0, time.UTC)
	values := []ParamValue{
		{
			Mode:                ModeCohort,
			Dates:               []string{"2025-01-01", "2025-01-15", "2025-01-30"},
			NDaily:              []int{100, 80, 50},
			KDaily:              []int{40, 20, 1},
			MedianLagDays:       []float64{6, 5, 0},
			AnchorMedianLagDays: []float64{12, 11},
			RetrievedAt:         "2025-01-31T08:00:00Z",
		},
		{
			Mode:        ModeCohort,
			Dates:       []string{"2025-01-15"},
			NDaily:      []int{90},
			KDaily:      []int{30},
			RetrievedAt: "2025-01-31T09:00:00Z",
		},
		{
			Mode:   ModeWindow,
			Dates:  []string{"2025-01-15"},
			NDaily: []int{999},
			KDaily: []int{999},
		},
	}

	h := DefaultHelpers{}
	all := h.AggregateCohortData(values, query, nil)
	require.Len(t, all, 3)

	assert.Equal(t, "2025-01-01", all[0].Date)
	assert.Equal(t, 30.0, all[0].Age)
	assert.Equal(t, 12.0, all[0].AnchorMedianLagDays)

	assert.Equal(t, 90, all[1].N, "latest retrieval wins")
	assert.Equal(t, 30, all[1].K)
	assert.Equal(t, 0.0, all[1].MedianLagDays)

	assert.Equal(t, 1.0, all[2].Age)
	assert.Equal(t, 0.0, all[2].MedianLagDays, "non-positive lag is absent")
	assert.Equal(t, 0.0, all[2].AnchorMedianLagDays, "short lag array is absent")

	window, err := ParseDateRange("2025-01-10", "2025-01-31")
	require.NoError(t, err)
	scoped := h.AggregateCohortData(values, query, window)
	require.Len(t, scoped, 2)
	assert.Equal(t, "2025-01-15", scoped[0].Date)

	win := h.AggregateWindowData(values, query, nil)
	require.Len(t, win, 1)
	assert.Equal(t, 999, win[0].N)

	assert.Nil(t, h.AggregateCohortData(nil, query, nil))
}

func TestAggregateCohortData_SkipsFutureDates(t *testing.T) {
	query := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	values := []ParamValue{{Mode: ModeCohort, Dates: []string{"2025-01-09", "2025-01-11", "garbage"}, NDaily: []int{5, 5, 5}}}

	got := DefaultHelpers{}.AggregateCohortData(values, query, nil)
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Age)
}

func TestAggregateLatencyStats(t *testing.T) {
	h := DefaultHelpers{}

	stats, ok := h.AggregateLatencyStats(nil)
	assert.False(t, ok)
	assert.Zero(t, stats)

	cohorts := []lag.CohortData{
		{K: 10, MedianLagDays: 4, MeanLagDays: 5},
		{K: 30, MedianLagDays: 8},
		{K: 0, MedianLagDays: 100, MeanLagDays: 100},
	}

	stats, ok = h.AggregateLatencyStats(cohorts)
	require.True(t, ok)
	assert.InDelta(t, (10*4+30*8)/40.0, stats.MedianLagDays, 1e-12)
	assert.InDelta(t, 5.0, stats.MeanLagDays, 1e-12)

	// No successes anywhere: plain average.
	stats, ok = h.AggregateLatencyStats([]lag.CohortData{{MedianLagDays: 2}, {MedianLagDays: 4}})
	require.True(t, ok)
	assert.InDelta(t, 3.0, stats.MedianLagDays, 1e-12)
	assert.Equal(t, 0.0, stats.MeanLagDays)
}

func TestBaselinePopulation(t *testing.T) {
	values := []ParamValue{
		{Mode: ModeCohort, N: 5000, Forecast: ptr(0.4)},
		{Mode: ModeWindow, N: 800, Forecast: ptr(0.3), RetrievedAt: "2025-01-02T00:00:00Z"},
		{Mode: ModeWindow, NDaily: []int{100, 200}, Forecast: ptr(0.35), RetrievedAt: "2025-01-03T00:00:00Z"},
		{Mode: ModeWindow, N: 9999, RetrievedAt: "2025-01-09T00:00:00Z"},
	}

	n, ok := BaselinePopulation(values)
	require.True(t, ok)
	assert.Equal(t, 300.0, n)

	_, ok = BaselinePopulation(values[:1])
	assert.False(t, ok)
}
