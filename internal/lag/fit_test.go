package lag

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitLagDistribution_Scenario(t *testing.T) {
	fit := FitLagDistribution(6.5, 7.8, 50, DefaultSettings())

	require.True(t, fit.EmpiricalQualityOK, fit.QualityFailureReason)
	assert.InDelta(t, 1.8718, fit.Mu, 1e-4)
	assert.InDelta(t, math.Log(6.5), fit.Mu, 1e-12)
	assert.InDelta(t, math.Sqrt(2*math.Log(7.8/6.5)), fit.Sigma, 1e-12)
	assert.Empty(t, fit.QualityFailureReason)
	assert.InDelta(t, 6.5, fit.Median(), 1e-9)
}

func TestFitLagDistribution_Gates(t *testing.T) {
	s := DefaultSettings()

	tests := []struct {
		name       string
		median     float64
		mean       float64
		totalK     float64
		wantOK     bool
		wantMu     float64
		wantSigma  float64
		wantReason string
	}{
		{"non-finite median", math.NaN(), 7, 100, false, 0, s.DefaultSigma, "not finite"},
		{"infinite median", math.Inf(1), 7, 100, false, 0, s.DefaultSigma, "not finite"},
		{"insufficient converters keeps mu", 5, 6, 10, false, math.Log(5), s.DefaultSigma, "insufficient converters"},
		{"insufficient converters, bad median", -1, 6, 10, false, 0, s.DefaultSigma, "insufficient converters"},
		{"zero median", 0, 6, 100, false, 0, s.DefaultSigma, "invalid median"},
		{"missing mean", 5, 0, 100, true, math.Log(5), s.DefaultSigma, "mean lag unavailable"},
		{"nan mean", 5, math.NaN(), 100, true, math.Log(5), s.DefaultSigma, "mean lag unavailable"},
		{"ratio slightly below one", 5, 4.8, 100, true, math.Log(5), s.DefaultSigma, "below 1"},
		{"ratio far below one", 5, 2, 100, false, math.Log(5), s.DefaultSigma, "below minimum"},
		{"ratio too fat", 2, 10, 100, false, math.Log(2), s.DefaultSigma, "above maximum"},
		{"ratio exactly one", 5, 5, 100, true, math.Log(5), s.DefaultSigma, "mean equals median"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fit := FitLagDistribution(tt.median, tt.mean, tt.totalK, s)
			if fit.EmpiricalQualityOK != tt.wantOK {
				t.Errorf("quality ok = %v, want %v (%s)", fit.EmpiricalQualityOK, tt.wantOK, fit.QualityFailureReason)
			}
			assert.InDelta(t, tt.wantMu, fit.Mu, 1e-12)
			assert.InDelta(t, tt.wantSigma, fit.Sigma, 1e-12)
			if !strings.Contains(fit.QualityFailureReason, tt.wantReason) {
				t.Errorf("reason %q does not mention %q", fit.QualityFailureReason, tt.wantReason)
			}
			if !(fit.Sigma > 0) {
				t.Errorf("sigma must stay positive, got %v", fit.Sigma)
			}
		})
	}
}

func TestFitLagDistribution_ValidRegionAlwaysOK(t *testing.T) {
	s := DefaultSettings()

	for _, median := range []float64{0.2, 1, 3.5, 12, 90} {
		for ratio := 1.0; ratio < s.MaxMeanMedianRatio; ratio += 0.125 {
			for _, k := range []float64{s.MinFitConverters, 100, 1e5} {
				fit := FitLagDistribution(median, median*ratio, k, s)
				if !fit.EmpiricalQualityOK || !(fit.Sigma > 0) {
					t.Fatalf("median=%v ratio=%v k=%v: ok=%v sigma=%v reason=%q",
						median, ratio, k, fit.EmpiricalQualityOK, fit.Sigma, fit.QualityFailureReason)
				}
			}
		}
	}
}

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	bad := DefaultSettings()
	bad.DefaultSigma = 0
	assert.Error(t, bad.Validate())

	bad = DefaultSettings()
	bad.Semantics = "sometimes"
	assert.Error(t, bad.Validate())

	bad = DefaultSettings()
	bad.MaxSigma = 0.1
	assert.Error(t, bad.Validate())
}
