package lag

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyCohorts(days int, n, k int) []CohortData {
	out := make([]CohortData, 0, days)
	for age := 1; age <= days; age++ {
		out = append(out, CohortData{N: n, K: k, Age: float64(age)})
	}
	return out
}

func TestCalculateCompleteness(t *testing.T) {
	mu, sigma := math.Log(6), 0.5

	cohorts := []CohortData{
		{N: 100, Age: 6},
		{N: 300, Age: 60},
		{N: 0, Age: 1},
	}
	want := (100*LogNormalCDF(6, mu, sigma) + 300*LogNormalCDF(60, mu, sigma)) / 400
	assert.InDelta(t, want, CalculateCompleteness(cohorts, mu, sigma), 1e-12)

	assert.Equal(t, 0.0, CalculateCompleteness(nil, mu, sigma))
	assert.Equal(t, 0.0, CalculateCompleteness([]CohortData{{N: 0, Age: 50}}, mu, sigma))
}

func TestCalculateCompleteness_Bounded(t *testing.T) {
	sets := [][]CohortData{
		dailyCohorts(30, 50, 5),
		{{N: 1, Age: 0}},
		{{N: 1e6, Age: 1e4}},
		{{N: 5, Age: 3}, {N: 7, Age: 0}, {N: 11, Age: 400}},
	}
	for _, cohorts := range sets {
		for _, mu := range []float64{-2, 0, math.Log(6), 5} {
			for _, sigma := range []float64{0.01, 0.5, 2, 10} {
				c := CalculateCompleteness(cohorts, mu, sigma)
				if c < 0 || c > 1 {
					t.Fatalf("completeness %v out of [0,1] for mu=%v sigma=%v", c, mu, sigma)
				}
			}
		}
	}
}

func TestGetCompletenessCdfParams(t *testing.T) {
	s := DefaultSettings()
	fit := FitLagDistribution(6, 6.3, 100, s)
	z := StandardNormalInverseCDF(T95Percentile)

	t.Run("no authoritative t95", func(t *testing.T) {
		p := GetCompletenessCdfParams(fit, 6, 0, s.MaxSigma)
		assert.False(t, p.TailConstraintApplied)
		assert.Equal(t, fit.Sigma, p.Sigma)
		assert.InDelta(t, math.Log(6), p.Mu, 1e-12)
	})

	t.Run("authoritative t95 widens", func(t *testing.T) {
		p := GetCompletenessCdfParams(fit, 6, 40, s.MaxSigma)
		require.True(t, p.TailConstraintApplied)
		assert.InDelta(t, math.Log(40.0/6)/z, p.Sigma, 1e-12)
		assert.Equal(t, p.Sigma, p.SigmaMinFromT95)
		assert.Equal(t, fit.Sigma, p.SigmaMoments)
	})

	t.Run("never narrows", func(t *testing.T) {
		wide := LagDistributionFit{Mu: math.Log(6), Sigma: 1.5, EmpiricalQualityOK: true}
		p := GetCompletenessCdfParams(wide, 6, 8, s.MaxSigma)
		assert.False(t, p.TailConstraintApplied)
		assert.Equal(t, 1.5, p.Sigma)
		assert.Greater(t, p.SigmaMinFromT95, 0.0)
	})

	t.Run("t95 below median is ignored", func(t *testing.T) {
		p := GetCompletenessCdfParams(fit, 6, 3, s.MaxSigma)
		assert.False(t, p.TailConstraintApplied)
		assert.Equal(t, 0.0, p.SigmaMinFromT95)
	})

	t.Run("capped at max sigma", func(t *testing.T) {
		p := GetCompletenessCdfParams(fit, 0.001, 1e9, 2)
		require.True(t, p.TailConstraintApplied)
		assert.Equal(t, 2.0, p.Sigma)
	})
}

func TestTailConstraint_NeverIncreasesCompleteness(t *testing.T) {
	mu := math.Log(6)
	sigmaMoments := 0.3

	for _, sigmaConstrained := range []float64{0.1, 0.3, 0.8, 2.5} {
		for age := 0.0; age <= 90; age += 1.5 {
			single := []CohortData{{N: 10, Age: age}}
			constrained := CalculateCompletenessWithTailConstraint(single, mu, sigmaMoments, sigmaConstrained)
			moments := CalculateCompleteness(single, mu, sigmaMoments)
			if constrained > moments {
				t.Fatalf("age=%v sigma=%v: constrained %v > moments %v", age, sigmaConstrained, constrained, moments)
			}
		}
	}

	all := dailyCohorts(45, 20, 2)
	assert.LessOrEqual(t,
		CalculateCompletenessWithTailConstraint(all, mu, sigmaMoments, 1.2),
		CalculateCompleteness(all, mu, sigmaMoments))
}

func TestEstimatePInfinity(t *testing.T) {
	cohorts := []CohortData{
		{N: 100, K: 50, Age: 40},
		{N: 200, K: 60, Age: 60},
		{N: 500, K: 5, Age: 5}, // immature, ignored
	}

	w1, w2 := math.Exp(-40.0/30), math.Exp(-60.0/30)
	want := (w1*50 + w2*60) / (w1*100 + w2*200)

	got, ok := EstimatePInfinity(cohorts, 30, 30)
	require.True(t, ok)
	assert.InDelta(t, want, got, 1e-12)

	_, ok = EstimatePInfinity(cohorts, 100, 30)
	assert.False(t, ok)

	_, ok = EstimatePInfinity(nil, 10, 30)
	assert.False(t, ok)
}

func TestEvidenceRate(t *testing.T) {
	cohorts := []CohortData{{N: 10, K: 2}, {N: 30, K: 6}}
	assert.InDelta(t, 0.2, EvidenceRate(cohorts), 1e-12)
	assert.Equal(t, 40, TotalPopulation(cohorts))
	assert.Equal(t, 8, TotalSuccesses(cohorts))
	assert.Equal(t, 0.0, EvidenceRate(nil))
}
