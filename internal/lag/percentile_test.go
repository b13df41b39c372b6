package lag

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeT95(t *testing.T) {
	good := LagDistributionFit{Mu: math.Log(6), Sigma: 0.4, EmpiricalQualityOK: true}
	want := 6 * math.Exp(0.4*StandardNormalInverseCDF(0.95))
	assert.InDelta(t, want, ComputeT95(good, 30), 1e-9)

	bad := good
	bad.EmpiricalQualityOK = false
	assert.Equal(t, 30.0, ComputeT95(bad, 30))
}

func TestApproximateLogNormalSumFit_DegenerateSum(t *testing.T) {
	a := LagDistributionFit{Mu: math.Log(5), Sigma: 0, EmpiricalQualityOK: true, TotalK: 80}
	b := LagDistributionFit{Mu: math.Log(7), Sigma: 0, EmpiricalQualityOK: true, TotalK: 40}

	sum, ok := ApproximateLogNormalSumFit(a, b)
	require.True(t, ok)
	assert.InDelta(t, 0.0, sum.Sigma, 1e-12)
	assert.InDelta(t, 12.0, sum.Median(), 1e-9)
	assert.Equal(t, 40.0, sum.TotalK)
}

func TestApproximateLogNormalSumFit_PreservesMoments(t *testing.T) {
	a := LagDistributionFit{Mu: math.Log(12), Sigma: 0.4, EmpiricalQualityOK: true}
	b := LagDistributionFit{Mu: math.Log(6), Sigma: 0.3, EmpiricalQualityOK: true}

	sum, ok := ApproximateLogNormalSumFit(a, b)
	require.True(t, ok)

	meanA, varA := logNormalMoments(a.Mu, a.Sigma)
	meanB, varB := logNormalMoments(b.Mu, b.Sigma)
	mean, variance := logNormalMoments(sum.Mu, sum.Sigma)

	assert.InDelta(t, meanA+meanB, mean, 1e-9)
	assert.InDelta(t, varA+varB, variance, 1e-9)

	// The combined horizon is shorter than adding the two tails.
	p95, ok := ApproximateLogNormalSumPercentileDays(a, b, T95Percentile)
	require.True(t, ok)
	naive := ComputeT95(a, 0) + ComputeT95(b, 0)
	assert.Less(t, p95, naive)
	assert.Greater(t, p95, ComputeT95(a, 0))
}

func TestApproximateLogNormalSumFit_RequiresQuality(t *testing.T) {
	good := LagDistributionFit{Mu: 1, Sigma: 0.5, EmpiricalQualityOK: true}

	tests := []struct {
		name string
		b    LagDistributionFit
	}{
		{"low quality", LagDistributionFit{Mu: 1, Sigma: 0.5}},
		{"negative sigma", LagDistributionFit{Mu: 1, Sigma: -0.1, EmpiricalQualityOK: true}},
		{"nan mu", LagDistributionFit{Mu: math.NaN(), Sigma: 0.5, EmpiricalQualityOK: true}},
		{"infinite sigma", LagDistributionFit{Mu: 1, Sigma: math.Inf(1), EmpiricalQualityOK: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := ApproximateLogNormalSumFit(good, tt.b); ok {
				t.Error("expected combination to be refused")
			}
			if _, ok := ApproximateLogNormalSumPercentileDays(tt.b, good, T95Percentile); ok {
				t.Error("expected percentile to be refused")
			}
		})
	}
}
