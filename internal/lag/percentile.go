package lag

import "math"

// ComputeT95 returns the 95th percentile of a quality fit, otherwise fallbackDays.
func ComputeT95(fit LagDistributionFit, fallbackDays float64) float64 {
	if !fit.EmpiricalQualityOK {
		return fallbackDays
	}
	t95 := LogNormalInverseCDF(T95Percentile, fit.Mu, fit.Sigma)
	if !isFinite(t95) || t95 <= 0 {
		return fallbackDays
	}
	return t95
}

// ApproximateLogNormalSumFit moment-matches the sum of two independent
// log-normals to a single log-normal (Fenton-Wilkinson). Both inputs must be
// quality fits with a finite, non-negative sigma; otherwise ok is false.
func ApproximateLogNormalSumFit(a, b LagDistributionFit) (LagDistributionFit, bool) {
	if !usableForSum(a) || !usableForSum(b) {
		return LagDistributionFit{}, false
	}

	meanA, varA := logNormalMoments(a.Mu, a.Sigma)
	meanB, varB := logNormalMoments(b.Mu, b.Sigma)

	mean := meanA + meanB
	variance := varA + varB
	if !(mean > 0) || !isFinite(mean) || !isFinite(variance) {
		return LagDistributionFit{}, false
	}

	sigma2 := math.Log(1 + variance/(mean*mean))
	mu := math.Log(mean) - sigma2/2
	sigma := math.Sqrt(sigma2)
	if !isFinite(mu) || !isFinite(sigma) {
		return LagDistributionFit{}, false
	}

	return LagDistributionFit{
		Mu:                 mu,
		Sigma:              sigma,
		EmpiricalQualityOK: true,
		TotalK:             math.Min(a.TotalK, b.TotalK),
	}, true
}

// ApproximateLogNormalSumPercentileDays returns the percentile of the combined fit.
func ApproximateLogNormalSumPercentileDays(a, b LagDistributionFit, percentile float64) (float64, bool) {
	combined, ok := ApproximateLogNormalSumFit(a, b)
	if !ok {
		return 0, false
	}
	days := LogNormalInverseCDF(percentile, combined.Mu, combined.Sigma)
	if !isFinite(days) || days < 0 {
		return 0, false
	}
	return days, true
}

func usableForSum(f LagDistributionFit) bool {
	return f.EmpiricalQualityOK && isFinite(f.Mu) && isFinite(f.Sigma) && f.Sigma >= 0
}

func logNormalMoments(mu, sigma float64) (mean, variance float64) {
	s2 := sigma * sigma
	mean = math.Exp(mu + s2/2)
	variance = (math.Exp(s2) - 1) * math.Exp(2*mu+s2)
	return mean, variance
}
