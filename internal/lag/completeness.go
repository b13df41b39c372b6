package lag

import "math"

// CompletenessCdfParams is the (mu, sigma) actually used to evaluate completeness.
type CompletenessCdfParams struct {
	Mu                    float64 `json:"mu"`
	Sigma                 float64 `json:"sigma"`
	SigmaMoments          float64 `json:"sigma_moments"`
	SigmaMinFromT95       float64 `json:"sigma_min_from_t95,omitempty"`
	TailConstraintApplied bool    `json:"tail_constraint_applied"`
}

// CalculateCompleteness returns Σ n·F(age) / Σ n over cohorts with n > 0.
func CalculateCompleteness(cohorts []CohortData, mu, sigma float64) float64 {
	num := 0.0
	den := 0.0
	for _, c := range cohorts {
		if c.N <= 0 {
			continue
		}
		n := float64(c.N)
		num += n * LogNormalCDF(c.Age, mu, sigma)
		den += n
	}
	if den <= 0 {
		return 0
	}
	return clamp01(num / den)
}

// GetCompletenessCdfParams widens sigma when an authoritative t95 implies a
// fatter tail than the moment fit. It never narrows.
func GetCompletenessCdfParams(fit LagDistributionFit, medianLagDays, authoritativeT95Days, maxSigma float64) CompletenessCdfParams {
	params := CompletenessCdfParams{
		Mu:           fit.Mu,
		Sigma:        fit.Sigma,
		SigmaMoments: fit.Sigma,
	}
	if ValidLag(medianLagDays) {
		params.Mu = math.Log(medianLagDays)
	}

	if !ValidLag(medianLagDays) || !ValidLag(authoritativeT95Days) || authoritativeT95Days <= medianLagDays {
		return params
	}

	z := StandardNormalInverseCDF(T95Percentile)
	sigmaMin := math.Log(authoritativeT95Days/medianLagDays) / z
	params.SigmaMinFromT95 = sigmaMin

	if sigmaMin > params.SigmaMoments {
		widened := sigmaMin
		if maxSigma > 0 && widened > maxSigma {
			widened = maxSigma
		}
		if widened > params.SigmaMoments {
			params.Sigma = widened
			params.TailConstraintApplied = true
		}
	}
	return params
}

// CalculateCompletenessWithTailConstraint evaluates each cohort with the lower of
// the moment CDF and the constrained CDF, so the result never exceeds the
// unconstrained completeness cohort by cohort.
func CalculateCompletenessWithTailConstraint(cohorts []CohortData, mu, sigmaMoments, sigmaConstrained float64) float64 {
	num := 0.0
	den := 0.0
	for _, c := range cohorts {
		if c.N <= 0 {
			continue
		}
		n := float64(c.N)
		f := math.Min(LogNormalCDF(c.Age, mu, sigmaMoments), LogNormalCDF(c.Age, mu, sigmaConstrained))
		num += n * f
		den += n
	}
	if den <= 0 {
		return 0
	}
	return clamp01(num / den)
}
