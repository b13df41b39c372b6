package lag

import (
	"fmt"
	"math"
)

// LagDistributionFit is a two-parameter log-normal fit of time-to-convert in days.
type LagDistributionFit struct {
	Mu                   float64 `json:"mu"`
	Sigma                float64 `json:"sigma"`
	EmpiricalQualityOK   bool    `json:"empirical_quality_ok"`
	TotalK               float64 `json:"total_k"`
	QualityFailureReason string  `json:"quality_failure_reason,omitempty"`
}

// FitLagDistribution fits LogNormal(mu, sigma) from an aggregate median and mean lag.
// A missing mean is passed as zero or NaN. The fit never fails: bad inputs produce
// the default sigma with EmpiricalQualityOK=false and a reason.
func FitLagDistribution(medianLag, meanLag, totalK float64, s Settings) LagDistributionFit {
	fit := LagDistributionFit{
		Sigma:  s.DefaultSigma,
		TotalK: totalK,
	}

	// 1. Non-finite median: nothing to anchor mu on.
	if !isFinite(medianLag) {
		fit.QualityFailureReason = "median lag is not finite"
		return fit
	}

	// 2. Sufficiency gate. Mu is still derived so callers can show a rough value.
	if totalK < s.MinFitConverters {
		if medianLag > 0 {
			fit.Mu = math.Log(medianLag)
		}
		fit.QualityFailureReason = fmt.Sprintf("insufficient converters: %.0f < %.0f", totalK, s.MinFitConverters)
		return fit
	}

	// 3. Invalid median.
	if medianLag <= 0 {
		fit.QualityFailureReason = fmt.Sprintf("invalid median lag %.4g", medianLag)
		return fit
	}

	// 4. Location.
	fit.Mu = math.Log(medianLag)

	// 5. Median alone is usable; sigma falls back to the default.
	if !ValidLag(meanLag) {
		fit.EmpiricalQualityOK = true
		fit.QualityFailureReason = "mean lag unavailable, using default sigma"
		return fit
	}

	// 6. Shape from the mean/median ratio: ratio = exp(sigma^2 / 2).
	ratio := meanLag / medianLag
	switch {
	case ratio < 1.0:
		if ratio >= s.MinMeanMedianRatio {
			fit.EmpiricalQualityOK = true
			fit.QualityFailureReason = fmt.Sprintf("mean/median ratio %.3f below 1, using default sigma", ratio)
			return fit
		}
		fit.QualityFailureReason = fmt.Sprintf("mean/median ratio %.3f below minimum %.3f", ratio, s.MinMeanMedianRatio)
		return fit
	case ratio > s.MaxMeanMedianRatio:
		fit.QualityFailureReason = fmt.Sprintf("mean/median ratio %.3f above maximum %.3f", ratio, s.MaxMeanMedianRatio)
		return fit
	}

	sigma := math.Sqrt(2 * math.Log(ratio))
	if !(sigma > 0) {
		// ratio == 1 exactly: a degenerate step CDF is never what the data means.
		fit.EmpiricalQualityOK = true
		fit.QualityFailureReason = "mean equals median, using default sigma"
		return fit
	}

	fit.Sigma = sigma
	fit.EmpiricalQualityOK = true
	return fit
}

// Median returns the fitted median in days, exp(mu).
func (f LagDistributionFit) Median() float64 {
	return math.Exp(f.Mu)
}
