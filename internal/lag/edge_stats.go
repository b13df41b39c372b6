package lag

import "math"

// EdgeStatsInput gathers everything ComputeEdgeLatencyStats needs for one edge.
type EdgeStatsInput struct {
	// Cohorts drive completeness and evidence. Ages must already be edge-relative.
	Cohorts []CohortData
	// MaturityCohorts drive the p-infinity maturity filter; defaults to Cohorts.
	MaturityCohorts []CohortData

	MedianLagDays float64
	MeanLagDays   float64
	TotalK        float64

	// FallbackT95Days is used when the fit fails quality checks.
	FallbackT95Days float64
	// AuthoritativeT95Days, when positive, may widen the completeness tail.
	AuthoritativeT95Days float64
}

// ComputeEdgeLatencyStats runs fit, t95, p-infinity and completeness for one edge.
func ComputeEdgeLatencyStats(in EdgeStatsInput, s Settings) EdgeLatencyStats {
	fallback := in.FallbackT95Days
	if !ValidLag(fallback) {
		fallback = s.DefaultT95Days
	}

	fit := FitLagDistribution(in.MedianLagDays, in.MeanLagDays, in.TotalK, s)
	t95 := ComputeT95(fit, fallback)

	pEvidence := EvidenceRate(in.Cohorts)

	maturity := in.MaturityCohorts
	if maturity == nil {
		maturity = in.Cohorts
	}
	pInf, forecastAvailable := EstimatePInfinity(maturity, t95, s.RecencyHalfLifeDays)
	if !forecastAvailable {
		pInf = pEvidence
	}

	cdf := GetCompletenessCdfParams(fit, in.MedianLagDays, in.AuthoritativeT95Days, s.MaxSigma)
	if !ValidLag(in.MedianLagDays) {
		// No median to locate the curve: place its 95th percentile on the horizon.
		cdf.Mu = math.Log(t95) - cdf.Sigma*StandardNormalInverseCDF(T95Percentile)
	}

	var completeness float64
	if cdf.TailConstraintApplied {
		completeness = CalculateCompletenessWithTailConstraint(in.Cohorts, cdf.Mu, cdf.SigmaMoments, cdf.Sigma)
	} else {
		completeness = CalculateCompleteness(in.Cohorts, cdf.Mu, cdf.Sigma)
	}

	return EdgeLatencyStats{
		Fit:               fit,
		T95:               t95,
		PInfinity:         pInf,
		Completeness:      completeness,
		PEvidence:         pEvidence,
		ForecastAvailable: forecastAvailable,
		CompletenessCdf:   cdf,
	}
}

// ShiftAges returns a copy of cohorts with ages reduced by each cohort's own
// anchor median lag when present, otherwise by fallbackDelay, floored at zero.
func ShiftAges(cohorts []CohortData, fallbackDelay MedianPriorDays) []CohortData {
	if cohorts == nil {
		return nil
	}
	out := make([]CohortData, len(cohorts))
	for i, c := range cohorts {
		delay := float64(fallbackDelay)
		if c.HasAnchorLag() {
			delay = c.AnchorMedianLagDays
		}
		c.Age = math.Max(0, c.Age-FiniteOr(delay, 0))
		out[i] = c
	}
	return out
}
