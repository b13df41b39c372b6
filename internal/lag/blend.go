package lag

import "math"

// CredibilityWeight is the exponential credibility weight 1 - exp(-x/k).
// It is 0 for x <= 0 and tends to 1 as x grows.
func CredibilityWeight(x, k float64) float64 {
	if math.IsNaN(x) || x <= 0 {
		return 0
	}
	if math.IsInf(x, 1) || k <= 0 {
		return 1
	}
	return clamp01(1 - math.Exp(-x/k))
}

// AnchorDelayInput holds the two competing anchor-delay estimates and the
// evidence volume behind the observed one.
type AnchorDelayInput struct {
	Prior        MedianPriorDays
	Observed     float64 // n-weighted per-cohort anchor median lag; <= 0 when absent
	Coverage     float64 // fraction of in-scope cohorts carrying anchor lag data
	Starters     float64
	RateEstimate float64
}

// AnchorDelayEstimate is the credibility-weighted anchor delay.
type AnchorDelayEstimate struct {
	EffectiveDays                MedianPriorDays `json:"effective_days"`
	Weight                       float64         `json:"weight"`
	EffectiveForecastConversions float64         `json:"effective_forecast_conversions"`
}

// EstimateAnchorDelay blends the observed anchor median lag with the prior:
// effective = w·observed + (1-w)·prior, where w = CredibilityWeight(coverage·starters·rate, k).
// Without observed data the prior is returned exactly.
func EstimateAnchorDelay(in AnchorDelayInput, k float64) AnchorDelayEstimate {
	est := AnchorDelayEstimate{EffectiveDays: in.Prior}

	if !ValidLag(in.Observed) || !(in.Coverage > 0) {
		return est
	}

	coverage := clamp01(in.Coverage)
	starters := math.Max(0, in.Starters)
	rate := math.Max(0, in.RateEstimate)
	if math.IsNaN(starters) || math.IsNaN(rate) {
		return est
	}

	conversions := coverage * starters * rate
	w := CredibilityWeight(conversions, k)

	est.EffectiveForecastConversions = conversions
	est.Weight = w
	switch w {
	case 0:
		return est
	case 1:
		est.EffectiveDays = MedianPriorDays(in.Observed)
	default:
		est.EffectiveDays = MedianPriorDays(w*in.Observed + (1-w)*float64(in.Prior))
	}
	return est
}

// BlendInput carries the terms of the evidence/forecast blend.
type BlendInput struct {
	EvidenceMean      float64
	ForecastMean      float64
	ForecastAvailable bool
	Completeness      float64
	NQuery            float64
	NBaseline         float64
}

// BlendResult is the outcome of ComputeBlendedMean. Applied is false when the
// blend fell back to pure evidence.
type BlendResult struct {
	Mean      float64 `json:"mean"`
	WEvidence float64 `json:"w_evidence"`
	NEff      float64 `json:"n_eff"`
	M0        float64 `json:"m0"`
	Applied   bool    `json:"applied"`
	Reason    string  `json:"reason,omitempty"`
}

// ComputeBlendedMean blends observed evidence with the forecast baseline:
//
//	n_eff = completeness·n_query, m0 = λ·n_baseline
//	w = n_eff / (m0 + n_eff), mean = w·evidence + (1-w)·forecast
func ComputeBlendedMean(in BlendInput, lambda float64) BlendResult {
	if !in.ForecastAvailable || !isFinite(in.ForecastMean) {
		return BlendResult{Mean: in.EvidenceMean, WEvidence: 1, Reason: "no forecast mean"}
	}

	completeness := clamp01(FiniteOr(in.Completeness, 0))
	nQuery := math.Max(0, FiniteOr(in.NQuery, 0))
	nEff := completeness * nQuery

	if nEff <= 0 {
		return BlendResult{Mean: in.ForecastMean, Applied: true}
	}

	nBaseline := FiniteOr(in.NBaseline, 0)
	if nBaseline <= 0 {
		return BlendResult{Mean: in.EvidenceMean, WEvidence: 1, NEff: nEff, Reason: "no baseline population"}
	}

	m0 := lambda * nBaseline
	w := nEff / (m0 + nEff)
	return BlendResult{
		Mean:      w*in.EvidenceMean + (1-w)*in.ForecastMean,
		WEvidence: w,
		NEff:      nEff,
		M0:        m0,
		Applied:   true,
	}
}
