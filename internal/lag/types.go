package lag

// TailPercentileDays is a 95th-percentile-scale elapsed time. It sizes fetch
// windows and horizons and must never be used as a typical delay.
type TailPercentileDays float64

// MedianPriorDays is a median-scale "typical time to reach" estimate used to
// convert anchor-relative cohort ages into edge-relative ages.
type MedianPriorDays float64

// CohortData is one per-date observation unit for a single edge.
// Lag fields are optional; zero means absent.
type CohortData struct {
	Date                string  `json:"date"`
	N                   int     `json:"n"`
	K                   int     `json:"k"`
	Age                 float64 `json:"age"`
	MedianLagDays       float64 `json:"median_lag_days,omitempty"`
	MeanLagDays         float64 `json:"mean_lag_days,omitempty"`
	AnchorMedianLagDays float64 `json:"anchor_median_lag_days,omitempty"`
	AnchorMeanLagDays   float64 `json:"anchor_mean_lag_days,omitempty"`
}

// HasAnchorLag reports whether the cohort carries a usable anchor median lag.
func (c CohortData) HasAnchorLag() bool {
	return ValidLag(c.AnchorMedianLagDays)
}

// ValidLag reports whether v is a present, finite, positive lag.
func ValidLag(v float64) bool {
	return isFinite(v) && v > 0
}

// EdgeLatencyStats is the per-edge output of the fit/percentile/completeness machinery.
type EdgeLatencyStats struct {
	Fit               LagDistributionFit    `json:"fit"`
	T95               float64               `json:"t95"`
	PInfinity         float64               `json:"p_infinity"`
	Completeness      float64               `json:"completeness"`
	PEvidence         float64               `json:"p_evidence"`
	ForecastAvailable bool                  `json:"forecast_available"`
	CompletenessCdf   CompletenessCdfParams `json:"completeness_cdf"`
}
