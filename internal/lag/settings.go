package lag

import "fmt"

// CompletenessSemantics selects how completeness is presented to the end user.
type CompletenessSemantics string

const (
	// SemanticsConditional reports completeness among users who already reached
	// the edge's source node.
	SemanticsConditional CompletenessSemantics = "conditional"
	// SemanticsUnconditional gates the conditional value by the probability of
	// reaching the source node from the start nodes. Reach is 1 at each start
	// node, so with an explicit anchor, edges not downstream of it report 0.
	SemanticsUnconditional CompletenessSemantics = "unconditional"
)

// Settings carries the tuning constants of the engine.
type Settings struct {
	MinFitConverters    float64               `json:"min_fit_converters"`
	MinMeanMedianRatio  float64               `json:"min_mean_median_ratio"`
	MaxMeanMedianRatio  float64               `json:"max_mean_median_ratio"`
	DefaultSigma        float64               `json:"default_sigma"`
	MaxSigma            float64               `json:"max_sigma"`
	DefaultT95Days      float64               `json:"default_t95_days"`
	RecencyHalfLifeDays float64               `json:"recency_half_life_days"`
	ForecastBlendLambda float64               `json:"forecast_blend_lambda"`
	AnchorDelayBlendK   float64               `json:"anchor_delay_blend_k"`
	ActiveEdgeEpsilon   float64               `json:"active_edge_epsilon"`
	Semantics           CompletenessSemantics `json:"completeness_semantics"`
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		MinFitConverters:    30,
		MinMeanMedianRatio:  0.9,
		MaxMeanMedianRatio:  3.0,
		DefaultSigma:        0.5,
		MaxSigma:            10,
		DefaultT95Days:      30,
		RecencyHalfLifeDays: 30,
		ForecastBlendLambda: 0.15,
		AnchorDelayBlendK:   50,
		ActiveEdgeEpsilon:   1e-9,
		Semantics:           SemanticsConditional,
	}
}

// Validate rejects settings that would make the fitter or the blends undefined.
func (s Settings) Validate() error {
	switch {
	case s.DefaultSigma <= 0:
		return fmt.Errorf("default sigma must be positive, got %v", s.DefaultSigma)
	case s.MaxSigma < s.DefaultSigma:
		return fmt.Errorf("max sigma %v is below default sigma %v", s.MaxSigma, s.DefaultSigma)
	case s.MinMeanMedianRatio <= 0 || s.MinMeanMedianRatio > 1:
		return fmt.Errorf("min mean/median ratio must be in (0, 1], got %v", s.MinMeanMedianRatio)
	case s.MaxMeanMedianRatio < 1:
		return fmt.Errorf("max mean/median ratio must be >= 1, got %v", s.MaxMeanMedianRatio)
	case s.DefaultT95Days <= 0:
		return fmt.Errorf("default t95 must be positive, got %v", s.DefaultT95Days)
	case s.RecencyHalfLifeDays <= 0:
		return fmt.Errorf("recency half-life must be positive, got %v", s.RecencyHalfLifeDays)
	case s.ForecastBlendLambda < 0:
		return fmt.Errorf("forecast blend lambda must be non-negative, got %v", s.ForecastBlendLambda)
	case s.AnchorDelayBlendK <= 0:
		return fmt.Errorf("anchor delay blend K must be positive, got %v", s.AnchorDelayBlendK)
	case s.Semantics != SemanticsConditional && s.Semantics != SemanticsUnconditional:
		return fmt.Errorf("unknown completeness semantics %q", s.Semantics)
	}
	return nil
}
