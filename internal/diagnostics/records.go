package diagnostics

import "funnel-mcp/internal/lag"

// EdgeRecord captures the inputs and intermediate quantities behind one edge's result.
type EdgeRecord struct {
	EdgeID string `json:"edge_id"`
	From   string `json:"from"`
	To     string `json:"to"`

	// Skipped edges produced no output this cycle; SkipReason says why.
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`

	LatencyEnabled       bool    `json:"latency_enabled"`
	EffectiveHorizonDays float64 `json:"effective_horizon_days"`
	CohortsScoped        int     `json:"cohorts_scoped"`
	CohortsAll           int     `json:"cohorts_all"`

	// Median-scale prior at the source node and the blend that refined it.
	PriorDays          lag.MedianPriorDays     `json:"prior_days"`
	ObservedAnchorDays float64                 `json:"observed_anchor_days,omitempty"`
	AnchorCoverage     float64                 `json:"anchor_coverage"`
	AnchorDelay        lag.AnchorDelayEstimate `json:"anchor_delay"`
	BaselineMedianLag  float64                 `json:"baseline_median_lag_days,omitempty"`

	Stats         lag.EdgeLatencyStats `json:"stats"`
	PathT95       float64              `json:"path_t95"`
	PathT95Source string               `json:"path_t95_source,omitempty"`

	ConditionalCompleteness float64 `json:"conditional_completeness"`
	ReachProbability        float64 `json:"reach_probability"`
	DisplayedCompleteness   float64 `json:"displayed_completeness"`

	EvidenceMean    float64         `json:"evidence_mean"`
	ForecastMean    float64         `json:"forecast_mean,omitempty"`
	ForecastSource  string          `json:"forecast_source,omitempty"`
	NQuery          float64         `json:"n_query"`
	NQuerySource    string          `json:"n_query_source,omitempty"`
	NBaseline       float64         `json:"n_baseline"`
	NBaselineSource string          `json:"n_baseline_source,omitempty"`
	Blend           lag.BlendResult `json:"blend"`
}

// RunRecord summarises one evaluation.
type RunRecord struct {
	RunID          string                    `json:"run_id"`
	QueryDate      string                    `json:"query_date"`
	Semantics      lag.CompletenessSemantics `json:"semantics"`
	ActiveEdges    int                       `json:"active_edges"`
	EdgesProcessed int                       `json:"edges_processed"`
	EdgesWithLAG   int                       `json:"edges_with_lag"`
	EdgesSkipped   int                       `json:"edges_skipped"`
	Unreachable    []string                  `json:"unreachable,omitempty"`
}
