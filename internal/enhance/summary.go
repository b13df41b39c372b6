package enhance

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Summary condenses a Result for display.
type Summary struct {
	EdgesProcessed     int     `json:"edges_processed"`
	EdgesWithLAG       int     `json:"edges_with_lag"`
	MedianCompleteness float64 `json:"median_completeness"`
	MinCompleteness    float64 `json:"min_completeness"`
	P90PathT95         float64 `json:"p90_path_t95"`
	MaxPathT95         float64 `json:"max_path_t95"`
	MeanEvidenceWeight float64 `json:"mean_evidence_weight"`
	BlendsApplied      int     `json:"blends_applied"`
	LowQualityFits     int     `json:"low_quality_fits"`
	MomentMatchedPaths int     `json:"moment_matched_paths"`
}

// Summarize computes run-level statistics over the emitted records.
func Summarize(res Result) Summary {
	sum := Summary{
		EdgesProcessed: res.EdgesProcessed,
		EdgesWithLAG:   res.EdgesWithLAG,
	}
	if len(res.EdgeValues) == 0 {
		return sum
	}

	var completeness, pathT95, weights stats.Float64Data
	for _, v := range res.EdgeValues {
		completeness = append(completeness, v.Latency.Completeness)
		pathT95 = append(pathT95, v.Latency.PathT95)
		if v.Debug == nil {
			continue
		}
		if v.Debug.Blend.Applied {
			sum.BlendsApplied++
			weights = append(weights, v.Debug.Blend.WEvidence)
		}
		if !v.Debug.Stats.Fit.EmpiricalQualityOK {
			sum.LowQualityFits++
		}
		if v.Debug.PathT95Source == PathT95MomentMatched {
			sum.MomentMatchedPaths++
		}
	}

	// 1. Completeness spread
	if m, err := completeness.Median(); err == nil {
		sum.MedianCompleteness = round3(m)
	}
	if m, err := completeness.Min(); err == nil {
		sum.MinCompleteness = round3(m)
	}

	// 2. Horizons
	if p, err := pathT95.Percentile(90); err == nil {
		sum.P90PathT95 = round3(p)
	}
	if m, err := pathT95.Max(); err == nil {
		sum.MaxPathT95 = round3(m)
	}

	// 3. Blend weights
	if len(weights) > 0 {
		if m, err := weights.Mean(); err == nil {
			sum.MeanEvidenceWeight = round3(m)
		}
	}
	return sum
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
