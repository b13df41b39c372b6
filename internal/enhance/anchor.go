package enhance

import (
	"funnel-mcp/internal/lag"

	"gonum.org/v1/gonum/stat"
)

// anchorSummary is the observed anchor-to-source lag across a cohort set.
type anchorSummary struct {
	// MedianDays and MeanDays are n-weighted over cohorts with valid anchor lag.
	MedianDays float64
	MeanDays   float64
	// Coverage is the fraction of cohorts with n > 0 that carry anchor lag.
	Coverage float64
	// Arrivals is the population behind the observed values.
	Arrivals float64
}

func (a anchorSummary) present() bool {
	return lag.ValidLag(a.MedianDays) && a.Coverage > 0
}

// summarizeAnchorLag weights by n, not k: a cohort with no conversions yet still
// has a well-defined time to reach the source node.
func summarizeAnchorLag(cohorts []lag.CohortData) anchorSummary {
	var (
		medians, medianW []float64
		means, meanW     []float64
		inScope, covered int
		arrivals         float64
	)

	for _, c := range cohorts {
		if c.N <= 0 {
			continue
		}
		inScope++
		if !c.HasAnchorLag() {
			continue
		}
		covered++
		n := float64(c.N)
		arrivals += n
		medians = append(medians, c.AnchorMedianLagDays)
		medianW = append(medianW, n)
		if lag.ValidLag(c.AnchorMeanLagDays) {
			means = append(means, c.AnchorMeanLagDays)
			meanW = append(meanW, n)
		}
	}

	if inScope == 0 || covered == 0 {
		return anchorSummary{}
	}

	out := anchorSummary{
		MedianDays: stat.Mean(medians, medianW),
		Coverage:   float64(covered) / float64(inScope),
		Arrivals:   arrivals,
	}
	if len(means) > 0 {
		out.MeanDays = stat.Mean(means, meanW)
	}
	return out
}
