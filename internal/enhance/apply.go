package enhance

import "funnel-mcp/internal/graph"

// Apply returns a copy of g with the result records written in. g itself is
// never modified, so a caller can publish the returned graph atomically or
// discard it.
func Apply(g *graph.Graph, res Result) *graph.Graph {
	out := g.Clone()

	byID := make(map[string]*graph.Edge, len(out.Edges))
	for i := range out.Edges {
		byID[graph.EdgeID(&out.Edges[i])] = &out.Edges[i]
	}

	for _, v := range res.EdgeValues {
		e, ok := byID[v.EdgeUUID]
		if !ok {
			continue
		}
		if e.P == nil {
			e.P = &graph.ProbabilityParam{}
		}
		if e.P.Latency == nil {
			e.P.Latency = &graph.LatencyConfig{}
		}

		l := e.P.Latency
		l.MedianLagDays = v.Latency.MedianLagDays
		l.MeanLagDays = v.Latency.MeanLagDays
		l.PathT95 = v.Latency.PathT95
		l.Completeness = v.Latency.Completeness
		if !l.T95Overridden {
			l.T95 = v.Latency.T95
		}

		if v.BlendedMean != nil {
			e.P.Mean = *v.BlendedMean
		}
		if e.P.Forecast == nil && v.Forecast != nil {
			e.P.Forecast = &graph.Forecast{Mean: v.Forecast.Mean}
		}
		if e.P.Evidence == nil && v.Evidence != nil {
			e.P.Evidence = &graph.Evidence{Mean: v.Evidence.Mean, N: v.Evidence.N, K: v.Evidence.K}
		}
	}
	return out
}
