package enhance

import (
	"math"

	"funnel-mcp/internal/graph"
)

// InboundN is the expected population arriving at an edge's source.
type InboundN struct {
	N          float64 `json:"n"`
	ForecastK  float64 `json:"forecast_k"`
	EffectiveP float64 `json:"effective_p"`
}

// ComputeInboundN propagates expected arrival populations forward. Start nodes
// take the largest observed evidence population among their outgoing edges.
// Converging paths sum.
func ComputeInboundN(g *graph.Graph, active graph.EdgeSet, resolver graph.ProbabilityResolver, whatIf *graph.WhatIf, anchorNodeID string) map[string]InboundN {
	if resolver == nil {
		resolver = graph.DefaultResolver
	}
	topo := graph.NewTopology(g, active, anchorNodeID)

	// 1. Seed start nodes
	nodeN := make(map[string]float64)
	for _, start := range topo.Starts {
		best := 0.0
		for _, e := range topo.Out[start] {
			best = math.Max(best, evidenceN(e))
		}
		nodeN[start] = best
	}

	// 2. Walk forward
	out := make(map[string]InboundN, len(active))
	topo.Walk(func(e *graph.Edge, from, to string) {
		id := graph.EdgeID(e)

		n := nodeN[from]
		if topo.IsStart(from) {
			if ev := evidenceN(e); ev > 0 {
				n = ev
			}
		}

		p := resolver(g, id, whatIf)
		k := n * p
		out[id] = InboundN{N: n, ForecastK: k, EffectiveP: p}
		nodeN[to] += k
	})
	return out
}

// ApplyInboundN returns a copy of g with each edge's forecast population set
// from inbound, so the next enhancement pass can use it as n_query.
func ApplyInboundN(g *graph.Graph, inbound map[string]InboundN) *graph.Graph {
	out := g.Clone()
	for i := range out.Edges {
		e := &out.Edges[i]
		in, ok := inbound[graph.EdgeID(e)]
		if !ok {
			continue
		}
		if e.P == nil {
			e.P = &graph.ProbabilityParam{}
		}
		e.P.N = in.N
	}
	return out
}

func evidenceN(e *graph.Edge) float64 {
	if e.P == nil || e.P.Evidence == nil {
		return 0
	}
	return math.Max(0, e.P.Evidence.N)
}
