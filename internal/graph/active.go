package graph

import "math"

// EdgeSet is a set of edge ids.
type EdgeSet map[string]struct{}

// Has reports membership.
func (s EdgeSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// WhatIf carries scenario overrides for effective-probability resolution.
type WhatIf struct {
	// Overrides pins an edge's effective probability by edge id.
	Overrides map[string]float64 `json:"overrides,omitempty" yaml:"overrides,omitempty"`
	// DSL is an opaque scenario expression handed to custom resolvers.
	DSL string `json:"dsl,omitempty" yaml:"dsl,omitempty"`
}

// ProbabilityResolver returns an edge's effective probability in [0,1] under a scenario.
type ProbabilityResolver func(g *Graph, edgeID string, whatIf *WhatIf) float64

// DefaultResolver applies explicit overrides, otherwise max(mean, forecast mean).
// Using the forecast as a floor keeps edges with no evidence yet from being pruned.
func DefaultResolver(g *Graph, edgeID string, whatIf *WhatIf) float64 {
	if whatIf != nil {
		if p, ok := whatIf.Overrides[edgeID]; ok {
			return clampProbability(p)
		}
	}

	e := g.FindEdge(edgeID)
	if e == nil || e.P == nil {
		return 0
	}

	p := e.P.Mean
	if e.P.Forecast != nil && e.P.Forecast.Mean > p {
		p = e.P.Forecast.Mean
	}
	return clampProbability(p)
}

func clampProbability(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// GetActiveEdges returns the edges whose effective probability exceeds epsilon.
func GetActiveEdges(g *Graph, resolver ProbabilityResolver, whatIf *WhatIf, epsilon float64) EdgeSet {
	if resolver == nil {
		resolver = DefaultResolver
	}

	active := make(EdgeSet, len(g.Edges))
	for i := range g.Edges {
		id := EdgeID(&g.Edges[i])
		if resolver(g, id, whatIf) > epsilon {
			active[id] = struct{}{}
		}
	}
	return active
}

// FindStartNodes returns explicit entry nodes plus, as a fallback, nodes with no
// incoming and at least one outgoing active edge. Isolated nodes are excluded.
func FindStartNodes(g *Graph, ix *NodeIndex, active EdgeSet) []string {
	in := BuildReverseAdjacency(g, ix, active)
	out := BuildAdjacency(g, ix, active)

	flagged := make(map[string]bool)
	for i := range g.Nodes {
		if g.Nodes[i].Entry != nil && g.Nodes[i].Entry.IsStart {
			flagged[ix.Resolve(NodeID(&g.Nodes[i]))] = true
		}
	}

	var starts []string
	for _, id := range ix.Nodes() {
		if flagged[id] || (len(in[id]) == 0 && len(out[id]) > 0) {
			starts = append(starts, id)
		}
	}
	return starts
}

// BuildAdjacency maps each node id to its outgoing active edges, in graph order.
func BuildAdjacency(g *Graph, ix *NodeIndex, active EdgeSet) map[string][]*Edge {
	adj := make(map[string][]*Edge)
	for i := range g.Edges {
		e := &g.Edges[i]
		if !active.Has(EdgeID(e)) {
			continue
		}
		from := ix.Resolve(e.From)
		adj[from] = append(adj[from], e)
	}
	return adj
}

// BuildReverseAdjacency maps each node id to its incoming active edges, in graph order.
func BuildReverseAdjacency(g *Graph, ix *NodeIndex, active EdgeSet) map[string][]*Edge {
	adj := make(map[string][]*Edge)
	for i := range g.Edges {
		e := &g.Edges[i]
		if !active.Has(EdgeID(e)) {
			continue
		}
		to := ix.Resolve(e.To)
		adj[to] = append(adj[to], e)
	}
	return adj
}
