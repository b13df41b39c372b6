package graph

// Graph is a directed funnel graph. Probabilities flow along edges.
type Graph struct {
	Nodes    []Node            `json:"nodes" yaml:"nodes"`
	Edges    []Edge            `json:"edges" yaml:"edges"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Node is a funnel step.
type Node struct {
	// UUID is the stable identity; edges may reference either UUID or ID.
	UUID  string     `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	ID    string     `json:"id,omitempty" yaml:"id,omitempty"`
	Label string     `json:"label,omitempty" yaml:"label,omitempty"`
	Entry *NodeEntry `json:"entry,omitempty" yaml:"entry,omitempty"`
}

// NodeEntry marks explicit entry points.
type NodeEntry struct {
	IsStart bool `json:"is_start" yaml:"is_start"`
}

// Edge is a transition between two nodes.
type Edge struct {
	UUID string            `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	ID   string            `json:"id,omitempty" yaml:"id,omitempty"`
	From string            `json:"from" yaml:"from"`
	To   string            `json:"to" yaml:"to"`
	P    *ProbabilityParam `json:"p,omitempty" yaml:"p,omitempty"`
}

// ProbabilityParam is the probability state of an edge.
type ProbabilityParam struct {
	Mean float64 `json:"mean" yaml:"mean"`
	// N is the forecast population expected to arrive at the edge's source.
	N        float64        `json:"n,omitempty" yaml:"n,omitempty"`
	Evidence *Evidence      `json:"evidence,omitempty" yaml:"evidence,omitempty"`
	Forecast *Forecast      `json:"forecast,omitempty" yaml:"forecast,omitempty"`
	Latency  *LatencyConfig `json:"latency,omitempty" yaml:"latency,omitempty"`
}

// Evidence is the raw observed k/n for the edge.
type Evidence struct {
	Mean float64 `json:"mean" yaml:"mean"`
	N    float64 `json:"n" yaml:"n"`
	K    float64 `json:"k" yaml:"k"`
}

// Forecast is the mature baseline probability.
type Forecast struct {
	Mean float64 `json:"mean" yaml:"mean"`
}

// LatencyConfig holds declared latency settings and the last computed latency outputs.
type LatencyConfig struct {
	LatencyParameter bool    `json:"latency_parameter,omitempty" yaml:"latency_parameter,omitempty"`
	T95              float64 `json:"t95,omitempty" yaml:"t95,omitempty"`
	// T95Overridden marks T95 as an authoritative user declaration rather than a computed value.
	T95Overridden bool    `json:"t95_overridden,omitempty" yaml:"t95_overridden,omitempty"`
	PathT95       float64 `json:"path_t95,omitempty" yaml:"path_t95,omitempty"`
	MedianLagDays float64 `json:"median_lag_days,omitempty" yaml:"median_lag_days,omitempty"`
	MeanLagDays   float64 `json:"mean_lag_days,omitempty" yaml:"mean_lag_days,omitempty"`
	Completeness  float64 `json:"completeness,omitempty" yaml:"completeness,omitempty"`
}

// LatencyEnabled reports whether the edge tracks latency locally.
func (e *Edge) LatencyEnabled() bool {
	return e.P != nil && e.P.Latency != nil && e.P.Latency.LatencyParameter
}

// Latency returns the latency config or nil.
func (e *Edge) Latency() *LatencyConfig {
	if e.P == nil {
		return nil
	}
	return e.P.Latency
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}

	out := &Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}

	for i, n := range g.Nodes {
		if n.Entry != nil {
			entry := *n.Entry
			n.Entry = &entry
		}
		out.Nodes[i] = n
	}

	for i, e := range g.Edges {
		if e.P != nil {
			e.P = e.P.clone()
		}
		out.Edges[i] = e
	}

	if g.Metadata != nil {
		out.Metadata = make(map[string]string, len(g.Metadata))
		for k, v := range g.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func (p *ProbabilityParam) clone() *ProbabilityParam {
	c := *p
	if p.Evidence != nil {
		ev := *p.Evidence
		c.Evidence = &ev
	}
	if p.Forecast != nil {
		fc := *p.Forecast
		c.Forecast = &fc
	}
	if p.Latency != nil {
		lat := *p.Latency
		c.Latency = &lat
	}
	return &c
}
