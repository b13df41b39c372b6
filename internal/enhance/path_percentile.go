package enhance

import (
	"math"

	"funnel-mcp/internal/graph"
	"funnel-mcp/internal/lag"
)

// ComputePathPercentile returns, per active edge, the 95th-percentile elapsed
// time from the start nodes to the end of the edge. Converging paths take the
// longest horizon. Edges left unordered by cycles are absent from the map.
func ComputePathPercentile(g *graph.Graph, active graph.EdgeSet, anchorNodeID string, s lag.Settings) map[string]lag.TailPercentileDays {
	topo := graph.NewTopology(g, active, anchorNodeID)

	nodeAcc := make(map[string]lag.TailPercentileDays)
	out := make(map[string]lag.TailPercentileDays, len(active))

	topo.Walk(func(e *graph.Edge, from, to string) {
		edgePct := nodeAcc[from] + ownPercentile(e, s)
		out[graph.EdgeID(e)] = edgePct
		nodeAcc[to] = maxTail(nodeAcc[to], edgePct)
	})
	return out
}

// ownPercentile is the declared t95 of a latency-tracked edge, the configured
// default when none is declared, and zero for untracked edges.
func ownPercentile(e *graph.Edge, s lag.Settings) lag.TailPercentileDays {
	if !e.LatencyEnabled() {
		return 0
	}
	return lag.TailPercentileDays(declaredT95(e, s))
}

func declaredT95(e *graph.Edge, s lag.Settings) float64 {
	if l := e.Latency(); l != nil && lag.ValidLag(l.T95) {
		return l.T95
	}
	return s.DefaultT95Days
}

func maxTail(a, b lag.TailPercentileDays) lag.TailPercentileDays {
	return lag.TailPercentileDays(math.Max(float64(a), float64(b)))
}

func maxPrior(a, b lag.MedianPriorDays) lag.MedianPriorDays {
	return lag.MedianPriorDays(math.Max(float64(a), float64(b)))
}
