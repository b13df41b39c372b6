package visuals

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"funnel-mcp/internal/enhance"
	"funnel-mcp/internal/graph"
)

// Limit the number of bars so the text chart stays readable.
const maxChartEdges = 20

var unsafeID = regexp.MustCompile(`[^A-Za-z0-9_]`)

// GenerateFunnelFlowchart creates a Mermaid flowchart of the graph annotated
// with the latency results of an enhancement pass. Edges without a result keep
// their declared probability only.
func GenerateFunnelFlowchart(g *graph.Graph, res enhance.Result) string {
	if len(g.Nodes) == 0 && len(g.Edges) == 0 {
		return ""
	}

	values := make(map[string]enhance.EdgeLAGValues, len(res.EdgeValues))
	for _, v := range res.EdgeValues {
		values[v.EdgeUUID] = v
	}

	ix := graph.NewNodeIndex(g)
	ids := make(map[string]string)
	nodeRef := func(ref string) string {
		canonical := ix.Resolve(ref)
		if id, ok := ids[canonical]; ok {
			return id
		}
		id := fmt.Sprintf("n%d_%s", len(ids), unsafeID.ReplaceAllString(canonical, "_"))
		ids[canonical] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("flowchart LR\n")

	for i := range g.Nodes {
		n := &g.Nodes[i]
		label := n.Label
		if label == "" {
			label = graph.NodeID(n)
		}
		id := nodeRef(graph.NodeID(n))
		if n.Entry != nil && n.Entry.IsStart {
			sb.WriteString(fmt.Sprintf("    %s([\"%s\"])\n", id, escape(label)))
		} else {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, escape(label)))
		}
	}

	var lowCompleteness []int
	for i := range g.Edges {
		e := &g.Edges[i]
		from, to := nodeRef(e.From), nodeRef(e.To)

		v, ok := values[graph.EdgeID(e)]
		if !ok {
			p := 0.0
			if e.P != nil {
				p = e.P.Mean
			}
			sb.WriteString(fmt.Sprintf("    %s -->|\"p=%.2f\"| %s\n", from, p, to))
			continue
		}

		mean := 0.0
		if v.BlendedMean != nil {
			mean = *v.BlendedMean
		} else if e.P != nil {
			mean = e.P.Mean
		}
		sb.WriteString(fmt.Sprintf("    %s -->|\"p=%.2f c=%.0f%% t95=%.1fd\"| %s\n",
			from, mean, v.Latency.Completeness*100, v.Latency.T95, to))
		if v.Latency.Completeness < 0.5 {
			lowCompleteness = append(lowCompleteness, i)
		}
	}

	// Highlight immature edges
	for _, i := range lowCompleteness {
		sb.WriteString(fmt.Sprintf("    linkStyle %d stroke:#d9822b,stroke-width:2px,stroke-dasharray:4\n", i))
	}

	sb.WriteString("```")
	return sb.String()
}

// GenerateCompletenessChart creates a Mermaid bar chart of per-edge completeness.
func GenerateCompletenessChart(res enhance.Result) string {
	if len(res.EdgeValues) == 0 {
		return ""
	}

	limit := len(res.EdgeValues)
	if limit > maxChartEdges {
		limit = maxChartEdges
	}

	var labels []string
	var values []string
	for _, v := range res.EdgeValues[:limit] {
		labels = append(labels, fmt.Sprintf("\"%s\"", escape(v.EdgeUUID)))
		values = append(values, fmt.Sprintf("%.1f", v.Latency.Completeness*100))
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Edge Completeness\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString("    y-axis \"Completeness (%)\" 0 --> 100\n")
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GeneratePathHorizonChart plots each edge's own t95 against its path t95.
func GeneratePathHorizonChart(res enhance.Result) string {
	if len(res.EdgeValues) == 0 {
		return ""
	}

	limit := len(res.EdgeValues)
	if limit > maxChartEdges {
		limit = maxChartEdges
	}

	var labels, own, path []string
	maxY := 0.0
	for _, v := range res.EdgeValues[:limit] {
		labels = append(labels, fmt.Sprintf("\"%s\"", escape(v.EdgeUUID)))
		own = append(own, fmt.Sprintf("%.1f", v.Latency.T95))
		path = append(path, fmt.Sprintf("%.1f", v.Latency.PathT95))
		maxY = math.Max(maxY, math.Max(v.Latency.T95, v.Latency.PathT95))
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Latency Horizons (t95 vs path t95)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Days\" 0 --> %d\n", int(math.Ceil(math.Max(1, maxY*1.1)))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(path, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(own, ", ")))
	sb.WriteString("```")
	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
