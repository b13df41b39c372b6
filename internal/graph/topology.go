package graph

// Topology is the active subgraph prepared for Kahn's traversal.
type Topology struct {
	Graph  *Graph
	Index  *NodeIndex
	Active EdgeSet
	Out    map[string][]*Edge
	In     map[string][]*Edge
	Starts []string

	startSet map[string]bool
}

// NewTopology builds adjacency over the active edges. When anchorNodeID names a
// known node it becomes the only start node; otherwise FindStartNodes decides.
func NewTopology(g *Graph, active EdgeSet, anchorNodeID string) *Topology {
	ix := NewNodeIndex(g)
	t := &Topology{
		Graph:  g,
		Index:  ix,
		Active: active,
		Out:    BuildAdjacency(g, ix, active),
		In:     BuildReverseAdjacency(g, ix, active),
	}

	if anchorNodeID != "" {
		anchor := ix.Resolve(anchorNodeID)
		for _, id := range ix.Nodes() {
			if id == anchor {
				t.Starts = []string{anchor}
				break
			}
		}
	}
	if t.Starts == nil {
		t.Starts = FindStartNodes(g, ix, active)
	}

	t.startSet = make(map[string]bool, len(t.Starts))
	for _, s := range t.Starts {
		t.startSet[s] = true
	}
	return t
}

// IsStart reports whether the node seeds the traversal.
func (t *Topology) IsStart(nodeID string) bool {
	return t.startSet[nodeID]
}

// Walk visits every active edge reachable in topological order: an edge is
// visited only after all active edges into its source node. The queue is seeded
// with the start nodes, then any other node with no incoming active edges.
// It returns the ids of active edges that could not be ordered (cycles).
func (t *Topology) Walk(visit func(e *Edge, from, to string)) []string {
	inDegree := make(map[string]int, len(t.Index.Nodes()))
	for _, id := range t.Index.Nodes() {
		inDegree[id] = len(t.In[id])
	}

	queued := make(map[string]bool)
	var queue []string
	enqueue := func(id string) {
		if !queued[id] {
			queued[id] = true
			queue = append(queue, id)
		}
	}

	for _, s := range t.Starts {
		enqueue(s)
	}
	for _, id := range t.Index.Nodes() {
		if inDegree[id] == 0 {
			enqueue(id)
		}
	}

	// Parallel edges without ids share a synthetic id.
	visited := make(map[*Edge]bool, len(t.Active))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, e := range t.Out[node] {
			if visited[e] {
				continue
			}
			visited[e] = true

			from, to := t.Index.Endpoints(e)
			visit(e, from, to)

			inDegree[to]--
			if inDegree[to] <= 0 {
				enqueue(to)
			}
		}
	}

	var unvisited []string
	for i := range t.Graph.Edges {
		e := &t.Graph.Edges[i]
		if id := EdgeID(e); t.Active.Has(id) && !visited[e] {
			unvisited = append(unvisited, id)
		}
	}
	return unvisited
}

// TopologicalOrder returns active edge ids in traversal order and the ids left
// unordered by cycles.
func TopologicalOrder(g *Graph, active EdgeSet) (order []string, unvisited []string) {
	t := NewTopology(g, active, "")
	unvisited = t.Walk(func(e *Edge, _, _ string) {
		order = append(order, EdgeID(e))
	})
	return order, unvisited
}
