package graph

// EdgeID returns the edge identity: UUID, else ID, else "from->to".
func EdgeID(e *Edge) string {
	if e.UUID != "" {
		return e.UUID
	}
	if e.ID != "" {
		return e.ID
	}
	return e.From + "->" + e.To
}

// NodeID returns the node's canonical id, falling back to its UUID.
func NodeID(n *Node) string {
	if n.ID != "" {
		return n.ID
	}
	return n.UUID
}

// NodeIndex normalises node references (UUID or id) to canonical node ids.
type NodeIndex struct {
	canonical map[string]string
	order     []string
}

// NewNodeIndex indexes the graph's nodes. Edge endpoints that match no node are
// kept as their own id and appended after declared nodes, so traversal order
// stays deterministic.
func NewNodeIndex(g *Graph) *NodeIndex {
	ix := &NodeIndex{canonical: make(map[string]string, len(g.Nodes)*2)}

	for i := range g.Nodes {
		id := NodeID(&g.Nodes[i])
		if id == "" {
			continue
		}
		if _, seen := ix.canonical[id]; !seen {
			ix.order = append(ix.order, id)
		}
		ix.canonical[id] = id
		if u := g.Nodes[i].UUID; u != "" {
			ix.canonical[u] = id
		}
	}

	for i := range g.Edges {
		for _, ref := range []string{g.Edges[i].From, g.Edges[i].To} {
			if ref == "" {
				continue
			}
			if _, ok := ix.canonical[ref]; !ok {
				ix.canonical[ref] = ref
				ix.order = append(ix.order, ref)
			}
		}
	}
	return ix
}

// Resolve maps a node reference to its canonical id.
func (ix *NodeIndex) Resolve(ref string) string {
	if id, ok := ix.canonical[ref]; ok {
		return id
	}
	return ref
}

// Nodes returns canonical node ids in declaration order.
func (ix *NodeIndex) Nodes() []string {
	return ix.order
}

// Endpoints returns the normalised source and target of an edge.
func (ix *NodeIndex) Endpoints(e *Edge) (from, to string) {
	return ix.Resolve(e.From), ix.Resolve(e.To)
}

// FindEdge returns the edge with the given identity.
func (g *Graph) FindEdge(id string) *Edge {
	for i := range g.Edges {
		if EdgeID(&g.Edges[i]) == id {
			return &g.Edges[i]
		}
	}
	return nil
}
