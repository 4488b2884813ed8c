package coordinator

import "sort"

// Graph is a plain adjacency-list description of the network the
// Coordinator will stand up: one OS process per node id, wired
// together according to Edges. Grounded on Nodes/initializers.py's use
// of a networkx.Graph, replaced here by the smallest structure that
// carries the same information a Go caller needs.
type Graph struct {
	Nodes []int
	Edges [][2]int
}

// NewLineGraph builds a path graph 0-1-2-...-(n-1).
func NewLineGraph(n int) Graph {
	g := Graph{Nodes: make([]int, n)}
	for i := 0; i < n; i++ {
		g.Nodes[i] = i
	}
	for i := 0; i < n-1; i++ {
		g.Edges = append(g.Edges, [2]int{i, i + 1})
	}
	return g
}

// NewRingGraph builds a cycle 0-1-2-...-(n-1)-0.
func NewRingGraph(n int) Graph {
	g := NewLineGraph(n)
	if n > 1 {
		g.Edges = append(g.Edges, [2]int{n - 1, 0})
	}
	return g
}

// NewCompleteGraph builds Kn, needed by Bully and the mutual-exclusion
// protocols, which assume every pair of workers can talk directly.
func NewCompleteGraph(n int) Graph {
	g := Graph{Nodes: make([]int, n)}
	for i := 0; i < n; i++ {
		g.Nodes[i] = i
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			g.Edges = append(g.Edges, [2]int{i, j})
		}
	}
	return g
}

func (g Graph) numberOfNodes() int { return len(g.Nodes) }

// edgesOf returns every edge touching node, in ascending order of the
// other endpoint, mirroring networkx's `G.edges(node)` iteration used
// by setup_clients to build each node's local DNS.
func (g Graph) edgesOf(node int) [][2]int {
	var out [][2]int
	for _, e := range g.Edges {
		if e[0] == node {
			out = append(out, [2]int{node, e[1]})
		} else if e[1] == node {
			out = append(out, [2]int{node, e[0]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][1] < out[j][1] })
	return out
}
