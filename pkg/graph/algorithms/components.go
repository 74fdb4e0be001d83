package algorithms

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	fingraph "github.com/yashdarak08/Graph-Machine-Learning/pkg/graph"
)

// Components groups companies into connected components. Companies inside a component
// and the components themselves follow the order of names.
func Components(names []string, edges []fingraph.Edge) [][]string {
	ids := make(map[string]int64, len(names))
	g := simple.NewUndirectedGraph()
	for i, name := range names {
		if _, ok := ids[name]; ok {
			continue
		}
		ids[name] = int64(i)
		g.AddNode(simple.Node(int64(i)))
	}

	for _, e := range edges {
		a, okA := ids[e.A]
		b, okB := ids[e.B]
		if !okA || !okB || a == b {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(a), simple.Node(b)))
	}

	components := topo.ConnectedComponents(g)
	out := make([][]string, 0, len(components))
	for _, c := range components {
		idx := make([]int64, 0, len(c))
		for _, n := range c {
			idx = append(idx, n.ID())
		}
		sort.Slice(idx, func(i, j int) bool { return idx[i] < idx[j] })

		members := make([]string, 0, len(idx))
		for _, id := range idx {
			members = append(members, names[id])
		}
		out = append(out, members)
	}

	sort.Slice(out, func(i, j int) bool {
		return ids[out[i][0]] < ids[out[j][0]]
	})
	return out
}

// GraphComponents runs Components over a built graph
func GraphComponents(g *fingraph.CompanyGraph) [][]string {
	return Components(g.Index.Names(), g.Edges.Edges())
}

// Degrees counts the edges touching each company
func Degrees(edges []fingraph.Edge) map[string]int {
	deg := make(map[string]int)
	for _, e := range edges {
		deg[e.A]++
		deg[e.B]++
	}
	return deg
}
