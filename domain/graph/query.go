package graph

import (
	"sort"

	"github.com/engramdb/engram/pkg/mathutil"
)

const maxHops = 4

// adjacency returns each node's neighbors sorted ascending, so
// traversals visit nodes in a stable order.
func (g *Graph) adjacency() map[int64][]int64 {
	adj := make(map[int64][]int64, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}
	for id := range adj {
		sort.Slice(adj[id], func(a, b int) bool { return adj[id][a] < adj[id][b] })
	}
	return adj
}

// Neighborhood returns the subgraph within hops of center. Hops is
// clamped to [0, 4]; zero hops yields just the center node. The second
// return value is false when the center is not in the graph.
func (g *Graph) Neighborhood(center int64, hops int) (*Graph, bool) {
	hops = mathutil.ClampInt(hops, 0, maxHops)

	if !g.hasNode(center) {
		return nil, false
	}

	adj := g.adjacency()
	reached := map[int64]struct{}{center: {}}
	frontier := []int64{center}
	for range hops {
		var next []int64
		for _, id := range frontier {
			for _, neighbor := range adj[id] {
				if _, seen := reached[neighbor]; seen {
					continue
				}
				reached[neighbor] = struct{}{}
				next = append(next, neighbor)
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	return g.subgraph(reached), true
}

// Path is the result of a shortest path query. NodeIDs is nil when no
// path exists, which serializes as a null path.
type Path struct {
	Found   bool    `json:"found"`
	NodeIDs []int64 `json:"path"`
	Hops    int     `json:"hops"`
}

// ShortestPath finds a shortest path between two entities with a
// breadth first search. Ties break toward lower node ids, so the
// answer is deterministic.
func (g *Graph) ShortestPath(from, to int64) Path {
	if !g.hasNode(from) || !g.hasNode(to) {
		return Path{}
	}
	if from == to {
		return Path{Found: true, NodeIDs: []int64{from}}
	}

	adj := g.adjacency()
	parent := map[int64]int64{from: from}
	queue := []int64{from}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, neighbor := range adj[id] {
			if _, seen := parent[neighbor]; seen {
				continue
			}
			parent[neighbor] = id
			if neighbor == to {
				nodeIDs := walkBack(parent, from, to)
				return Path{Found: true, NodeIDs: nodeIDs, Hops: len(nodeIDs) - 1}
			}
			queue = append(queue, neighbor)
		}
	}
	return Path{}
}

func walkBack(parent map[int64]int64, from, to int64) []int64 {
	var reversed []int64
	for id := to; ; id = parent[id] {
		reversed = append(reversed, id)
		if id == from {
			break
		}
	}
	path := make([]int64, len(reversed))
	for i, id := range reversed {
		path[len(path)-1-i] = id
	}
	return path
}

func (g *Graph) hasNode(id int64) bool {
	for _, n := range g.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

func (g *Graph) subgraph(keep map[int64]struct{}) *Graph {
	sub := &Graph{}
	for _, n := range g.Nodes {
		if _, ok := keep[n.ID]; ok {
			sub.Nodes = append(sub.Nodes, n)
		}
	}
	for _, e := range g.Edges {
		if _, ok := keep[e.Source]; !ok {
			continue
		}
		if _, ok := keep[e.Target]; !ok {
			continue
		}
		sub.Edges = append(sub.Edges, e)
	}
	return sub
}
