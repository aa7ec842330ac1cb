package route

import (
	"container/heap"
	"math"

	"github.com/ironsheep/pnid-topology/internal/pnid"
	"github.com/ironsheep/pnid-topology/internal/topology"
)

// Tree is a single-source shortest-path tree over a topology graph.
type Tree struct {
	g       *topology.Graph
	source  int
	dist    []float64
	viaEdge []int
}

// ShortestFrom runs Dijkstra from source with edge lengths as weights.
//
// The queue orders by distance and then by vertex id, and an entry only
// improves on a strictly shorter distance, so equal-length alternatives
// always resolve the same way.
func ShortestFrom(g *topology.Graph, source int) *Tree {
	n := len(g.Vertices)
	t := &Tree{
		g:       g,
		source:  source,
		dist:    make([]float64, n),
		viaEdge: make([]int, n),
	}
	for i := range t.dist {
		t.dist[i] = math.Inf(1)
		t.viaEdge[i] = -1
	}
	t.dist[source] = 0

	done := make([]bool, n)
	pq := &vertexQueue{}
	heap.Push(pq, &vertexItem{vertex: source})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*vertexItem)
		u := item.vertex
		if done[u] {
			continue
		}
		done[u] = true

		for _, idx := range g.Incident(u) {
			e := g.Edges[idx]
			v := e.Other(u)
			if done[v] {
				continue
			}
			if nd := t.dist[u] + e.Length; nd < t.dist[v] {
				t.dist[v] = nd
				t.viaEdge[v] = idx
				heap.Push(pq, &vertexItem{vertex: v, dist: nd})
			}
		}
	}
	return t
}

// Reachable reports whether target is connected to the source.
func (t *Tree) Reachable(target int) bool {
	return !math.IsInf(t.dist[target], 1)
}

// Distance returns the shortest distance to target, +Inf when unreachable.
func (t *Tree) Distance(target int) float64 {
	return t.dist[target]
}

// Edges returns the edge indices along the path from the source to target,
// in travel order. It returns nil for the source itself or an unreachable
// target.
func (t *Tree) Edges(target int) []int {
	if !t.Reachable(target) {
		return nil
	}
	var rev []int
	for v := target; v != t.source; {
		idx := t.viaEdge[v]
		rev = append(rev, idx)
		v = t.g.Edges[idx].Other(v)
	}
	out := make([]int, len(rev))
	for i, idx := range rev {
		out[len(rev)-1-i] = idx
	}
	return out
}

// Path returns the concatenated pixel trace and the summed edge length from
// the source to target. Joint pixels shared by consecutive edges appear
// once.
func (t *Tree) Path(target int) ([]pnid.Point, float64, bool) {
	if !t.Reachable(target) {
		return nil, 0, false
	}
	at := t.source
	pixels := []pnid.Point{t.g.Vertices[at].Pos}
	length := 0.0
	for _, idx := range t.Edges(target) {
		e := t.g.Edges[idx]
		trace := e.PixelsFrom(at)
		pixels = append(pixels, trace[1:]...)
		length += e.Length
		at = e.Other(at)
	}
	return pixels, length, true
}

type vertexItem struct {
	vertex int
	dist   float64
	index  int
}

// vertexQueue implements heap.Interface ordered by (dist, vertex).
type vertexQueue []*vertexItem

func (pq vertexQueue) Len() int { return len(pq) }
func (pq vertexQueue) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	return pq[i].vertex < pq[j].vertex
}
func (pq vertexQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *vertexQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*vertexItem)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *vertexQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}
