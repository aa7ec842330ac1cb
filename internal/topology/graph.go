package topology

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/ironsheep/pnid-topology/internal/pnid"
)

// VertexKind classifies a graph vertex by the skeleton pixels behind it.
type VertexKind int

const (
	// Endpoint is a skeleton pixel with exactly one foreground neighbor.
	Endpoint VertexKind = iota + 1
	// Junction is an 8-connected cluster of pixels with three or more
	// foreground neighbors each.
	Junction
)

func (k VertexKind) String() string {
	switch k {
	case Endpoint:
		return "endpoint"
	case Junction:
		return "junction"
	default:
		return fmt.Sprintf("VertexKind(%d)", int(k))
	}
}

// Vertex is a junction or endpoint of the skeleton.
type Vertex struct {
	ID   int        `json:"id"`
	Pos  pnid.Point `json:"pos"`
	Kind VertexKind `json:"-"`

	// Pixels lists the skeleton pixels merged into this vertex in raster
	// order. Endpoints have one; thick junctions may have several.
	Pixels []pnid.Point `json:"-"`
}

// Edge is an undirected skeleton branch between two distinct vertices.
// Pixels runs from vertex A to vertex B, both positions included.
type Edge struct {
	A      int          `json:"a"`
	B      int          `json:"b"`
	Length float64      `json:"length"`
	Pixels []pnid.Point `json:"-"`
}

// Other returns the vertex at the far end of e from v.
func (e Edge) Other(v int) int {
	if v == e.A {
		return e.B
	}
	return e.A
}

// PixelsFrom returns the pixel trace oriented to start at vertex v.
// The stored slice is never modified.
func (e Edge) PixelsFrom(v int) []pnid.Point {
	if v == e.A {
		return e.Pixels
	}
	out := make([]pnid.Point, len(e.Pixels))
	for i, p := range e.Pixels {
		out[len(e.Pixels)-1-i] = p
	}
	return out
}

// Graph is the compressed skeleton. It is immutable once Build returns
// and safe for concurrent reads.
type Graph struct {
	Vertices []Vertex
	Edges    []Edge

	adj    [][]int
	byPair map[[2]int]int
	byPos  map[pnid.Point]int
}

func newGraph() *Graph {
	return &Graph{
		byPair: make(map[[2]int]int),
		byPos:  make(map[pnid.Point]int),
	}
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func (g *Graph) addVertex(v Vertex) {
	if _, dup := g.byPos[v.Pos]; dup {
		panic(fmt.Sprintf("topology: two vertices at %v", v.Pos))
	}
	v.ID = len(g.Vertices)
	g.byPos[v.Pos] = v.ID
	g.Vertices = append(g.Vertices, v)
	g.adj = append(g.adj, nil)
}

// addEdge stores e unless it is a self-loop or repeats an existing vertex
// pair. It reports whether the edge was stored.
func (g *Graph) addEdge(e Edge) bool {
	if e.A == e.B {
		return false
	}
	key := pairKey(e.A, e.B)
	if _, dup := g.byPair[key]; dup {
		return false
	}
	if !(e.Length > 0) || math.IsInf(e.Length, 0) {
		panic(fmt.Sprintf("topology: edge %d-%d has length %g", e.A, e.B, e.Length))
	}
	idx := len(g.Edges)
	g.Edges = append(g.Edges, e)
	g.byPair[key] = idx
	g.adj[e.A] = append(g.adj[e.A], idx)
	g.adj[e.B] = append(g.adj[e.B], idx)
	return true
}

// Incident returns indices into Edges of the edges touching v, in
// discovery order.
func (g *Graph) Incident(v int) []int {
	return g.adj[v]
}

// Degree is the number of edges touching v.
func (g *Graph) Degree(v int) int {
	return len(g.adj[v])
}

// EdgeBetween returns the edge joining a and b, if any.
func (g *Graph) EdgeBetween(a, b int) (Edge, bool) {
	idx, ok := g.byPair[pairKey(a, b)]
	if !ok {
		return Edge{}, false
	}
	return g.Edges[idx], true
}

// VertexAt returns the id of the vertex positioned at p.
func (g *Graph) VertexAt(p pnid.Point) (int, bool) {
	id, ok := g.byPos[p]
	return id, ok
}

// Points returns vertex positions of the given kind in id order.
func (g *Graph) Points(kind VertexKind) []pnid.Point {
	var out []pnid.Point
	for _, v := range g.Vertices {
		if v.Kind == kind {
			out = append(out, v.Pos)
		}
	}
	return out
}

// Count returns the number of vertices of the given kind.
func (g *Graph) Count(kind VertexKind) int {
	n := 0
	for _, v := range g.Vertices {
		if v.Kind == kind {
			n++
		}
	}
	return n
}

// Gonum exports the graph as a gonum weighted undirected graph. Node ids
// equal vertex ids and edge weights equal lengths.
func (g *Graph) Gonum() *simple.WeightedUndirectedGraph {
	wg := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for _, v := range g.Vertices {
		wg.AddNode(simple.Node(v.ID))
	}
	for _, e := range g.Edges {
		wg.SetWeightedEdge(wg.NewWeightedEdge(simple.Node(e.A), simple.Node(e.B), e.Length))
	}
	return wg
}

// Networks counts connected components of the vertex graph. Vertices with
// no edges count as their own network.
func (g *Graph) Networks() int {
	if len(g.Vertices) == 0 {
		return 0
	}
	return len(topo.ConnectedComponents(g.Gonum()))
}
