package topology

import (
	"cmp"
	"math"
	"slices"

	"github.com/ironsheep/pnid-topology/internal/imaging"
	"github.com/ironsheep/pnid-topology/internal/pnid"
)

// Build compresses a skeleton into a graph of junctions and endpoints.
//
// Pixels with one foreground neighbor become endpoint vertices. Pixels with
// three or more become junction pixels, and each 8-connected cluster of them
// collapses into one vertex placed on the member nearest the cluster
// centroid. Where two lines cross, several neighboring pixels all have
// degree three or more; merging them yields one junction per crossing.
// Corridor pixels (exactly two neighbors) and isolated pixels never become
// vertices.
//
// Vertex ids follow raster order of their positions (row, then column),
// which is also the iteration order every later stage relies on.
//
// Edges are traced by walking from each vertex pixel along every foreground
// neighbor outside the vertex until another vertex is reached. Walks that
// dead-end, or return to the vertex they started from, produce no edge. When
// several branches join the same two vertices only the first one traced is
// kept.
//
// Build panics if it would produce two vertices at one position or an edge
// of non-positive length; neither can happen for a well-formed mask.
func Build(skel *imaging.Mask) *Graph {
	g := newGraph()
	if skel == nil || skel.Count() == 0 {
		return g
	}

	b := &builder{
		skel:     skel,
		vertexOf: make([]int, len(skel.Bits)),
		stamp:    make([]int, len(skel.Bits)),
	}
	b.findVertices(g)
	b.traceEdges(g)
	return g
}

type builder struct {
	skel *imaging.Mask

	// vertexOf maps a pixel index to its vertex id, or -1.
	vertexOf []int

	// stamp marks pixels visited by the current walk; walk holds its number.
	stamp []int
	walk  int
}

func (b *builder) index(p pnid.Point) int {
	return p.Y*b.skel.Width + p.X
}

func (b *builder) findVertices(g *Graph) {
	m := b.skel
	degree := make([]int, len(m.Bits))
	for i := range b.vertexOf {
		b.vertexOf[i] = -1
	}
	for _, p := range m.Points() {
		degree[b.index(p)] = m.Degree(p.X, p.Y)
	}

	var found []Vertex
	clustered := make([]bool, len(m.Bits))
	for _, p := range m.Points() {
		i := b.index(p)
		switch d := degree[i]; {
		case d == 1:
			found = append(found, Vertex{Pos: p, Kind: Endpoint, Pixels: []pnid.Point{p}})
		case d >= 3 && !clustered[i]:
			members := b.cluster(p, degree, clustered)
			found = append(found, Vertex{Pos: representative(members), Kind: Junction, Pixels: members})
		}
	}

	sortByPosition(found)
	for _, v := range found {
		g.addVertex(v)
		id := len(g.Vertices) - 1
		for _, p := range v.Pixels {
			b.vertexOf[b.index(p)] = id
		}
	}
}

// cluster collects the 8-connected junction pixels reachable from start,
// returned in raster order.
func (b *builder) cluster(start pnid.Point, degree []int, clustered []bool) []pnid.Point {
	m := b.skel
	clustered[b.index(start)] = true
	stack := []pnid.Point{start}
	var members []pnid.Point
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		members = append(members, cur)
		for _, d := range imaging.Neighbors8 {
			n := pnid.Point{X: cur.X + d.X, Y: cur.Y + d.Y}
			if !m.Get(n.X, n.Y) {
				continue
			}
			j := b.index(n)
			if degree[j] >= 3 && !clustered[j] {
				clustered[j] = true
				stack = append(stack, n)
			}
		}
	}
	sortPoints(members)
	return members
}

// representative picks the member closest to the cluster centroid; ties go
// to the first member in raster order.
func representative(members []pnid.Point) pnid.Point {
	var cx, cy float64
	for _, p := range members {
		cx += float64(p.X)
		cy += float64(p.Y)
	}
	c := pnid.PointF{X: cx / float64(len(members)), Y: cy / float64(len(members))}

	best := members[0]
	bestDist := math.Inf(1)
	for _, p := range members {
		if d := p.ToF().Dist(c); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

func (b *builder) traceEdges(g *Graph) {
	for id := range g.Vertices {
		v := g.Vertices[id]
		for _, start := range v.Pixels {
			for _, d := range imaging.Neighbors8 {
				n := pnid.Point{X: start.X + d.X, Y: start.Y + d.Y}
				if !b.skel.Get(n.X, n.Y) || b.vertexOf[b.index(n)] == id {
					continue
				}
				if e, ok := b.trace(g, id, start, n); ok {
					g.addEdge(e)
				}
			}
		}
	}
}

// trace walks from vertex pixel start through n until another vertex pixel
// is reached. The walk is iterative and keeps its own visited set, so it
// terminates within the skeleton pixel count.
func (b *builder) trace(g *Graph, from int, start, n pnid.Point) (Edge, bool) {
	b.walk++
	origin := g.Vertices[from].Pos

	path := []pnid.Point{origin}
	if start != origin {
		path = append(path, start)
	}
	b.stamp[b.index(start)] = b.walk

	prev, cur := start, n
	for {
		path = append(path, cur)
		b.stamp[b.index(cur)] = b.walk

		if to := b.vertexOf[b.index(cur)]; to >= 0 {
			if to == from {
				return Edge{}, false
			}
			if end := g.Vertices[to].Pos; end != cur {
				path = append(path, end)
			}
			return Edge{A: from, B: to, Length: pathLength(path), Pixels: path}, true
		}

		next, ok := b.step(prev, cur)
		if !ok {
			return Edge{}, false
		}
		prev, cur = cur, next
	}
}

// step returns the first unvisited foreground neighbor of cur other than
// prev, in Neighbors8 order.
func (b *builder) step(prev, cur pnid.Point) (pnid.Point, bool) {
	for _, d := range imaging.Neighbors8 {
		n := pnid.Point{X: cur.X + d.X, Y: cur.Y + d.Y}
		if n == prev || !b.skel.Get(n.X, n.Y) {
			continue
		}
		if b.stamp[b.index(n)] == b.walk {
			continue
		}
		return n, true
	}
	return pnid.Point{}, false
}

func pathLength(path []pnid.Point) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += path[i-1].Dist(path[i])
	}
	return total
}

func sortByPosition(vs []Vertex) {
	slices.SortStableFunc(vs, func(a, b Vertex) int { return comparePoints(a.Pos, b.Pos) })
}

func sortPoints(ps []pnid.Point) {
	slices.SortFunc(ps, comparePoints)
}

// comparePoints orders points by row, then column.
func comparePoints(a, b pnid.Point) int {
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.X, b.X)
}
