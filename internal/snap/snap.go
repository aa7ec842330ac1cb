// Package snap attaches externally located components to skeleton graph
// vertices.
package snap

import (
	"math"

	"github.com/ironsheep/pnid-topology/internal/pnid"
	"github.com/ironsheep/pnid-topology/internal/topology"
)

// Assignment maps one component to the vertex it snapped to.
type Assignment struct {
	Component pnid.Component
	Vertex    int
	Distance  float64
}

// Mapping is the result of snapping a component list onto a graph.
type Mapping struct {
	// Assigned holds mapped components in input order.
	Assigned []Assignment

	// Unmapped holds components with no vertex within tolerance, in input
	// order. NearestDistance is -1 when the graph has no vertices.
	Unmapped []pnid.UnmappedComponent
}

// VertexOf returns the vertex a component id was mapped to.
func (m *Mapping) VertexOf(id string) (int, bool) {
	for _, a := range m.Assigned {
		if a.Component.ID == id {
			return a.Vertex, true
		}
	}
	return 0, false
}

// Snap maps each component to its nearest vertex, provided that vertex lies
// within tolerance (inclusive). Vertices are scanned in id order and only a
// strictly smaller distance replaces the current best, so among equidistant
// vertices the lowest id wins.
//
// Snap is pure. Raising the tolerance can only move components from
// Unmapped to Assigned, never back.
func Snap(components []pnid.Component, g *topology.Graph, tolerance float64) *Mapping {
	m := &Mapping{}
	for _, c := range components {
		best, dist := nearest(c.Position(), g)
		if best >= 0 && dist <= tolerance {
			m.Assigned = append(m.Assigned, Assignment{Component: c, Vertex: best, Distance: dist})
			continue
		}
		if best < 0 {
			dist = -1
		}
		m.Unmapped = append(m.Unmapped, pnid.UnmappedComponent{ID: c.ID, NearestDistance: dist})
	}
	return m
}

func nearest(p pnid.PointF, g *topology.Graph) (int, float64) {
	best := -1
	bestDist := math.Inf(1)
	for _, v := range g.Vertices {
		if d := v.Pos.ToF().Dist(p); d < bestDist {
			best, bestDist = v.ID, d
		}
	}
	return best, bestDist
}
