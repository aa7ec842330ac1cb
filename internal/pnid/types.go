// Package pnid defines the data model shared by the connectivity pipeline.
//
// Coordinates follow the image convention used throughout the module:
// (0,0) is the top-left pixel, X increases rightward and Y increases downward.
package pnid

import "math"

// Point is an integer pixel position.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Dist returns the Euclidean distance between two pixel positions.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(float64(q.X-p.X), float64(q.Y-p.Y))
}

// PointF is a sub-pixel position, used for externally supplied coordinates.
type PointF struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance between two positions.
func (p PointF) Dist(q PointF) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// ToF converts a pixel position to a sub-pixel one.
func (p Point) ToF() PointF {
	return PointF{X: float64(p.X), Y: float64(p.Y)}
}

// Component is a named diagram element located by an external component
// locator (OCR, LLM or vector parser). The pipeline never modifies it.
type Component struct {
	ID    string  `json:"id"`
	Label string  `json:"label,omitempty"`
	Type  string  `json:"type,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Position returns the component's approximate pixel position.
func (c Component) Position() PointF {
	return PointF{X: c.X, Y: c.Y}
}

// Quad is a four-corner text box as reported by OCR engines.
type Quad [4][2]float64

// Centroid returns the mean of the four corners.
func (q Quad) Centroid() PointF {
	var cx, cy float64
	for _, p := range q {
		cx += p[0]
		cy += p[1]
	}
	return PointF{X: cx / 4, Y: cy / 4}
}

// QuadFromRect builds a clockwise quad from an axis-aligned rectangle.
func QuadFromRect(x1, y1, x2, y2 float64) Quad {
	return Quad{{x1, y1}, {x2, y1}, {x2, y2}, {x1, y2}}
}

// OCRItem is one recognized piece of text. It only annotates pipes and
// never influences topology.
type OCRItem struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	BBox       Quad    `json:"bbox"`
}

// CandidatePipe is a geometrically resolved connection between two
// components. The resolver sets a geometric Description; the label
// annotator fills Label and appends matched text to Description.
type CandidatePipe struct {
	Source      string  `json:"source"`
	Target      string  `json:"target"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	PathLength  float64 `json:"path_length"`
	PathPixels  []Point `json:"path_pixels,omitempty"`
}

// Midpoint returns the pipe's label anchor.
func (p CandidatePipe) Midpoint() PointF {
	return PointF{X: p.X, Y: p.Y}
}

// UnmappedComponent records a component with no skeleton vertex inside the
// snap tolerance. NearestDistance is -1 when the graph has no vertices.
type UnmappedComponent struct {
	ID              string  `json:"id"`
	NearestDistance float64 `json:"nearest_distance"`
}

// SkipReason explains why a mapped component pair produced no pipe.
type SkipReason string

const (
	SkipNoPath   SkipReason = "no_path"
	SkipTooLong  SkipReason = "too_long"
	SkipTooShort SkipReason = "too_short"
)

// SkippedPair records a mapped pair that produced no pipe.
type SkippedPair struct {
	Source     string     `json:"source"`
	Target     string     `json:"target"`
	Reason     SkipReason `json:"reason"`
	PathLength float64    `json:"path_length,omitempty"`
}

// Stats summarizes one pipeline run. Width and Height describe the input
// image; Scale is the factor from the working frame back to it.
type Stats struct {
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Scale          float64 `json:"scale"`
	EdgePixels     int     `json:"edge_pixels"`
	SkeletonPixels int     `json:"skeleton_pixels"`
	Vertices       int     `json:"vertices"`
	Junctions      int     `json:"junctions"`
	Endpoints      int     `json:"endpoints"`
	Edges          int     `json:"edges"`
	Networks       int     `json:"networks"`
	Mapped         int     `json:"mapped"`
	Unmapped       int     `json:"unmapped"`
	Pipes          int     `json:"pipes"`
	SkippedPairs   int     `json:"skipped_pairs"`
}

// Metadata describes how a Document was produced.
type Metadata struct {
	Method string `json:"method"`
	RunID  string `json:"run_id"`
}

// Document is the pipeline output: components passed through unmodified
// plus the deterministically discovered pipes.
type Document struct {
	Components []Component         `json:"components"`
	Pipes      []CandidatePipe     `json:"pipes"`
	Unmapped   []UnmappedComponent `json:"unmapped_components"`
	Skipped    []SkippedPair       `json:"skipped_pairs,omitempty"`
	Stats      Stats               `json:"stats"`
	Metadata   Metadata            `json:"metadata"`
}

// DropPixels clears every pipe's pixel trace, which dominates the encoded
// size of large documents.
func (d *Document) DropPixels() {
	for i := range d.Pipes {
		d.Pipes[i].PathPixels = nil
	}
}
