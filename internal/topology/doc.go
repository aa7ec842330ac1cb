// Package topology turns a one-pixel-wide skeleton into a compact planar
// graph.
//
// Vertices sit at skeleton endpoints and junctions; edges carry the traced
// pixel chain between two vertices together with its Euclidean length. The
// graph is built once per pipeline run and only read afterwards, so any
// number of goroutines may query it concurrently.
//
// # Simplifications
//
// The graph is simple, not a multigraph. If two separate branches connect
// the same pair of vertices, only the first one traced survives. Closed
// loops with no junction on them carry no vertex and are dropped, as are
// isolated pixels.
package topology
