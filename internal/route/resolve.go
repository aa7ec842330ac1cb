// Package route resolves shortest skeleton paths between snapped
// components and turns them into candidate pipes.
package route

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/pnid-topology/internal/pnid"
	"github.com/ironsheep/pnid-topology/internal/snap"
	"github.com/ironsheep/pnid-topology/internal/topology"
)

// Options bounds which resolved paths become pipes.
type Options struct {
	// MaxPathLength rejects paths longer than this many pixels.
	MaxPathLength float64

	// MinPathLength rejects paths of this length or shorter; such pairs
	// snapped to the same or adjacent vertices.
	MinPathLength float64

	// Workers caps concurrent shortest-path searches. Zero or less uses
	// GOMAXPROCS.
	Workers int
}

// DefaultOptions returns the lengths tuned for full-sheet P&ID scans.
func DefaultOptions() Options {
	return Options{
		MaxPathLength: 6000,
		MinPathLength: 5,
	}
}

// Validate checks that the length window is usable.
func (o Options) Validate() error {
	if o.MaxPathLength <= 0 {
		return fmt.Errorf("max path length must be positive, got %g", o.MaxPathLength)
	}
	if o.MinPathLength < 0 || o.MinPathLength >= o.MaxPathLength {
		return fmt.Errorf("min path length %g must be in [0, %g)", o.MinPathLength, o.MaxPathLength)
	}
	return nil
}

// Result holds emitted pipes and the pairs that were rejected.
type Result struct {
	Pipes   []pnid.CandidatePipe
	Skipped []pnid.SkippedPair
}

// Resolve computes one candidate pipe per unordered pair of mapped
// components whose shortest path length L satisfies
// MinPathLength < L <= MaxPathLength.
//
// Pairs are taken in mapping order (i < j). One shortest-path tree is grown
// per source component and serves all of its later partners. Trees are
// built concurrently, but results are collected per source and flattened
// in pair order, so the output does not depend on scheduling.
//
// The only error is cancellation of ctx.
func Resolve(ctx context.Context, g *topology.Graph, m *snap.Mapping, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	assigned := m.Assigned
	n := len(assigned)
	if n < 2 {
		return &Result{}, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	slots := make([]Result, n-1)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := 0; i < n-1; i++ {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			slots[i] = resolveFrom(g, assigned, i, opts)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := &Result{}
	for _, s := range slots {
		out.Pipes = append(out.Pipes, s.Pipes...)
		out.Skipped = append(out.Skipped, s.Skipped...)
	}
	return out, nil
}

// resolveFrom handles all pairs (i, j) with j > i.
func resolveFrom(g *topology.Graph, assigned []snap.Assignment, i int, opts Options) Result {
	var res Result
	src := assigned[i]
	tree := ShortestFrom(g, src.Vertex)

	for _, dst := range assigned[i+1:] {
		pixels, length, ok := tree.Path(dst.Vertex)
		switch {
		case !ok:
			res.Skipped = append(res.Skipped, pnid.SkippedPair{
				Source: src.Component.ID, Target: dst.Component.ID, Reason: pnid.SkipNoPath,
			})
		case length > opts.MaxPathLength:
			res.Skipped = append(res.Skipped, pnid.SkippedPair{
				Source: src.Component.ID, Target: dst.Component.ID, Reason: pnid.SkipTooLong, PathLength: length,
			})
		case length <= opts.MinPathLength:
			res.Skipped = append(res.Skipped, pnid.SkippedPair{
				Source: src.Component.ID, Target: dst.Component.ID, Reason: pnid.SkipTooShort, PathLength: length,
			})
		default:
			res.Pipes = append(res.Pipes, newPipe(src.Component.ID, dst.Component.ID, pixels, length))
		}
	}
	return res
}

func newPipe(source, target string, pixels []pnid.Point, length float64) pnid.CandidatePipe {
	mid := pixels[len(pixels)/2]
	return pnid.CandidatePipe{
		Source:      source,
		Target:      target,
		Description: Describe(length),
		X:           float64(mid.X),
		Y:           float64(mid.Y),
		PathLength:  length,
		PathPixels:  pixels,
	}
}

// Describe returns the geometric description every new pipe starts with.
func Describe(length float64) string {
	return fmt.Sprintf("Geometric path via skeleton, length %.1fpx", length)
}
