// Package pipeline runs the connectivity stages in order: edge map,
// skeleton, graph, snapping, path resolution and label annotation.
//
// Inputs are validated up front and rejected with an *InputError. After
// that the run is best-effort: components that cannot be snapped and pairs
// with no admissible path are recorded in the output, never returned as
// errors.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/pnid-topology/internal/annotate"
	"github.com/ironsheep/pnid-topology/internal/config"
	"github.com/ironsheep/pnid-topology/internal/imaging"
	"github.com/ironsheep/pnid-topology/internal/metrics"
	"github.com/ironsheep/pnid-topology/internal/pnid"
	"github.com/ironsheep/pnid-topology/internal/route"
	"github.com/ironsheep/pnid-topology/internal/skeleton"
	"github.com/ironsheep/pnid-topology/internal/snap"
	"github.com/ironsheep/pnid-topology/internal/topology"
)

// Method is recorded in every document's metadata.
const Method = "skeleton-mapping"

// Pipeline holds the configuration shared by many runs. It keeps no
// per-run state and is safe for concurrent use.
type Pipeline struct {
	cfg     config.Config
	metrics *metrics.Metrics
}

// New returns a pipeline using cfg. m may be nil.
func New(cfg config.Config, m *metrics.Metrics) *Pipeline {
	return &Pipeline{cfg: cfg, metrics: m}
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() config.Config {
	return p.cfg
}

// With returns a pipeline using cfg that records into the same metrics.
func (p *Pipeline) With(cfg config.Config) *Pipeline {
	return &Pipeline{cfg: cfg, metrics: p.metrics}
}

// GraphResult is the output of the geometric stages alone.
type GraphResult struct {
	Graph *topology.Graph
	Stats pnid.Stats
}

// Graph runs the edge map, skeleton and graph stages on img. Vertex
// positions are in the working frame; Stats.Scale maps them back.
func (p *Pipeline) Graph(ctx context.Context, img image.Image) (*GraphResult, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, &InputError{Field: "config", Reason: "validation failed", Err: err}
	}
	if err := checkImage(img); err != nil {
		return nil, err
	}
	return p.buildGraph(ctx, img)
}

// Run executes every stage and assembles the output document. Components
// are passed through unmodified; OCR items may be nil.
func (p *Pipeline) Run(ctx context.Context, img image.Image, components []pnid.Component, items []pnid.OCRItem) (*pnid.Document, error) {
	doc, err := p.run(ctx, img, components, items)
	switch {
	case err == nil:
		p.metrics.RecordRun(metrics.StatusOK)
	case IsInputError(err):
		p.metrics.RecordRun(metrics.StatusInvalid)
	default:
		p.metrics.RecordRun(metrics.StatusError)
	}
	return doc, err
}

// Reject records a run refused before Run was reached, such as an upload
// whose image or component list failed to decode. Input errors count as
// invalid input; anything else as a failed run. err is returned unchanged.
func (p *Pipeline) Reject(err error) error {
	if IsInputError(err) {
		p.metrics.RecordRun(metrics.StatusInvalid)
	} else {
		p.metrics.RecordRun(metrics.StatusError)
	}
	return err
}

func (p *Pipeline) run(ctx context.Context, img image.Image, components []pnid.Component, items []pnid.OCRItem) (*pnid.Document, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, &InputError{Field: "config", Reason: "validation failed", Err: err}
	}
	if err := checkImage(img); err != nil {
		return nil, err
	}
	if err := ValidateComponents(components); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	started := time.Now()

	gr, err := p.buildGraph(ctx, img)
	if err != nil {
		return nil, err
	}
	g, stats := gr.Graph, gr.Stats
	f := stats.Scale

	// Snapping and routing work in the working frame.
	done := p.stage("snap")
	working := make([]pnid.Component, len(components))
	for i, c := range components {
		c.X /= f
		c.Y /= f
		working[i] = c
	}
	mapping := snap.Snap(working, g, p.cfg.SnapTolerance/f)
	done()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done = p.stage("route")
	opts := p.cfg.RouteOptions()
	opts.MaxPathLength /= f
	opts.MinPathLength /= f
	res, err := route.Resolve(ctx, g, mapping, opts)
	done()
	if err != nil {
		return nil, err
	}

	pipes, skipped, unmapped := toOriginalFrame(res, mapping.Unmapped, f)

	// Annotation works in the original frame, where OCR boxes live.
	done = p.stage("annotate")
	annotate.Annotate(pipes, items, p.cfg.AnnotateOptions())
	done()

	stats.Mapped = len(mapping.Assigned)
	stats.Unmapped = len(unmapped)
	stats.Pipes = len(pipes)
	stats.SkippedPairs = len(skipped)

	reasons := make(map[string]int)
	for _, s := range skipped {
		reasons[string(s.Reason)]++
	}
	p.metrics.RecordResult(len(pipes), len(unmapped), reasons)

	log.Printf("run %s: %d vertices, %d edges, %d/%d components mapped, %d pipes in %s",
		runID, stats.Vertices, stats.Edges, stats.Mapped, len(components), stats.Pipes,
		time.Since(started).Round(time.Millisecond))

	return &pnid.Document{
		Components: append([]pnid.Component{}, components...),
		Pipes:      pipes,
		Unmapped:   unmapped,
		Skipped:    skipped,
		Stats:      stats,
		Metadata:   pnid.Metadata{Method: Method, RunID: runID},
	}, nil
}

func (p *Pipeline) buildGraph(ctx context.Context, img image.Image) (*GraphResult, error) {
	b := img.Bounds()
	stats := pnid.Stats{Width: b.Dx(), Height: b.Dy()}

	done := p.stage("load")
	working, f := imaging.FitWithin(img, p.cfg.MaxImageDimension)
	raster, err := imaging.NewRasterImage(working)
	done()
	if err != nil {
		return nil, &InputError{Field: "image", Reason: "cannot be converted to grayscale", Err: err}
	}
	stats.Scale = f
	p.metrics.RecordImage(raster.Width(), raster.Height())

	done = p.stage("edges")
	edges, err := imaging.BuildEdgeMask(raster, p.cfg.EdgeOptions())
	done()
	if err != nil {
		return nil, fmt.Errorf("failed to build edge map: %w", err)
	}
	stats.EdgePixels = edges.Count()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done = p.stage("skeleton")
	skel := skeleton.Skeletonize(edges, p.cfg.SkeletonOptions())
	done()
	stats.SkeletonPixels = skel.Count()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done = p.stage("graph")
	g := topology.Build(skel)
	done()

	stats.Vertices = len(g.Vertices)
	stats.Junctions = g.Count(topology.Junction)
	stats.Endpoints = g.Count(topology.Endpoint)
	stats.Edges = len(g.Edges)
	stats.Networks = g.Networks()
	p.metrics.RecordGraph(stats.Junctions, stats.Endpoints)

	return &GraphResult{Graph: g, Stats: stats}, nil
}

// stage times a stage for metrics and, at debug level, the log.
func (p *Pipeline) stage(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		p.metrics.ObserveStage(name, d)
		if p.cfg.Debug() {
			log.Printf("stage %s took %s", name, d)
		}
	}
}

// toOriginalFrame scales resolver output by f. Slices are never nil so
// they encode as empty JSON arrays.
func toOriginalFrame(res *route.Result, unmapped []pnid.UnmappedComponent, f float64) ([]pnid.CandidatePipe, []pnid.SkippedPair, []pnid.UnmappedComponent) {
	pipes := append([]pnid.CandidatePipe{}, res.Pipes...)
	skipped := append([]pnid.SkippedPair{}, res.Skipped...)
	um := append([]pnid.UnmappedComponent{}, unmapped...)
	if f == 1 {
		return pipes, skipped, um
	}

	for i := range pipes {
		pp := &pipes[i]
		pp.X *= f
		pp.Y *= f
		pp.PathLength *= f
		pp.Description = route.Describe(pp.PathLength)
		scaled := make([]pnid.Point, len(pp.PathPixels))
		for k, q := range pp.PathPixels {
			scaled[k] = pnid.Point{
				X: int(math.Round(float64(q.X) * f)),
				Y: int(math.Round(float64(q.Y) * f)),
			}
		}
		pp.PathPixels = scaled
	}
	for i := range skipped {
		skipped[i].PathLength *= f
	}
	for i := range um {
		if um[i].NearestDistance >= 0 {
			um[i].NearestDistance *= f
		}
	}
	return pipes, skipped, um
}
