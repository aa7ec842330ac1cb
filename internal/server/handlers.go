package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"

	"github.com/ironsheep/pnid-topology/internal/ingest"
	"github.com/ironsheep/pnid-topology/internal/ocr"
	"github.com/ironsheep/pnid-topology/internal/pipeline"
	"github.com/ironsheep/pnid-topology/internal/pnid"
	"github.com/ironsheep/pnid-topology/internal/prompt"
	"github.com/ironsheep/pnid-topology/internal/topology"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "pnid_infer_topology").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code
// CodeToolFailure.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return replyError(req.ID, CodeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return replyError(req.ID, CodeToolFailure, "Tool execution failed", err.Error())
	}

	return reply(req.ID, map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": mustMarshalJSON(result)},
		},
	})
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "pnid_infer_topology":
		return s.handleInferTopology(ctx, args)
	case "pnid_skeleton_graph":
		return s.handleSkeletonGraph(ctx, args)
	case "pnid_ocr_items":
		return s.handleOCRItems(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func (s *Server) loadImage(path string) (image.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("invalid arguments: image_path is required")
	}
	return s.cache.Load(path)
}

// === Topology ===

type inferTopologyArgs struct {
	ImagePath        string          `json:"image_path"`
	ComponentsPath   string          `json:"components_path"`
	Components       json.RawMessage `json:"components"`
	ComponentsFormat string          `json:"components_format"`
	OCRPath          string          `json:"ocr_path"`
	OCRItems         json.RawMessage `json:"ocr_items"`
	OCRTesseract     bool            `json:"ocr_tesseract"`
	SnapTolerance    *float64        `json:"snap_tolerance"`
	MaxPathLength    *float64        `json:"max_path_length"`
	LabelProximity   *float64        `json:"label_proximity"`
	IncludePixels    bool            `json:"include_pixels"`
	Prompt           bool            `json:"prompt"`
	TopN             int             `json:"top_n"`
}

type inferTopologyResult struct {
	Document *pnid.Document `json:"document"`
	Prompt   string         `json:"prompt,omitempty"`
}

func (s *Server) handleInferTopology(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a inferTopologyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	img, err := s.loadImage(a.ImagePath)
	if err != nil {
		return nil, s.pipeline.Reject(err)
	}
	components, err := a.components()
	if err != nil {
		return nil, s.pipeline.Reject(err)
	}
	if err := pipeline.ValidateComponents(components); err != nil {
		return nil, s.pipeline.Reject(err)
	}

	cfg := s.pipeline.Config()
	if a.SnapTolerance != nil {
		cfg.SnapTolerance = *a.SnapTolerance
	}
	if a.MaxPathLength != nil {
		cfg.MaxPathLength = *a.MaxPathLength
	}
	if a.LabelProximity != nil {
		cfg.LabelProximity = *a.LabelProximity
	}

	items, err := a.ocrItems(ctx, img, cfg.OCRLanguage, cfg.OCRMinConfidence)
	if err != nil {
		return nil, s.pipeline.Reject(err)
	}

	doc, err := s.pipeline.With(cfg).Run(ctx, img, components, items)
	if err != nil {
		return nil, err
	}
	if !a.IncludePixels {
		doc.DropPixels()
	}

	res := inferTopologyResult{Document: doc}
	if a.Prompt {
		res.Prompt = prompt.Format(doc, a.TopN)
	}
	return res, nil
}

func (a inferTopologyArgs) components() ([]pnid.Component, error) {
	format, err := ingest.ParseFormat(a.ComponentsFormat)
	if err != nil {
		return nil, err
	}
	switch {
	case len(a.Components) > 0 && a.ComponentsPath != "":
		return nil, fmt.Errorf("invalid arguments: give components or components_path, not both")
	case len(a.Components) > 0:
		return ingest.ParseComponents(a.Components, format)
	case a.ComponentsPath != "":
		f, err := os.Open(a.ComponentsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open components: %w", err)
		}
		defer f.Close()
		return ingest.ReadComponents(f, format)
	default:
		return nil, fmt.Errorf("invalid arguments: components or components_path is required")
	}
}

func (a inferTopologyArgs) ocrItems(ctx context.Context, img image.Image, language string, minConfidence float64) ([]pnid.OCRItem, error) {
	sources := 0
	for _, set := range []bool{len(a.OCRItems) > 0, a.OCRPath != "", a.OCRTesseract} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return nil, fmt.Errorf("invalid arguments: give at most one of ocr_items, ocr_path and ocr_tesseract")
	}

	switch {
	case len(a.OCRItems) > 0:
		return ingest.ParseOCR(a.OCRItems)
	case a.OCRPath != "":
		f, err := os.Open(a.OCRPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open OCR items: %w", err)
		}
		defer f.Close()
		return ingest.ReadOCR(f)
	case a.OCRTesseract:
		return ocr.Extract(ctx, img, ocr.Options{Language: language, MinConfidence: minConfidence})
	default:
		return nil, nil
	}
}

// === Skeleton graph ===

type skeletonGraphArgs struct {
	ImagePath    string `json:"image_path"`
	IncludeEdges bool   `json:"include_edges"`
}

type graphVertex struct {
	ID     int     `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Kind   string  `json:"kind"`
	Degree int     `json:"degree"`
}

type graphEdge struct {
	A      int     `json:"a"`
	B      int     `json:"b"`
	Length float64 `json:"length"`
}

type skeletonGraphResult struct {
	Stats    pnid.Stats    `json:"stats"`
	Vertices []graphVertex `json:"vertices"`
	Edges    []graphEdge   `json:"edges,omitempty"`
}

func (s *Server) handleSkeletonGraph(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a skeletonGraphArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.ImagePath)
	if err != nil {
		return nil, err
	}

	gr, err := s.pipeline.Graph(ctx, img)
	if err != nil {
		return nil, err
	}
	return summarizeGraph(gr.Graph, gr.Stats, a.IncludeEdges), nil
}

// summarizeGraph reports positions and lengths in the original image frame.
func summarizeGraph(g *topology.Graph, stats pnid.Stats, withEdges bool) skeletonGraphResult {
	f := stats.Scale
	if f == 0 {
		f = 1
	}
	res := skeletonGraphResult{Stats: stats, Vertices: make([]graphVertex, len(g.Vertices))}
	for i, v := range g.Vertices {
		res.Vertices[i] = graphVertex{
			ID:     v.ID,
			X:      float64(v.Pos.X) * f,
			Y:      float64(v.Pos.Y) * f,
			Kind:   v.Kind.String(),
			Degree: g.Degree(v.ID),
		}
	}
	if withEdges {
		res.Edges = make([]graphEdge, len(g.Edges))
		for i, e := range g.Edges {
			res.Edges[i] = graphEdge{A: e.A, B: e.B, Length: e.Length * f}
		}
	}
	return res
}

// === OCR ===

type ocrItemsArgs struct {
	ImagePath     string   `json:"image_path"`
	Language      string   `json:"language"`
	MinConfidence *float64 `json:"min_confidence"`
	Region        *struct {
		X1 int `json:"x1"`
		Y1 int `json:"y1"`
		X2 int `json:"x2"`
		Y2 int `json:"y2"`
	} `json:"region"`
	Scale float64 `json:"scale"`
}

func (s *Server) handleOCRItems(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a ocrItemsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.ImagePath)
	if err != nil {
		return nil, err
	}

	cfg := s.pipeline.Config()
	opts := ocr.Options{
		Language:      cfg.OCRLanguage,
		MinConfidence: cfg.OCRMinConfidence,
		Scale:         a.Scale,
	}
	if a.Language != "" {
		opts.Language = a.Language
	}
	if a.MinConfidence != nil {
		opts.MinConfidence = *a.MinConfidence
	}
	if a.Region != nil {
		opts.Region = image.Rect(a.Region.X1, a.Region.Y1, a.Region.X2, a.Region.Y2)
	}

	items, err := ocr.Extract(ctx, img, opts)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"count": len(items),
		"items": items,
	}, nil
}
