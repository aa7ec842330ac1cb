package server

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// createBarImageFile writes a 300x80 drawing with one horizontal pipe from
// x=40 to x=260 and returns its path.
func createBarImageFile(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 300, 80))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(40, 38, 261, 43), image.NewUniform(color.Black), image.Point{}, draw.Src)

	path := filepath.Join(t.TempDir(), "sheet.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	paramsJSON, _ := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// toolText extracts and decodes the JSON text content of a tool result.
func toolText(t *testing.T, resp *MCPResponse, into interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v (%v)", resp.Error.Message, resp.Error.Data)
	}
	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", content)
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), into); err != nil {
		t.Fatalf("failed to decode tool text: %v", err)
	}
}

type inferOutput struct {
	Document struct {
		Pipes []struct {
			Source     string        `json:"source"`
			Target     string        `json:"target"`
			Label      string        `json:"label"`
			PathLength float64       `json:"path_length"`
			PathPixels []interface{} `json:"path_pixels"`
		} `json:"pipes"`
		Unmapped []struct {
			ID string `json:"id"`
		} `json:"unmapped_components"`
		Metadata struct {
			Method string `json:"method"`
		} `json:"metadata"`
	} `json:"document"`
	Prompt string `json:"prompt"`
}

func TestHandleToolsCall_InferTopology(t *testing.T) {
	s := newTestServer()
	imgPath := createBarImageFile(t)
	compPath := writeFile(t, "components.json", `{"components": [
		{"id": "P-101", "label": "Pump", "x": 40, "y": 40},
		{"id": "V-7", "label": "Valve", "x": 260, "y": 40}
	]}`)
	ocrPath := writeFile(t, "ocr.json", `[
		{"text": "CW-12", "confidence": 0.9, "bbox": [[140, 22], [160, 22], [160, 30], [140, 30]]}
	]`)

	resp := callTool(t, s, "pnid_infer_topology", map[string]interface{}{
		"image_path":      imgPath,
		"components_path": compPath,
		"ocr_path":        ocrPath,
		"prompt":          true,
	})

	var out inferOutput
	toolText(t, resp, &out)
	if out.Document.Metadata.Method != "skeleton-mapping" {
		t.Errorf("method: got %q", out.Document.Metadata.Method)
	}
	if len(out.Document.Pipes) != 1 {
		t.Fatalf("pipes: got %d, want 1", len(out.Document.Pipes))
	}
	pipe := out.Document.Pipes[0]
	if pipe.Source != "P-101" || pipe.Target != "V-7" || pipe.Label != "CW-12" {
		t.Errorf("pipe: %+v", pipe)
	}
	if len(pipe.PathPixels) != 0 {
		t.Error("pixel traces should be dropped unless requested")
	}
	if !strings.Contains(out.Prompt, "1. P-101 → V-7") {
		t.Errorf("prompt should list the pipe:\n%s", out.Prompt)
	}
}

func TestHandleToolsCall_InferTopology_InlineAndOverrides(t *testing.T) {
	s := newTestServer()
	imgPath := createBarImageFile(t)

	resp := callTool(t, s, "pnid_infer_topology", map[string]interface{}{
		"image_path": imgPath,
		"components": []map[string]interface{}{
			{"id": "A", "x": 40, "y": 40},
			{"id": "B", "x": 260, "y": 40},
		},
		"max_path_length": 50,
		"include_pixels":  true,
	})

	var out inferOutput
	toolText(t, resp, &out)
	if len(out.Document.Pipes) != 0 {
		t.Errorf("max_path_length 50 should reject the 220px pipe, got %d pipes", len(out.Document.Pipes))
	}
	if out.Prompt != "" {
		t.Error("prompt should be omitted unless requested")
	}
}

func TestHandleToolsCall_InferTopology_Errors(t *testing.T) {
	s := newTestServer()
	imgPath := createBarImageFile(t)
	garbagePath := filepath.Join(t.TempDir(), "garbage.png")
	if err := os.WriteFile(garbagePath, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing image", map[string]interface{}{"components": []interface{}{}}, "image_path is required"},
		{"missing components", map[string]interface{}{"image_path": imgPath}, "components or components_path is required"},
		{"duplicate ids", map[string]interface{}{
			"image_path": imgPath,
			"components": []map[string]interface{}{{"id": "A", "x": 1, "y": 1}, {"id": "A", "x": 2, "y": 2}},
		}, "invalid components[1]"},
		{"duplicate ids before ocr file", map[string]interface{}{
			"image_path": imgPath,
			"components": []map[string]interface{}{{"id": "A", "x": 1, "y": 1}, {"id": "A", "x": 2, "y": 2}},
			"ocr_path":   "/nonexistent/ocr.json",
		}, "invalid components[1]"},
		{"duplicate ids before tesseract", map[string]interface{}{
			"image_path":    imgPath,
			"components":    []map[string]interface{}{{"id": "A", "x": 1, "y": 1}, {"id": "A", "x": 2, "y": 2}},
			"ocr_tesseract": true,
		}, "invalid components[1]"},
		{"undecodable image", map[string]interface{}{
			"image_path": garbagePath,
			"components": []interface{}{},
		}, "invalid image: cannot decode"},
		{"bad format", map[string]interface{}{
			"image_path":        imgPath,
			"components":        []interface{}{},
			"components_format": "xml",
		}, "unknown component format"},
		{"two ocr sources", map[string]interface{}{
			"image_path":    imgPath,
			"components":    []interface{}{},
			"ocr_path":      "/tmp/x.json",
			"ocr_tesseract": true,
		}, "at most one"},
		{"negative tolerance", map[string]interface{}{
			"image_path":     imgPath,
			"components":     []interface{}{},
			"snap_tolerance": -5,
		}, "invalid config"},
		{"missing file", map[string]interface{}{
			"image_path": "/nonexistent/sheet.png",
			"components": []interface{}{},
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "pnid_infer_topology", tt.args)
			if resp.Error == nil {
				t.Fatal("Expected error")
			}
			if resp.Error.Code != CodeToolFailure {
				t.Errorf("Error code: got %d, want %d", resp.Error.Code, CodeToolFailure)
			}
			if data, _ := resp.Error.Data.(string); !strings.Contains(data, tt.want) {
				t.Errorf("Error data %q should contain %q", data, tt.want)
			}
		})
	}
}

func TestHandleToolsCall_SkeletonGraph(t *testing.T) {
	s := newTestServer()
	imgPath := createBarImageFile(t)

	resp := callTool(t, s, "pnid_skeleton_graph", map[string]interface{}{
		"image_path":    imgPath,
		"include_edges": true,
	})

	var out struct {
		Stats struct {
			Vertices  int `json:"vertices"`
			Endpoints int `json:"endpoints"`
			Edges     int `json:"edges"`
		} `json:"stats"`
		Vertices []struct {
			Kind   string `json:"kind"`
			Degree int    `json:"degree"`
		} `json:"vertices"`
		Edges []struct {
			Length float64 `json:"length"`
		} `json:"edges"`
	}
	toolText(t, resp, &out)
	if out.Stats.Vertices != len(out.Vertices) || out.Stats.Edges != len(out.Edges) {
		t.Errorf("stats disagree with lists: %+v", out.Stats)
	}
	if out.Stats.Endpoints < 2 {
		t.Errorf("a bar should have at least two endpoints, got %d", out.Stats.Endpoints)
	}
	for _, v := range out.Vertices {
		if v.Kind != "endpoint" && v.Kind != "junction" {
			t.Errorf("unexpected vertex kind %q", v.Kind)
		}
	}
	for _, e := range out.Edges {
		if e.Length <= 0 {
			t.Errorf("edge length %g should be positive", e.Length)
		}
	}
}

func TestHandleToolsCall_OCRItems_MissingImage(t *testing.T) {
	resp := callTool(t, newTestServer(), "pnid_ocr_items", map[string]interface{}{})
	if resp.Error == nil || resp.Error.Code != CodeToolFailure {
		t.Fatalf("expected a tool error, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	resp := callTool(t, newTestServer(), "image_load", map[string]interface{}{})
	if resp.Error == nil {
		t.Fatal("Expected error for unknown tool")
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "unknown tool") {
		t.Errorf("Error data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer()
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("expected invalid params, got %+v", resp.Error)
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := newTestServer()
	for _, name := range []string{"pnid_infer_topology", "pnid_skeleton_graph", "pnid_ocr_items"} {
		if _, err := s.executeTool(context.Background(), name, json.RawMessage(`{invalid`)); err == nil {
			t.Errorf("%s: expected error for invalid JSON", name)
		}
	}
}

func TestSummarizeGraph_ScalesToOriginalFrame(t *testing.T) {
	s := newTestServer()
	img := image.NewRGBA(image.Rect(0, 0, 300, 80))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(40, 38, 261, 43), image.NewUniform(color.Black), image.Point{}, draw.Src)

	gr, err := s.pipeline.Graph(context.Background(), img)
	if err != nil {
		t.Fatal(err)
	}
	stats := gr.Stats
	stats.Scale = 2
	res := summarizeGraph(gr.Graph, stats, true)
	for i, v := range gr.Graph.Vertices {
		if res.Vertices[i].X != float64(v.Pos.X)*2 {
			t.Errorf("vertex %d: x %g, want %d", i, res.Vertices[i].X, v.Pos.X*2)
		}
	}
	for i, e := range gr.Graph.Edges {
		if res.Edges[i].Length != e.Length*2 {
			t.Errorf("edge %d: length %g, want %g", i, res.Edges[i].Length, e.Length*2)
		}
	}
}
