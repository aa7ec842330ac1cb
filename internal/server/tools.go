package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var imagePathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the P&ID drawing (PNG, JPEG, GIF, BMP, TIFF or WebP)",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name: "pnid_infer_topology",
			Description: "Infer candidate pipes between located components of a P&ID drawing. " +
				"The drawing is skeletonized, components are snapped to skeleton junctions and endpoints, " +
				"and every pair joined by a short enough path becomes a pipe with its length and midpoint. " +
				"Nearby OCR text is attached as a label. Topology never depends on OCR.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_path": imagePathProperty,
					"components_path": map[string]interface{}{
						"type":        "string",
						"description": "Path to a components JSON document. Use this or components.",
					},
					"components": map[string]interface{}{
						"description": "Inline components: an array of {id, x, y} or an object with a components array",
					},
					"components_format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"auto", "pnid", "list"},
						"description": "Layout of the components document. Default auto",
						"default":     "auto",
					},
					"ocr_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to an OCR items JSON array of {text, confidence, bbox}",
					},
					"ocr_items": map[string]interface{}{
						"type":        "array",
						"description": "Optional inline OCR items",
					},
					"ocr_tesseract": map[string]interface{}{
						"type":        "boolean",
						"description": "Run Tesseract on the drawing to obtain OCR items. Default false",
						"default":     false,
					},
					"snap_tolerance": map[string]interface{}{
						"type":        "number",
						"description": "Largest component-to-vertex distance in pixels. Default from configuration (80)",
					},
					"max_path_length": map[string]interface{}{
						"type":        "number",
						"description": "Longest accepted pipe in pixels. Default from configuration (6000)",
					},
					"label_proximity": map[string]interface{}{
						"type":        "number",
						"description": "Largest OCR-to-midpoint distance in pixels. Default from configuration (40)",
					},
					"include_pixels": map[string]interface{}{
						"type":        "boolean",
						"description": "Include each pipe's full pixel trace. Default false",
						"default":     false,
					},
					"prompt": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return a prompt asking a language model to label the pipes. Default false",
						"default":     false,
					},
					"top_n": map[string]interface{}{
						"type":        "integer",
						"description": "Number of longest pipes listed in the prompt. Default 10",
						"default":     10,
					},
				},
				"required": []string{"image_path"},
			},
		},
		{
			Name: "pnid_skeleton_graph",
			Description: "Return the skeleton graph of a drawing: junction and endpoint vertices with degrees, " +
				"and optionally the branches between them with their lengths. Useful for choosing a snap tolerance.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_path": imagePathProperty,
					"include_edges": map[string]interface{}{
						"type":        "boolean",
						"description": "Include branches between vertices. Default false",
						"default":     false,
					},
				},
				"required": []string{"image_path"},
			},
		},
		{
			Name: "pnid_ocr_items",
			Description: "Recognize words on a drawing with Tesseract and return them as OCR items " +
				"(text, confidence, four-corner bbox) ready to pass to pnid_infer_topology.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_path": imagePathProperty,
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code. Default eng",
						"default":     "eng",
					},
					"min_confidence": map[string]interface{}{
						"type":        "number",
						"description": "Drop words below this confidence (0-1). Default from configuration (0.3)",
					},
					"region": map[string]interface{}{
						"type":        "object",
						"description": "Optional rectangle to recognize; boxes are still reported in full-image coordinates",
						"properties": map[string]interface{}{
							"x1": map[string]interface{}{"type": "integer"},
							"y1": map[string]interface{}{"type": "integer"},
							"x2": map[string]interface{}{"type": "integer"},
							"y2": map[string]interface{}{"type": "integer"},
						},
						"required": []string{"x1", "y1", "x2", "y2"},
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Enlarge the region before recognition (e.g., 2.0). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"image_path"},
			},
		},
	}
}

func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return reply(req.ID, map[string]interface{}{"tools": GetToolDefinitions()})
}
