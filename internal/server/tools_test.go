package server

import (
	"context"
	"encoding/json"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	want := []string{"pnid_infer_topology", "pnid_skeleton_graph", "pnid_ocr_items"}
	if len(tools) != len(want) {
		t.Fatalf("got %d tools, want %d", len(tools), len(want))
	}
	for i, name := range want {
		if tools[i].Name != name {
			t.Errorf("tool %d: got %s, want %s", i, tools[i].Name, name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Description should not be empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema.type: got %v, want object", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema should have properties")
			}
			required, ok := tool.InputSchema["required"].([]string)
			if !ok {
				t.Fatal("InputSchema should have required list")
			}
			for _, r := range required {
				if _, ok := props[r]; !ok {
					t.Errorf("required property %q is not defined", r)
				}
			}
			if _, ok := props["image_path"]; !ok {
				t.Error("every tool takes image_path")
			}
		})
	}
}

func TestToolDefinitions_Marshal(t *testing.T) {
	data, err := json.Marshal(GetToolDefinitions())
	if err != nil {
		t.Fatalf("Failed to marshal tools: %v", err)
	}
	var decoded []map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal tools: %v", err)
	}
	for _, tool := range decoded {
		if _, ok := tool["inputSchema"]; !ok {
			t.Errorf("tool %v should encode inputSchema", tool["name"])
		}
	}
}

func TestToolDefinitions_InferOptions(t *testing.T) {
	infer := GetToolDefinitions()[0]
	props := infer.InputSchema["properties"].(map[string]interface{})
	for _, name := range []string{
		"components_path", "components", "components_format",
		"ocr_path", "ocr_items", "ocr_tesseract",
		"snap_tolerance", "max_path_length", "label_proximity",
		"include_pixels", "prompt", "top_n",
	} {
		if _, ok := props[name]; !ok {
			t.Errorf("pnid_infer_topology should accept %s", name)
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer()
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 7, Method: "tools/list"})

	if resp.ID != 7 {
		t.Errorf("ID: got %v, want 7", resp.ID)
	}
	result := resp.Result.(map[string]interface{})
	if tools := result["tools"].([]Tool); len(tools) != 3 {
		t.Errorf("got %d tools, want 3", len(tools))
	}
}
