// Package ingest reads component and OCR documents produced by upstream
// tools and validates them against JSON schemas before decoding.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ironsheep/pnid-topology/internal/pnid"
)

// Format names a component document layout.
type Format string

const (
	// FormatAuto picks FormatPNID for objects and FormatList for arrays.
	FormatAuto Format = "auto"
	// FormatPNID is an object with a "components" array, as written by the
	// component locator and by this tool's own output.
	FormatPNID Format = "pnid"
	// FormatList is a bare array of components.
	FormatList Format = "list"
)

// ParseFormat converts a user-supplied name into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatPNID, FormatList:
		return f, nil
	default:
		return "", &pnid.InputError{
			Field:  "components_format",
			Reason: fmt.Sprintf("unknown component format %q (want auto, pnid or list)", s),
		}
	}
}

// componentProps is shared by both component layouts. Only the pnid layout
// lets a label stand in for a missing id.
const componentProps = `"properties": {
		"id":    {"type": "string"},
		"label": {"type": "string"},
		"type":  {"type": "string"},
		"x":     {"type": "number"},
		"y":     {"type": "number"}
	}`

// schemaBase prefixes schema resource URLs. An absolute URL keeps the
// compiler from resolving names against the working directory, which would
// also put host paths into validation messages.
const schemaBase = "mem://pnid/"

func mustCompile(name, src string) *jsonschema.Schema {
	url := schemaBase + name
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("ingest: schema %s: %v", name, err))
	}
	return c.MustCompile(url)
}

var (
	pnidSchema = mustCompile("pnid.schema.json", `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["components"],
	"properties": {
		"components": {"type": "array", "items": {"$ref": "#/$defs/component"}}
	},
	"$defs": {"component": {
		"type": "object",
		"required": ["x", "y"],
		"anyOf": [{"required": ["id"]}, {"required": ["label"]}],
		`+componentProps+`
	}}
}`)

	listSchema = mustCompile("components.schema.json", `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"items": {"$ref": "#/$defs/component"},
	"$defs": {"component": {
		"type": "object",
		"required": ["id", "x", "y"],
		`+componentProps+`
	}}
}`)

	ocrSchema = mustCompile("ocr.schema.json", `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["text"],
		"properties": {
			"text":       {"type": "string"},
			"confidence": {"type": "number"},
			"bbox": {
				"type": "array",
				"minItems": 4,
				"maxItems": 4,
				"items": {
					"type": "array",
					"minItems": 2,
					"maxItems": 2,
					"items": {"type": "number"}
				}
			}
		}
	}
}`)
)

type rawComponent struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Type  string  `json:"type"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

func (r rawComponent) component() pnid.Component {
	id := r.ID
	if id == "" {
		id = r.Label
	}
	return pnid.Component{ID: id, Label: r.Label, Type: r.Type, X: r.X, Y: r.Y}
}

// ReadComponents decodes a component document from r.
func ReadComponents(r io.Reader, format Format) ([]pnid.Component, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read components: %w", err)
	}
	return ParseComponents(data, format)
}

// ParseComponents validates and decodes a component document. In the pnid
// layout a component without an id takes its label as id; the list layout
// requires ids. Duplicate ids are not rejected here;
// the pipeline reports them. Every failure is a *pnid.InputError.
func ParseComponents(data []byte, format Format) ([]pnid.Component, error) {
	doc, err := decodeAny(data)
	if err != nil {
		return nil, componentsError("malformed JSON", err)
	}
	if format == FormatAuto || format == "" {
		if _, isArray := doc.([]any); isArray {
			format = FormatList
		} else {
			format = FormatPNID
		}
	}

	var raws []rawComponent
	switch format {
	case FormatPNID:
		if err := pnidSchema.Validate(doc); err != nil {
			return nil, componentsError("document does not match schema", err)
		}
		var wrapper struct {
			Components []rawComponent `json:"components"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, componentsError("cannot decode", err)
		}
		raws = wrapper.Components
	case FormatList:
		if err := listSchema.Validate(doc); err != nil {
			return nil, componentsError("list does not match schema", err)
		}
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, componentsError("cannot decode", err)
		}
	default:
		return nil, &pnid.InputError{Field: "components_format", Reason: fmt.Sprintf("unknown component format %q", format)}
	}

	out := make([]pnid.Component, len(raws))
	for i, r := range raws {
		out[i] = r.component()
	}
	return out, nil
}

type rawOCRItem struct {
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
	BBox       [][2]float64 `json:"bbox"`
}

// ReadOCR decodes an OCR item list from r.
func ReadOCR(r io.Reader) ([]pnid.OCRItem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OCR items: %w", err)
	}
	return ParseOCR(data)
}

// ParseOCR validates and decodes a JSON array of OCR items. Items without
// a bounding box cannot be placed and are dropped. Every failure is a
// *pnid.InputError.
func ParseOCR(data []byte) ([]pnid.OCRItem, error) {
	doc, err := decodeAny(data)
	if err != nil {
		return nil, ocrError("malformed JSON", err)
	}
	if err := ocrSchema.Validate(doc); err != nil {
		return nil, ocrError("items do not match schema", err)
	}
	var raws []rawOCRItem
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, ocrError("cannot decode", err)
	}

	out := make([]pnid.OCRItem, 0, len(raws))
	for _, r := range raws {
		if len(r.BBox) != 4 {
			continue
		}
		var q pnid.Quad
		for i, p := range r.BBox {
			q[i] = p
		}
		out = append(out, pnid.OCRItem{Text: r.Text, Confidence: r.Confidence, BBox: q})
	}
	return out, nil
}

func componentsError(reason string, err error) error {
	return &pnid.InputError{Field: "components", Reason: reason, Err: err}
}

func ocrError(reason string, err error) error {
	return &pnid.InputError{Field: "ocr", Reason: reason, Err: err}
}

func decodeAny(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
