// Package server exposes the connectivity pipeline as MCP (Model Context
// Protocol) tools over stdio.
//
// The server speaks JSON-RPC 2.0, one request per line on stdin and one
// response per line on stdout. Supported methods are initialize,
// notifications/initialized, tools/list, tools/call and ping.
//
// # Tools
//
//   - pnid_infer_topology: run every stage on a drawing and return the
//     document of candidate pipes, optionally with an annotation prompt
//   - pnid_skeleton_graph: return the junctions, endpoints and branches of
//     the drawing's skeleton
//   - pnid_ocr_items: recognize text with Tesseract and return OCR items in
//     the shape pnid_infer_topology accepts
//
// Drawings are loaded through an LRU cache keyed by path, so repeated calls
// on one sheet decode it once.
//
// # Errors
//
// A line that is not JSON yields CodeParseError with a null id and an
// unknown method CodeMethodNotFound. Unparseable tool parameters yield
// CodeInvalidParams. A failing tool yields CodeToolFailure with the Go error
// string as data; invalid input is prefixed "invalid" so clients can tell it
// from internal failures.
package server
