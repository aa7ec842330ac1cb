// Package ocr turns Tesseract word boxes into the text items the label
// annotator consumes.
//
// Recognition uses the Tesseract engine through gosseract/v2 and therefore
// needs cgo and an installed Tesseract with language data:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Builds without cgo still compile; Extract then returns ErrUnavailable and
// callers are expected to supply OCR items from another source.
//
// OCR never influences topology. Low-confidence words are dropped before
// they reach the annotator, and every returned box is expressed in the
// coordinates of the full image even when only a region was recognized.
package ocr
