//go:build !cgo

package ocr

import (
	"context"
	"image"

	"github.com/ironsheep/pnid-topology/internal/pnid"
)

// Available reports whether Tesseract can be used by this binary.
func Available() bool { return false }

// Version returns the linked Tesseract version, empty without cgo.
func Version() string { return "" }

// Extract always fails with ErrUnavailable in builds without cgo.
func Extract(ctx context.Context, img image.Image, opts Options) ([]pnid.OCRItem, error) {
	return nil, ErrUnavailable
}

// ExtractFile always fails with ErrUnavailable in builds without cgo.
func ExtractFile(ctx context.Context, path string, opts Options) ([]pnid.OCRItem, error) {
	return nil, ErrUnavailable
}
