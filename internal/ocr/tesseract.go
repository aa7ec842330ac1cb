//go:build cgo

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/pnid-topology/internal/pnid"
)

// Available reports whether Tesseract can be used by this binary.
func Available() bool {
	return Version() != ""
}

// Version returns the linked Tesseract version.
func Version() string {
	return gosseract.Version()
}

// Extract recognizes words in img and returns them as OCR items in
// full-image coordinates.
//
// Tesseract itself cannot be interrupted, so ctx is only checked before the
// engine starts.
func Extract(ctx context.Context, img image.Image, opts Options) ([]pnid.OCRItem, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	src, offset, scale, err := prepare(img, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words, err := recognize(buf.Bytes(), opts.language())
	if err != nil {
		return nil, err
	}
	return ToItems(words, offset, scale, opts.MinConfidence), nil
}

// ExtractFile recognizes words in the image file at path.
func ExtractFile(ctx context.Context, path string, opts Options) ([]pnid.OCRItem, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !opts.Region.Empty() {
		return nil, fmt.Errorf("region OCR needs a decoded image; use Extract")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(opts.language()); err != nil {
		return nil, fmt.Errorf("failed to set OCR language %q: %w", opts.language(), err)
	}
	if err := client.SetImage(path); err != nil {
		return nil, fmt.Errorf("failed to load image for OCR: %w", err)
	}
	words, err := wordBoxes(client)
	if err != nil {
		return nil, err
	}
	return ToItems(words, image.Point{}, 1, opts.MinConfidence), nil
}

func recognize(data []byte, language string) ([]Word, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set OCR language %q: %w", language, err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to load image for OCR: %w", err)
	}
	return wordBoxes(client)
}

func wordBoxes(client *gosseract.Client) ([]Word, error) {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}
	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		words = append(words, Word{
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
			Box:        box.Box,
		})
	}
	return words, nil
}
