package ocr

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/ironsheep/pnid-topology/internal/imaging"
	"github.com/ironsheep/pnid-topology/internal/pnid"
)

// ErrUnavailable is returned when the binary was built without Tesseract
// support.
var ErrUnavailable = errors.New("ocr: tesseract support not compiled in (build with cgo)")

// DefaultLanguage is the Tesseract language code used when none is given.
const DefaultLanguage = "eng"

// Options controls a recognition run.
type Options struct {
	// Language is a Tesseract language code such as "eng" or "deu".
	Language string

	// MinConfidence drops words scoring below it, on a 0..1 scale.
	MinConfidence float64

	// Region restricts recognition to part of the image. The zero rectangle
	// means the whole image.
	Region image.Rectangle

	// Scale enlarges the region before recognition. Small label text is
	// read more reliably at 2-3x. Values <= 1 keep the native resolution.
	Scale float64
}

func (o Options) language() string {
	if o.Language == "" {
		return DefaultLanguage
	}
	return o.Language
}

// Validate checks the option values.
func (o Options) Validate() error {
	if o.MinConfidence < 0 || o.MinConfidence > 1 {
		return fmt.Errorf("min confidence %g outside [0,1]", o.MinConfidence)
	}
	if o.Scale < 0 {
		return fmt.Errorf("scale %g is negative", o.Scale)
	}
	return nil
}

// Word is one recognized word in the coordinates of the image handed to the
// engine. Confidence is on a 0..1 scale.
type Word struct {
	Text       string
	Confidence float64
	Box        image.Rectangle
}

// prepare crops and scales img according to opts. It returns the image to
// recognize together with the transform back to full-image coordinates.
func prepare(img image.Image, opts Options) (image.Image, image.Point, float64, error) {
	if opts.Region.Empty() {
		return img, image.Point{}, 1, nil
	}
	r := opts.Region
	scale := opts.Scale
	if scale <= 1 {
		scale = 1
	}
	cropped, err := imaging.CropRegion(img, r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, scale)
	if err != nil {
		return nil, image.Point{}, 0, err
	}
	return cropped, r.Min, scale, nil
}

// ToItems converts recognized words into OCR items. Boxes are divided by
// scale and shifted by offset so they land in full-image coordinates. Empty
// words and words below minConfidence are dropped; the order is kept.
func ToItems(words []Word, offset image.Point, scale, minConfidence float64) []pnid.OCRItem {
	if scale <= 0 {
		scale = 1
	}
	items := make([]pnid.OCRItem, 0, len(words))
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" || w.Confidence < minConfidence {
			continue
		}
		x1 := float64(w.Box.Min.X)/scale + float64(offset.X)
		y1 := float64(w.Box.Min.Y)/scale + float64(offset.Y)
		x2 := float64(w.Box.Max.X)/scale + float64(offset.X)
		y2 := float64(w.Box.Max.Y)/scale + float64(offset.Y)
		items = append(items, pnid.OCRItem{
			Text:       text,
			Confidence: w.Confidence,
			BBox:       pnid.QuadFromRect(x1, y1, x2, y2),
		})
	}
	return items
}
