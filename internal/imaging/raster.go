package imaging

import (
	"fmt"
	"image"

	"github.com/lucasb-eyer/go-colorful"
)

// RasterImage is an immutable grid of intensity samples in [0,1], where 0 is
// black and 1 is white. It is the only form in which the pipeline reads the
// caller's image.
type RasterImage struct {
	width  int
	height int
	pix    []float64
}

// ErrEmptyImage is returned when an image has no pixels.
var ErrEmptyImage = fmt.Errorf("image has zero width or height")

// NewRasterImage converts any decoded image to intensity samples.
//
// Intensity is the CIE L* lightness of each pixel (via go-colorful), which
// tracks perceived brightness more closely than a plain channel average on
// colored P&ID scans. Fully transparent pixels are treated as white paper.
//
// Returns ErrEmptyImage for zero-size images.
func NewRasterImage(img image.Image) (*RasterImage, error) {
	if img == nil {
		return nil, ErrEmptyImage
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, ErrEmptyImage
	}

	r := &RasterImage{width: w, height: h, pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.At(x+b.Min.X, y+b.Min.Y)
			if _, _, _, a := c.RGBA(); a == 0 {
				r.pix[y*w+x] = 1
				continue
			}
			col, _ := colorful.MakeColor(c)
			l, _, _ := col.Lab()
			r.pix[y*w+x] = clampUnit(l)
		}
	}
	return r, nil
}

// NewRasterFromSamples builds a raster from row-major samples in [0,1].
// Values outside the range are clamped.
func NewRasterFromSamples(width, height int, samples []float64) (*RasterImage, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyImage
	}
	if len(samples) != width*height {
		return nil, fmt.Errorf("sample count %d does not match %dx%d", len(samples), width, height)
	}
	pix := make([]float64, len(samples))
	for i, v := range samples {
		pix[i] = clampUnit(v)
	}
	return &RasterImage{width: width, height: height, pix: pix}, nil
}

// Width returns the raster width in pixels.
func (r *RasterImage) Width() int { return r.width }

// Height returns the raster height in pixels.
func (r *RasterImage) Height() int { return r.height }

// At returns the intensity at (x, y). Out-of-range coordinates are clamped
// to the nearest edge pixel.
func (r *RasterImage) At(x, y int) float64 {
	x = clamp(x, 0, r.width-1)
	y = clamp(y, 0, r.height-1)
	return r.pix[y*r.width+x]
}

// Gray renders the raster as an 8-bit grayscale image.
func (r *RasterImage) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, r.width, r.height))
	for i, v := range r.pix {
		g.Pix[i] = uint8(v*255 + 0.5)
	}
	return g
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
