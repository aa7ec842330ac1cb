package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
)

// EdgeOptions configures the edge map builder.
type EdgeOptions struct {
	// LowThreshold is the weak-edge gradient threshold (0-255 scale).
	LowThreshold int

	// HighThreshold is the strong-edge gradient threshold (0-255 scale).
	HighThreshold int

	// BlurRadius is the Gaussian noise-suppression radius. Zero disables
	// the blur.
	BlurRadius float64
}

// DefaultEdgeOptions returns the thresholds used for clean line diagrams.
func DefaultEdgeOptions() EdgeOptions {
	return EdgeOptions{
		LowThreshold:  50,
		HighThreshold: 150,
		BlurRadius:    1.4,
	}
}

// Validate checks that the thresholds are usable.
func (o EdgeOptions) Validate() error {
	if o.LowThreshold < 0 || o.HighThreshold > 255 {
		return fmt.Errorf("edge thresholds must be within 0-255, got %d/%d", o.LowThreshold, o.HighThreshold)
	}
	if o.LowThreshold >= o.HighThreshold {
		return fmt.Errorf("edge low threshold %d must be below high threshold %d", o.LowThreshold, o.HighThreshold)
	}
	if o.BlurRadius < 0 {
		return fmt.Errorf("blur radius must not be negative, got %g", o.BlurRadius)
	}
	return nil
}

// BuildEdgeMask performs Canny-style edge detection and returns the binary
// edge map.
//
// Parameters:
//   - r: Source raster. Must not be nil or empty.
//   - opts: Thresholds and blur radius.
//
// Returns:
//   - *Mask: Same dimensions as r; true marks an edge pixel.
//   - error: ErrEmptyImage for a zero-size raster, or a threshold error.
//
// # Algorithm
//
//  1. Gaussian blur (bild) to suppress scan noise
//
//  2. Gradient computation: Sobel operators for X and Y gradients
//     magnitude = sqrt(Gx² + Gy²)
//     direction = atan2(Gy, Gx)
//
//  3. Non-maximum suppression: keep only local maxima across the gradient
//
//  4. Hysteresis: pixels above HighThreshold seed the map, and pixels above
//     LowThreshold are kept only when 8-connected to a seed through other
//     kept pixels. Weak isolated responses are dropped.
//
// The function is pure: equal inputs always produce equal masks.
func BuildEdgeMask(r *RasterImage, opts EdgeOptions) (*Mask, error) {
	if r == nil || r.width <= 0 || r.height <= 0 {
		return nil, ErrEmptyImage
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	width, height := r.width, r.height

	blurred := r.pix
	if opts.BlurRadius > 0 {
		blurred = grayToUnit(blur.Gaussian(r.Gray(), opts.BlurRadius))
	}
	at := func(x, y int) float64 {
		return blurred[clamp(y, 0, height-1)*width+clamp(x, 0, width-1)]
	}

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	magnitude := make([]float64, width*height)
	direction := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := at(x+kx, y+ky)
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y*width+x] = math.Sqrt(gx*gx + gy*gy)
			direction[y*width+x] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression
	suppressed := make([]float64, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			angle := direction[i]
			mag := magnitude[i]

			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1, n2 = magnitude[i-1], magnitude[i+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1, n2 = magnitude[i-width+1], magnitude[i+width-1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1, n2 = magnitude[i-width], magnitude[i+width]
			default:
				n1, n2 = magnitude[i-width-1], magnitude[i+width+1]
			}

			if mag > 0 && mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	// Double threshold and edge tracking by hysteresis
	lowThresh := float64(opts.LowThreshold) / 255.0
	highThresh := float64(opts.HighThreshold) / 255.0
	if lowThresh <= 0 {
		lowThresh = math.SmallestNonzeroFloat64
	}

	mask := NewMask(width, height)
	stack := make([]int, 0, 256)
	for i, v := range suppressed {
		if v >= highThresh && !mask.Bits[i] {
			mask.Bits[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width
		for _, d := range Neighbors8 {
			nx, ny := x+d.X, y+d.Y
			if !mask.In(nx, ny) {
				continue
			}
			j := ny*width + nx
			if !mask.Bits[j] && suppressed[j] >= lowThresh {
				mask.Bits[j] = true
				stack = append(stack, j)
			}
		}
	}

	return mask, nil
}

// grayToUnit converts bild output to row-major [0,1] samples.
func grayToUnit(img image.Image) []float64 {
	b := img.Bounds()
	out := make([]float64, b.Dx()*b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			out[i] = float64(r>>8) / 255.0
			i++
		}
	}
	return out
}
