package imaging

import (
	"image"
	"image/color"

	"github.com/ironsheep/pnid-topology/internal/pnid"
)

// Mask is a binary pixel grid. The edge map and the skeleton are both masks;
// true marks a foreground (structure) pixel.
type Mask struct {
	Width  int
	Height int
	Bits   []bool
}

// NewMask returns an all-background mask.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{Width: width, Height: height, Bits: make([]bool, width*height)}
}

// MaskFromImage thresholds an image: pixels with 8-bit luminance at or above
// level become foreground.
func MaskFromImage(img image.Image, level uint8) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			g := color.GrayModel.Convert(img.At(x+b.Min.X, y+b.Min.Y)).(color.Gray)
			m.Bits[y*m.Width+x] = g.Y >= level
		}
	}
	return m
}

// In reports whether (x, y) lies inside the mask.
func (m *Mask) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// Get returns the pixel at (x, y); out-of-range pixels are background.
func (m *Mask) Get(x, y int) bool {
	if !m.In(x, y) {
		return false
	}
	return m.Bits[y*m.Width+x]
}

// Set assigns the pixel at (x, y). Out-of-range writes are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if m.In(x, y) {
		m.Bits[y*m.Width+x] = v
	}
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	c := &Mask{Width: m.Width, Height: m.Height, Bits: make([]bool, len(m.Bits))}
	copy(c.Bits, m.Bits)
	return c
}

// Equal reports whether two masks have the same size and pixels.
func (m *Mask) Equal(o *Mask) bool {
	if m.Width != o.Width || m.Height != o.Height {
		return false
	}
	for i := range m.Bits {
		if m.Bits[i] != o.Bits[i] {
			return false
		}
	}
	return true
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Bits {
		if v {
			n++
		}
	}
	return n
}

// Points lists foreground pixels in raster order (row by row, left to right).
func (m *Mask) Points() []pnid.Point {
	pts := make([]pnid.Point, 0)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Bits[y*m.Width+x] {
				pts = append(pts, pnid.Point{X: x, Y: y})
			}
		}
	}
	return pts
}

// Neighbors8 holds the 8-neighborhood offsets in raster order.
var Neighbors8 = [8]pnid.Point{
	{X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
	{X: -1, Y: 0}, {X: 1, Y: 0},
	{X: -1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 1},
}

// Degree counts the foreground 8-neighbors of (x, y).
func (m *Mask) Degree(x, y int) int {
	n := 0
	for _, d := range Neighbors8 {
		if m.Get(x+d.X, y+d.Y) {
			n++
		}
	}
	return n
}

// Components counts 8-connected foreground components.
func (m *Mask) Components() int {
	seen := make([]bool, len(m.Bits))
	stack := make([]int, 0, 64)
	count := 0
	for i, v := range m.Bits {
		if !v || seen[i] {
			continue
		}
		count++
		seen[i] = true
		stack = append(stack[:0], i)
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cx, cy := cur%m.Width, cur/m.Width
			for _, d := range Neighbors8 {
				nx, ny := cx+d.X, cy+d.Y
				if !m.In(nx, ny) {
					continue
				}
				j := ny*m.Width + nx
				if m.Bits[j] && !seen[j] {
					seen[j] = true
					stack = append(stack, j)
				}
			}
		}
	}
	return count
}

// Image renders the mask as white-on-black grayscale.
func (m *Mask) Image() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Bits {
		if v {
			g.Pix[i] = 255
		}
	}
	return g
}
