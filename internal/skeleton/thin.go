// Package skeleton thins binary edge maps into one-pixel-wide centerlines.
package skeleton

import (
	"github.com/anthonynsimon/bild/effect"

	"github.com/ironsheep/pnid-topology/internal/imaging"
)

// Options controls pre-processing before thinning.
type Options struct {
	// CloseRadius applies a morphological closing (dilate then erode) before
	// thinning. It fuses the twin edges Canny reports on either side of a
	// drawn line into one band so the skeleton follows the line center.
	// Zero disables it. With closing enabled the output is a subset of the
	// closed mask rather than of the input.
	CloseRadius float64
}

// ring offsets in Zhang-Suen order: P2 (north) clockwise to P9 (north-west).
var ring = [8][2]int{
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// Skeletonize reduces every foreground region of mask to a centerline.
//
// Thinning is Zhang-Suen with every deletion re-checked against the
// current state, so a region is never disconnected (plain parallel
// Zhang-Suen erases 2x2 blocks entirely). Once no thinning step applies,
// staircase corners left on diagonal runs are removed when they are simple
// points, so corridor pixels end up with exactly two neighbors. Both passes
// repeat until a full round changes nothing, which makes the result a fixed
// point: skeletonizing a skeleton returns it unchanged.
//
// The input is never modified. A nil or empty mask yields an empty mask.
func Skeletonize(mask *imaging.Mask, opts Options) *imaging.Mask {
	if mask == nil {
		return imaging.NewMask(0, 0)
	}
	work := mask.Clone()
	if opts.CloseRadius > 0 && work.Count() > 0 {
		work = closeMask(work, opts.CloseRadius)
	}

	for {
		changed := false
		for thinPass(work, 0) || thinPass(work, 1) {
			changed = true
		}
		if pruneStaircases(work) {
			changed = true
		}
		if !changed {
			return work
		}
	}
}

func closeMask(m *imaging.Mask, radius float64) *imaging.Mask {
	dilated := effect.Dilate(m.Image(), radius)
	closed := effect.Erode(dilated, radius)
	return imaging.MaskFromImage(closed, 128)
}

// neighborhood returns the ring bits P2..P9 and the foreground count.
func neighborhood(m *imaging.Mask, x, y int) ([8]bool, int) {
	var p [8]bool
	n := 0
	for i, d := range ring {
		if m.Get(x+d[0], y+d[1]) {
			p[i] = true
			n++
		}
	}
	return p, n
}

// transitions counts background-to-foreground steps around the ring.
func transitions(p [8]bool) int {
	a := 0
	for i := 0; i < 8; i++ {
		if !p[i] && p[(i+1)%8] {
			a++
		}
	}
	return a
}

// thinPass runs one Zhang-Suen sub-iteration and reports whether any pixel
// was removed. Candidates are chosen against the state at the start of the
// pass, which keeps the result centered, and each one is re-checked against
// the current state before removal so that deleting a neighbor earlier in
// the same pass cannot disconnect it.
func thinPass(m *imaging.Mask, step int) bool {
	var candidates []int
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Get(x, y) && zhangSuenDeletable(m, x, y, step) {
				candidates = append(candidates, y*m.Width+x)
			}
		}
	}

	removed := false
	for _, i := range candidates {
		x, y := i%m.Width, i/m.Width
		p, b := neighborhood(m, x, y)
		if b < 2 || transitions(p) != 1 {
			continue
		}
		m.Set(x, y, false)
		removed = true
	}
	return removed
}

func zhangSuenDeletable(m *imaging.Mask, x, y, step int) bool {
	p, b := neighborhood(m, x, y)
	if b < 2 || b > 6 || transitions(p) != 1 {
		return false
	}
	n, e, s, w := p[0], p[2], p[4], p[6]
	if step == 0 {
		return !(n && e && s) && !(e && s && w)
	}
	return !(n && e && w) && !(n && s && w)
}

// pruneStaircases removes corner pixels that sit between two orthogonal
// neighbors when doing so keeps the local topology. Endpoints are kept.
func pruneStaircases(m *imaging.Mask) bool {
	removed := false
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.Get(x, y) {
				continue
			}
			p, b := neighborhood(m, x, y)
			if b < 2 {
				continue
			}
			n, e, s, w := p[0], p[2], p[4], p[6]
			if !((n && e) || (e && s) || (s && w) || (w && n)) {
				continue
			}
			if !isSimple(p) {
				continue
			}
			m.Set(x, y, false)
			removed = true
		}
	}
	return removed
}

// isSimple reports whether deleting the center pixel leaves both the
// foreground and the background topology of the 3x3 window unchanged: the
// ring foreground is one 8-connected piece and exactly one 4-connected
// background piece touches the center orthogonally.
func isSimple(p [8]bool) bool {
	fg := ringComponents(p, true, func(a, b int) bool {
		return chebyshev(ring[a], ring[b]) == 1
	}, nil)
	if fg != 1 {
		return false
	}
	bg := ringComponents(p, false, func(a, b int) bool {
		return manhattan(ring[a], ring[b]) == 1
	}, func(i int) bool {
		// even ring indices are the orthogonal neighbors
		return i%2 == 0
	})
	return bg == 1
}

// ringComponents counts connected groups of ring positions whose bit equals
// want, using adj for adjacency. When touches is set, only groups containing
// at least one position accepted by touches are counted.
func ringComponents(p [8]bool, want bool, adj func(a, b int) bool, touches func(i int) bool) int {
	var label [8]int
	for i := range label {
		label[i] = -1
	}
	count := 0
	for i := 0; i < 8; i++ {
		if p[i] != want || label[i] >= 0 {
			continue
		}
		stack := []int{i}
		label[i] = i
		counted := touches == nil
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if touches != nil && touches(cur) {
				counted = true
			}
			for j := 0; j < 8; j++ {
				if p[j] == want && label[j] < 0 && adj(cur, j) {
					label[j] = i
					stack = append(stack, j)
				}
			}
		}
		if counted {
			count++
		}
	}
	return count
}

func chebyshev(a, b [2]int) int {
	return max(abs(a[0]-b[0]), abs(a[1]-b[1]))
}

func manhattan(a, b [2]int) int {
	return abs(a[0]-b[0]) + abs(a[1]-b[1])
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
