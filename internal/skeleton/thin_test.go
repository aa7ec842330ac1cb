package skeleton

import (
	"testing"

	"github.com/ironsheep/pnid-topology/internal/imaging"
)

func fillRect(m *imaging.Mask, x1, y1, x2, y2 int) {
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			m.Set(x, y, true)
		}
	}
}

func plusMask(size int) *imaging.Mask {
	m := imaging.NewMask(size, size)
	c := size / 2
	for i := 0; i < size; i++ {
		m.Set(c, i, true)
		m.Set(i, c, true)
	}
	return m
}

func assertSubset(t *testing.T, in, out *imaging.Mask) {
	t.Helper()
	for i, v := range out.Bits {
		if v && !in.Bits[i] {
			t.Fatalf("skeleton pixel %d is not in the input", i)
		}
	}
}

func TestSkeletonize_ThickBar(t *testing.T) {
	m := imaging.NewMask(60, 20)
	fillRect(m, 5, 7, 54, 11)

	s := Skeletonize(m, Options{})

	assertSubset(t, m, s)
	if s.Count() == 0 {
		t.Fatal("skeleton is empty")
	}
	if got := s.Components(); got != 1 {
		t.Errorf("components: got %d, want 1", got)
	}
	// Away from the ends the bar is one pixel wide.
	for x := 15; x < 45; x++ {
		n := 0
		for y := 0; y < 20; y++ {
			if s.Get(x, y) {
				n++
			}
		}
		if n != 1 {
			t.Errorf("column %d: got %d pixels, want 1", x, n)
		}
	}
}

func TestSkeletonize_Idempotent(t *testing.T) {
	shapes := map[string]*imaging.Mask{
		"bar":  imaging.NewMask(40, 15),
		"plus": plusMask(21),
		"ring": imaging.NewMask(30, 30),
	}
	fillRect(shapes["bar"], 3, 4, 36, 9)
	fillRect(shapes["ring"], 5, 5, 24, 24)
	for y := 9; y <= 20; y++ {
		for x := 9; x <= 20; x++ {
			shapes["ring"].Set(x, y, false)
		}
	}

	for name, m := range shapes {
		t.Run(name, func(t *testing.T) {
			once := Skeletonize(m, Options{})
			twice := Skeletonize(once, Options{})
			if !once.Equal(twice) {
				t.Error("skeletonizing a skeleton changed it")
			}
		})
	}
}

func TestSkeletonize_PreservesConnectivity(t *testing.T) {
	m := imaging.NewMask(80, 40)
	fillRect(m, 2, 2, 30, 6)   // horizontal bar
	fillRect(m, 14, 2, 18, 35) // joined vertical bar
	fillRect(m, 50, 10, 75, 30)
	fillRect(m, 60, 35, 61, 36) // 2x2 block
	m.Set(45, 38, true)         // lone pixel

	want := m.Components()
	s := Skeletonize(m, Options{})

	assertSubset(t, m, s)
	if got := s.Components(); got != want {
		t.Errorf("components: got %d, want %d", got, want)
	}
}

func TestSkeletonize_ThinShapesUnchanged(t *testing.T) {
	plus := plusMask(21)
	if s := Skeletonize(plus, Options{}); !s.Equal(plus) {
		t.Errorf("plus changed: %d pixels, want %d", s.Count(), plus.Count())
	}

	line := imaging.NewMask(120, 5)
	for x := 10; x <= 110; x++ {
		line.Set(x, 2, true)
	}
	if s := Skeletonize(line, Options{}); !s.Equal(line) {
		t.Errorf("line changed: %d pixels, want %d", s.Count(), line.Count())
	}
}

func TestSkeletonize_StaircaseBecomesDiagonal(t *testing.T) {
	m := imaging.NewMask(12, 12)
	for i := 1; i < 10; i++ {
		m.Set(i, i, true)
		m.Set(i+1, i, true)
	}

	s := Skeletonize(m, Options{})
	if s.Components() != 1 {
		t.Fatalf("components: got %d, want 1", s.Components())
	}
	for _, p := range s.Points() {
		d := s.Degree(p.X, p.Y)
		if d > 2 {
			t.Errorf("pixel %v has degree %d after pruning", p, d)
		}
	}
}

func TestSkeletonize_DoesNotModifyInput(t *testing.T) {
	m := imaging.NewMask(20, 20)
	fillRect(m, 2, 2, 17, 8)
	before := m.Clone()

	Skeletonize(m, Options{})
	if !m.Equal(before) {
		t.Error("input mask was modified")
	}
}

func TestSkeletonize_Empty(t *testing.T) {
	if s := Skeletonize(nil, Options{}); s.Count() != 0 {
		t.Error("nil mask should give an empty skeleton")
	}
	m := imaging.NewMask(10, 10)
	if s := Skeletonize(m, Options{CloseRadius: 2}); s.Count() != 0 {
		t.Error("empty mask should give an empty skeleton")
	}
}

func TestSkeletonize_CloseFusesTwinEdges(t *testing.T) {
	// Two parallel one-pixel lines, as Canny reports for a drawn pipe.
	m := imaging.NewMask(60, 20)
	for x := 5; x < 55; x++ {
		m.Set(x, 9, true)
		m.Set(x, 11, true)
	}
	if m.Components() != 2 {
		t.Fatal("setup: expected two separate lines")
	}

	s := Skeletonize(m, Options{CloseRadius: 2})
	if got := s.Components(); got != 1 {
		t.Errorf("closed skeleton components: got %d, want 1", got)
	}
}

func TestIsSimple(t *testing.T) {
	tests := []struct {
		name string
		p    [8]bool // N, NE, E, SE, S, SW, W, NW
		want bool
	}{
		{"corner of L", [8]bool{false, false, false, true, true, false, true, false}, true},
		{"plus center", [8]bool{true, false, true, false, true, false, true, false}, false},
		{"line interior", [8]bool{true, false, false, false, true, false, false, false}, false},
		{"two diagonal touches", [8]bool{false, true, false, false, false, true, false, false}, false},
		{"edge of block", [8]bool{false, false, true, true, true, false, false, false}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSimple(tt.p); got != tt.want {
				t.Errorf("isSimple: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransitions(t *testing.T) {
	if got := transitions([8]bool{true, true, true, false, false, false, false, false}); got != 1 {
		t.Errorf("single run: got %d, want 1", got)
	}
	if got := transitions([8]bool{true, false, true, false, true, false, true, false}); got != 4 {
		t.Errorf("alternating: got %d, want 4", got)
	}
	if got := transitions([8]bool{}); got != 0 {
		t.Errorf("empty: got %d, want 0", got)
	}
}
