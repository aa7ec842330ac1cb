package pipeline

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/ironsheep/pnid-topology/internal/pnid"
)

func checkImage(img image.Image) error {
	if img == nil {
		return &InputError{Field: "image", Reason: "missing"}
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return &InputError{Field: "image", Reason: fmt.Sprintf("empty (%dx%d)", b.Dx(), b.Dy())}
	}
	return nil
}

// ValidateComponents rejects empty or duplicate ids and non-finite
// coordinates.
func ValidateComponents(components []pnid.Component) error {
	seen := make(map[string]int, len(components))
	for i, c := range components {
		field := fmt.Sprintf("components[%d]", i)
		if strings.TrimSpace(c.ID) == "" {
			return &InputError{Field: field, Reason: "empty id"}
		}
		if j, dup := seen[c.ID]; dup {
			return &InputError{Field: field, Reason: fmt.Sprintf("id %q already used by components[%d]", c.ID, j)}
		}
		seen[c.ID] = i
		if !finite(c.X) || !finite(c.Y) {
			return &InputError{Field: field, Reason: fmt.Sprintf("non-finite position (%g,%g)", c.X, c.Y)}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
