// Package annotate attaches nearby OCR text to candidate pipes.
package annotate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ironsheep/pnid-topology/internal/pnid"
)

// Options controls OCR-to-pipe association.
type Options struct {
	// Proximity is the largest centroid-to-midpoint distance, inclusive.
	Proximity float64

	// Separator joins the texts that form a label.
	Separator string

	// MaxTexts is how many of the nearest texts go into the label.
	MaxTexts int
}

// DefaultOptions returns a 40px radius and two-text labels.
func DefaultOptions() Options {
	return Options{Proximity: 40, Separator: " / ", MaxTexts: 2}
}

// Match is an OCR item found near a pipe midpoint.
type Match struct {
	Text     string
	Distance float64
}

// Nearby returns OCR items whose bounding-box centroid lies within
// proximity of p, nearest first. Items at equal distance keep input order.
func Nearby(p pnid.PointF, items []pnid.OCRItem, proximity float64) []Match {
	var out []Match
	for _, item := range items {
		d := item.BBox.Centroid().Dist(p)
		if d <= proximity {
			out = append(out, Match{Text: item.Text, Distance: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

// Annotate fills each pipe's Label with the nearest OCR texts and appends
// every match, with its distance, to the Description. Pipes with no nearby
// text are left untouched. OCR text never affects topology.
func Annotate(pipes []pnid.CandidatePipe, items []pnid.OCRItem, opts Options) {
	if opts.MaxTexts <= 0 {
		opts.MaxTexts = 1
	}
	for i := range pipes {
		matches := Nearby(pipes[i].Midpoint(), items, opts.Proximity)
		if len(matches) == 0 {
			continue
		}

		top := matches[:min(opts.MaxTexts, len(matches))]
		texts := make([]string, len(top))
		for k, m := range top {
			texts[k] = m.Text
		}
		pipes[i].Label = strings.Join(texts, opts.Separator)

		all := make([]string, len(matches))
		for k, m := range matches {
			all[k] = fmt.Sprintf("%s (%.1fpx)", m.Text, m.Distance)
		}
		pipes[i].Description += " | OCR labels: " + strings.Join(all, ", ")
	}
}
