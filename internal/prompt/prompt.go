// Package prompt renders a pipeline result as instructions for a language
// model that labels pipes without changing the topology.
package prompt

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ironsheep/pnid-topology/internal/pnid"
)

// DefaultTopN is the number of pipes listed when the caller passes zero.
const DefaultTopN = 10

// Format lists every component and the topN longest pipes, followed by
// annotation instructions. Ties in length keep the document order.
func Format(doc *pnid.Document, topN int) string {
	if topN <= 0 {
		topN = DefaultTopN
	}

	var b strings.Builder
	b.WriteString("You are given a P&ID diagram analysis with deterministic geometric connectivity.\n")
	b.WriteString("Do NOT change topology. Your task is to assign labels and descriptions to the listed pipes.\n")
	b.WriteString("\n")

	b.WriteString("COMPONENTS (id, label, x, y):\n")
	for _, c := range doc.Components {
		id := c.ID
		if id == "" {
			id = c.Label
		}
		fmt.Fprintf(&b, "- %s: %q at (%s,%s)\n", id, c.Label, num(c.X), num(c.Y))
	}
	b.WriteString("\n")

	b.WriteString("DETERMINISTIC PIPES (source → target, length px, suggested label if any):\n")
	pipes := slices.Clone(doc.Pipes)
	slices.SortStableFunc(pipes, func(a, b pnid.CandidatePipe) int {
		switch {
		case a.PathLength > b.PathLength:
			return -1
		case a.PathLength < b.PathLength:
			return 1
		}
		return 0
	})
	for i, p := range pipes[:min(topN, len(pipes))] {
		fmt.Fprintf(&b, "%d. %s → %s, length=%d px, midpoint=(%d,%d), label=%q\n",
			i+1, p.Source, p.Target, int(p.PathLength), int(p.X), int(p.Y), p.Label)
	}
	b.WriteString("\n")

	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1) For each deterministic pipe above, propose a concise label (<= 6 words).\n")
	b.WriteString("2) If OCR labels exist near a pipe, prefer them. Otherwise suggest a label from likely stream.\n")
	b.WriteString("3) Provide a one-line description for each pipe with probable temperature/contents if available.\n")
	b.WriteString("4) Do NOT invent new pipes or remove the listed ones; only annotate.\n")
	b.WriteString("\n")
	b.WriteString(`Answer with a JSON array of objects: [{"source":"...","target":"...","label":"...","description":"..."}, ...]`)
	return b.String()
}

// num prints whole coordinates without a fraction.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
