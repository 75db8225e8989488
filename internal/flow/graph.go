package flow

import "fmt"

// Color is a CSS color string understood by diagram renderers.
type Color string

// Default colors used when no palette is configured.
const (
	DefaultNodeColor      Color = "#787878"
	DefaultHighlightColor Color = "#6E49FF"
)

// Node is one distinct step on the diagram.
type Node struct {
	Label        StepLabel `json:"step"`
	DisplayLabel string    `json:"label"`
	Color        Color     `json:"color"`
	// Value is the node throughput, max(sum of inbound, sum of outbound).
	Value int64 `json:"value"`
}

// Edge connects two nodes by index.
type Edge struct {
	Source int   `json:"source"`
	Target int   `json:"target"`
	Weight int64 `json:"value"`
}

// Graph is the renderer-agnostic result of Build.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Empty reports whether the graph has nothing to draw.
func (g *Graph) Empty() bool {
	return len(g.Nodes) == 0 && len(g.Edges) == 0
}

// TotalWeight sums all edge weights.
func (g *Graph) TotalWeight() int64 {
	var total int64
	for _, e := range g.Edges {
		total += e.Weight
	}
	return total
}

// Highlighted returns the index of the first node carrying color c, or -1.
func (g *Graph) Highlighted(c Color) int {
	for i, n := range g.Nodes {
		if n.Color == c {
			return i
		}
	}
	return -1
}

// Focal returns the index of the node that opens the window for focal,
// or -1 when there is none or focal is AllEvents.
func (g *Graph) Focal(focal FocalEvent) int {
	for i, n := range g.Nodes {
		if n.Label.Opens(focal) {
			return i
		}
	}
	return -1
}

// Validate checks the structural invariants: unique labels and in-range
// edge indices.
func (g *Graph) Validate() error {
	seen := make(map[StepLabel]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if j, dup := seen[n.Label]; dup {
			return fmt.Errorf("duplicate node %q at %d and %d", n.Label, j, i)
		}
		seen[n.Label] = i
	}
	for i, e := range g.Edges {
		if e.Source < 0 || e.Source >= len(g.Nodes) || e.Target < 0 || e.Target >= len(g.Nodes) {
			return fmt.Errorf("edge %d (%d -> %d) out of range for %d nodes", i, e.Source, e.Target, len(g.Nodes))
		}
	}
	return nil
}
