package flow

// AllEvents is the focal-event sentinel meaning "nothing selected".
const AllEvents FocalEvent = "All"

// FocalEvent names the event to highlight, or AllEvents.
type FocalEvent string

// IsAll reports whether no specific event is selected.
func (f FocalEvent) IsAll() bool {
	return f == AllEvents
}

// Palette holds the node colors.
type Palette struct {
	Default   Color
	Highlight Color
}

// DefaultPalette returns the stock grey/violet palette.
func DefaultPalette() Palette {
	return Palette{Default: DefaultNodeColor, Highlight: DefaultHighlightColor}
}

// Builder builds flow graphs with a fixed palette. The zero value uses
// DefaultPalette. A Builder is immutable and safe for concurrent use.
type Builder struct {
	palette Palette
}

// NewBuilder returns a Builder using p; empty colors fall back to defaults.
func NewBuilder(p Palette) *Builder {
	def := DefaultPalette()
	if p.Default == "" {
		p.Default = def.Default
	}
	if p.Highlight == "" {
		p.Highlight = def.Highlight
	}
	return &Builder{palette: p}
}

// Palette returns the colors used by b.
func (b *Builder) Palette() Palette {
	if b == nil || b.palette == (Palette{}) {
		return DefaultPalette()
	}
	return b.palette
}

// Build is shorthand for a zero Builder's Build.
func Build(records []TransitionRecord, focal FocalEvent) *Graph {
	var b Builder
	return b.Build(records, focal)
}

// BuildRaw parses raw rows and builds the graph. A malformed label
// aborts with a *FormatError.
func (b *Builder) BuildRaw(raw []RawTransition, focal FocalEvent) (*Graph, error) {
	records, err := ParseTransitions(raw)
	if err != nil {
		return nil, err
	}
	return b.Build(records, focal), nil
}

// Build converts records into a graph. Records missing an endpoint are
// skipped. The result never aliases the input.
func (b *Builder) Build(records []TransitionRecord, focal FocalEvent) *Graph {
	palette := b.Palette()

	index := make(map[StepLabel]int)
	nodes := make([]Node, 0)
	edges := make([]Edge, 0, len(records))

	nodeFor := func(l StepLabel) int {
		if i, ok := index[l]; ok {
			return i
		}
		i := len(nodes)
		index[l] = i
		nodes = append(nodes, Node{
			Label:        l,
			DisplayLabel: l.DisplayLabel(),
			Color:        palette.Default,
		})
		return i
	}

	for _, r := range records {
		if !r.Complete() {
			continue
		}
		src := nodeFor(*r.Source)
		dst := nodeFor(*r.Target)
		edges = append(edges, Edge{Source: src, Target: dst, Weight: r.Weight})
	}

	// Only the first-step occurrence is highlighted.
	for i := range nodes {
		if nodes[i].Label.Opens(focal) {
			nodes[i].Color = palette.Highlight
			break
		}
	}

	in := make([]int64, len(nodes))
	out := make([]int64, len(nodes))
	for _, e := range edges {
		out[e.Source] += e.Weight
		in[e.Target] += e.Weight
	}
	for i := range nodes {
		nodes[i].Value = max(in[i], out[i])
	}

	return &Graph{Nodes: nodes, Edges: edges}
}
