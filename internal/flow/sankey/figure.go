// Package sankey adapts a flow.Graph to the JSON figure shape accepted by
// Plotly's Sankey trace, so a browser can draw it with Plotly.newPlot.
package sankey

import (
	"fmt"

	"github.com/mgb22/chatbotjourney/internal/flow"
)

// Style holds the presentation knobs of a figure.
type Style struct {
	NodePad       int    `json:"pad"`
	NodeThickness int    `json:"thickness"`
	Height        int    `json:"height"`
	FontSize      int    `json:"font_size"`
	TextColor     string `json:"text_color"`
}

// DefaultStyle mirrors the layout the journey page has always used.
func DefaultStyle() Style {
	return Style{
		NodePad:       15,
		NodeThickness: 20,
		Height:        1000,
		FontSize:      15,
		TextColor:     "black",
	}
}

// Figure is a complete Plotly figure: one Sankey trace plus layout.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is a Plotly Sankey trace.
type Trace struct {
	Type     string   `json:"type"`
	Node     NodeSpec `json:"node"`
	Link     LinkSpec `json:"link"`
	TextFont Font     `json:"textfont"`
}

// NodeSpec lists node attributes in node-index order.
type NodeSpec struct {
	Pad           int          `json:"pad"`
	Thickness     int          `json:"thickness"`
	Label         []string     `json:"label"`
	Color         []flow.Color `json:"color"`
	HoverTemplate string       `json:"hovertemplate"`
}

// LinkSpec lists links as parallel source/target/value arrays.
type LinkSpec struct {
	Source []int   `json:"source"`
	Target []int   `json:"target"`
	Value  []int64 `json:"value"`
}

// Font is a Plotly font object.
type Font struct {
	Size  int    `json:"size,omitempty"`
	Color string `json:"color,omitempty"`
}

// Layout is the subset of Plotly layout the figure sets.
type Layout struct {
	Height     int        `json:"height"`
	Font       Font       `json:"font"`
	HoverLabel HoverLabel `json:"hoverlabel"`
}

// HoverLabel configures tooltip text alignment.
type HoverLabel struct {
	Align string `json:"align"`
}

const hoverTemplate = "%{label} (%{value} users)<extra></extra>"

// FromGraph converts g into a figure. Arrays are never nil so the empty
// graph serializes to empty lists.
func FromGraph(g *flow.Graph, style Style) Figure {
	node := NodeSpec{
		Pad:           style.NodePad,
		Thickness:     style.NodeThickness,
		Label:         make([]string, len(g.Nodes)),
		Color:         make([]flow.Color, len(g.Nodes)),
		HoverTemplate: hoverTemplate,
	}
	for i, n := range g.Nodes {
		node.Label[i] = n.DisplayLabel
		node.Color[i] = n.Color
	}

	link := LinkSpec{
		Source: make([]int, len(g.Edges)),
		Target: make([]int, len(g.Edges)),
		Value:  make([]int64, len(g.Edges)),
	}
	for i, e := range g.Edges {
		link.Source[i] = e.Source
		link.Target[i] = e.Target
		link.Value[i] = e.Weight
	}

	return Figure{
		Data: []Trace{{
			Type:     "sankey",
			Node:     node,
			Link:     link,
			TextFont: Font{Color: style.TextColor},
		}},
		Layout: Layout{
			Height:     style.Height,
			Font:       Font{Size: style.FontSize},
			HoverLabel: HoverLabel{Align: "left"},
		},
	}
}

// Validate rejects styles Plotly would render as nothing.
func (s Style) Validate() error {
	if s.NodePad < 0 {
		return fmt.Errorf("node pad must be >= 0, got %d", s.NodePad)
	}
	if s.NodeThickness <= 0 {
		return fmt.Errorf("node thickness must be > 0, got %d", s.NodeThickness)
	}
	if s.Height <= 0 {
		return fmt.Errorf("height must be > 0, got %d", s.Height)
	}
	return nil
}
