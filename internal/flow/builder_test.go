package flow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func label(s string) StepLabel {
	l, err := ParseStepLabel(s)
	if err != nil {
		panic(err)
	}
	return l
}

func rec(src, dst string, w int64) TransitionRecord {
	return Transition(label(src), label(dst), w)
}

func strp(s string) *string { return &s }

func displayLabels(g *Graph) []string {
	out := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		out[i] = n.DisplayLabel
	}
	return out
}

func TestBuild_CheckoutExample(t *testing.T) {
	records := []TransitionRecord{
		rec("1 - start", "2 - checkout", 5),
		rec("2 - checkout", "3 - pay", 3),
	}

	g := Build(records, "checkout")

	assert.Equal(t, []string{"start", "checkout", "pay"}, displayLabels(g))
	// "2 - checkout" is not the first-step occurrence, so nothing is highlighted.
	for _, n := range g.Nodes {
		assert.Equal(t, DefaultNodeColor, n.Color)
	}
	assert.Equal(t, []Edge{
		{Source: 0, Target: 1, Weight: 5},
		{Source: 1, Target: 2, Weight: 3},
	}, g.Edges)
}

func TestBuild_HighlightsFirstStep(t *testing.T) {
	records := []TransitionRecord{
		rec("1 - checkout", "2 - pay", 7),
		rec("2 - pay", "3 - checkout", 2),
		rec("3 - checkout", "4 - done", 2),
	}

	g := Build(records, "checkout")

	require.Len(t, g.Nodes, 4)
	assert.Equal(t, DefaultHighlightColor, g.Nodes[0].Color)
	for _, n := range g.Nodes[1:] {
		assert.Equal(t, DefaultNodeColor, n.Color, "node %s", n.Label)
	}
	assert.Equal(t, 0, g.Highlighted(DefaultHighlightColor))
	assert.Equal(t, 0, g.Focal("checkout"))
}

func TestBuild_SameColorsStillFindFocal(t *testing.T) {
	b := NewBuilder(Palette{Default: "#000000", Highlight: "#000000"})
	g := b.Build([]TransitionRecord{rec("1 - start", "2 - pay", 1), rec("1 - pay", "2 - done", 1)}, "pay")
	assert.Equal(t, 2, g.Focal("pay"))
	assert.Equal(t, -1, g.Focal(AllEvents))
}

func TestBuild_AllLeavesDefaultColors(t *testing.T) {
	records := []TransitionRecord{
		rec("1 - checkout", "2 - pay", 7),
		rec("1 - All", "2 - pay", 1),
	}

	g := Build(records, AllEvents)

	for _, n := range g.Nodes {
		assert.Equal(t, DefaultNodeColor, n.Color)
	}
	assert.Equal(t, -1, g.Highlighted(DefaultHighlightColor))
}

func TestBuild_MissingFocalNodeIsNotAnError(t *testing.T) {
	g := Build([]TransitionRecord{rec("1 - start", "2 - pay", 1)}, "refund")
	assert.Equal(t, -1, g.Highlighted(DefaultHighlightColor))
	assert.Len(t, g.Nodes, 2)
}

func TestBuild_DropsIncompleteRecords(t *testing.T) {
	orphan := label("9 - orphan")
	start := label("1 - start")
	records := []TransitionRecord{
		{Source: nil, Target: &orphan, Weight: 10},
		rec("1 - start", "2 - pay", 4),
		{Source: &start, Target: nil, Weight: 3},
	}

	g := Build(records, AllEvents)

	assert.Equal(t, []string{"start", "pay"}, displayLabels(g))
	assert.Equal(t, []Edge{{Source: 0, Target: 1, Weight: 4}}, g.Edges)
}

func TestBuild_EmptyInput(t *testing.T) {
	tests := []struct {
		name    string
		records []TransitionRecord
	}{
		{name: "nil", records: nil},
		{name: "empty", records: []TransitionRecord{}},
		{name: "only incomplete", records: []TransitionRecord{{Weight: 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Build(tt.records, "checkout")
			require.NotNil(t, g.Nodes)
			require.NotNil(t, g.Edges)
			assert.Empty(t, g.Nodes)
			assert.Empty(t, g.Edges)
			assert.True(t, g.Empty())
		})
	}
}

func TestBuild_FirstSeenOrder(t *testing.T) {
	// Target of the first record precedes the source of the second.
	records := []TransitionRecord{
		rec("2 - b", "3 - c", 1),
		rec("1 - a", "2 - b", 1),
		rec("3 - c", "1 - a", 1),
		rec("4 - d", "2 - b", 1),
	}

	g := Build(records, AllEvents)

	assert.Equal(t, []string{"b", "c", "a", "d"}, displayLabels(g))
	assert.Equal(t, []Edge{
		{Source: 0, Target: 1, Weight: 1},
		{Source: 2, Target: 0, Weight: 1},
		{Source: 1, Target: 2, Weight: 1},
		{Source: 3, Target: 0, Weight: 1},
	}, g.Edges)
}

func TestBuild_SameNameDifferentOrdinal(t *testing.T) {
	g := Build([]TransitionRecord{
		rec("1 - menu", "2 - menu", 5),
	}, "menu")

	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "menu", g.Nodes[0].DisplayLabel)
	assert.Equal(t, "menu", g.Nodes[1].DisplayLabel)
	assert.Equal(t, DefaultHighlightColor, g.Nodes[0].Color)
	assert.Equal(t, DefaultNodeColor, g.Nodes[1].Color)
}

func TestBuild_NodeValue(t *testing.T) {
	g := Build([]TransitionRecord{
		rec("1 - start", "2 - faq", 6),
		rec("1 - start", "2 - pay", 4),
		rec("2 - faq", "3 - pay", 1),
	}, AllEvents)

	values := map[string]int64{}
	for _, n := range g.Nodes {
		values[n.Label.String()] = n.Value
	}
	assert.Equal(t, int64(10), values["1 - start"])
	assert.Equal(t, int64(6), values["2 - faq"])
	assert.Equal(t, int64(4), values["2 - pay"])
	assert.Equal(t, int64(1), values["3 - pay"])
	assert.Equal(t, int64(11), g.TotalWeight())
}

func TestBuilder_CustomPalette(t *testing.T) {
	b := NewBuilder(Palette{Highlight: "#ff0000"})
	g := b.Build([]TransitionRecord{rec("1 - pay", "2 - done", 1)}, "pay")

	assert.Equal(t, Color("#ff0000"), g.Nodes[0].Color)
	assert.Equal(t, DefaultNodeColor, g.Nodes[1].Color)
	assert.Equal(t, DefaultNodeColor, b.Palette().Default)
}

func TestBuilder_BuildRaw(t *testing.T) {
	b := NewBuilder(DefaultPalette())

	t.Run("valid rows", func(t *testing.T) {
		g, err := b.BuildRaw([]RawTransition{
			{Source: strp("1 - start"), Target: strp("2 - checkout"), Weight: 5},
			{Source: nil, Target: strp("7 - lost"), Weight: 2},
			{Source: strp("2 - checkout"), Target: strp("3 - pay"), Weight: 3},
		}, "start")
		require.NoError(t, err)
		assert.Equal(t, []string{"start", "checkout", "pay"}, displayLabels(g))
		assert.Len(t, g.Edges, 2)
		assert.Equal(t, DefaultHighlightColor, g.Nodes[0].Color)
	})

	t.Run("malformed label propagates", func(t *testing.T) {
		g, err := b.BuildRaw([]RawTransition{
			{Source: strp("start"), Target: strp("2 - pay"), Weight: 1},
		}, AllEvents)
		assert.Nil(t, g)
		var fe *FormatError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "start", fe.Label)
	})
}

// syntheticRecords produces a deterministic mix of complete, incomplete
// and repeated transitions.
func syntheticRecords(n int) []TransitionRecord {
	names := []string{"start", "faq", "checkout", "pay", "handoff", "feedback"}
	out := make([]TransitionRecord, 0, n)
	for i := 0; i < n; i++ {
		src := NewStepLabel(i%4+1, names[i%len(names)])
		dst := NewStepLabel(i%4+2, names[(i*7+3)%len(names)])
		r := Transition(src, dst, int64(i%9))
		switch i % 11 {
		case 3:
			r.Source = nil
		case 7:
			r.Target = nil
		}
		out = append(out, r)
	}
	return out
}

func TestBuild_Properties(t *testing.T) {
	for _, n := range []int{0, 1, 5, 40, 250} {
		for _, focal := range []FocalEvent{AllEvents, "checkout", "start", "missing"} {
			t.Run(fmt.Sprintf("n=%d/focal=%s", n, focal), func(t *testing.T) {
				records := syntheticRecords(n)

				g1 := Build(records, focal)
				g2 := Build(records, focal)
				assert.Equal(t, g1, g2, "same input must give the same graph")

				require.NoError(t, g1.Validate())

				complete := 0
				for _, r := range records {
					if r.Complete() {
						complete++
					}
				}
				assert.Len(t, g1.Edges, complete)

				for i, node := range g1.Nodes {
					want := DefaultNodeColor
					if !focal.IsAll() && node.Label == (StepLabel{Ordinal: "1", Name: string(focal)}) {
						want = DefaultHighlightColor
					}
					assert.Equal(t, want, node.Color, "node %d %s", i, node.Label)
				}
			})
		}
	}
}

func TestGraph_Validate(t *testing.T) {
	a, b := label("1 - a"), label("2 - b")

	t.Run("duplicate label", func(t *testing.T) {
		g := &Graph{Nodes: []Node{{Label: a}, {Label: a}}}
		assert.ErrorContains(t, g.Validate(), "duplicate node")
	})

	t.Run("edge out of range", func(t *testing.T) {
		g := &Graph{
			Nodes: []Node{{Label: a}, {Label: b}},
			Edges: []Edge{{Source: 0, Target: 2, Weight: 1}},
		}
		assert.ErrorContains(t, g.Validate(), "out of range")
	})
}
