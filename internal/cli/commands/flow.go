package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mgb22/chatbotjourney/internal/cli/output"
	"github.com/mgb22/chatbotjourney/internal/flow"
	"github.com/mgb22/chatbotjourney/internal/flow/sankey"
	"github.com/mgb22/chatbotjourney/internal/journey"
)

// FlowOptions holds options for the flow command.
type FlowOptions struct {
	Event  string
	Before int
	After  int
	Figure string
}

// NewFlowCommand creates the flow command.
func NewFlowCommand() *cobra.Command {
	opts := &FlowOptions{}

	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Build the journey flow around a focal event",
		Long: `Build the Sankey flow of conversation steps around a focal event.

Nodes are steps ("<ordinal> - <event>"), edges are the number of sessions
moving from one step to the next. When a focal event is chosen, the
window keeps --before steps ahead of it and --after steps behind it, and
the focal node is highlighted.

Output adapts to environment:
  - Terminal: node and edge tables with color swatches
  - Piped/Scripted: Markdown tables
  - JSON: machine-readable graph

Use --figure to also write the Plotly figure JSON.`,
		Example: `  # Every transition
  journey flow

  # Five steps after checkout
  journey flow --event checkout --after 5

  # Write a Plotly figure for another tool to render
  journey flow --event checkout --figure checkout.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFlow(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Event, "event", "e", string(flow.AllEvents), "Focal event")
	cmd.Flags().IntVar(&opts.Before, "before", 0, "Steps before the focal event (default: window.steps_before)")
	cmd.Flags().IntVar(&opts.After, "after", 0, "Steps after the focal event (default: window.steps_after)")
	cmd.Flags().StringVar(&opts.Figure, "figure", "", "Write the Plotly figure JSON to this file (- for stdout)")

	return cmd
}

func runFlow(cmd *cobra.Command, opts *FlowOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cmdCtx.Cfg
	before, after := cfg.Window.StepsBefore, cfg.Window.StepsAfter
	if cmd.Flags().Changed("before") {
		before = opts.Before
	}
	if cmd.Flags().Changed("after") {
		after = opts.After
	}

	q := journey.NewQuery(flow.FocalEvent(opts.Event), before, after)
	if err := q.Validate(cfg.Window.MaxSteps); err != nil {
		return err
	}

	records, err := cmdCtx.Source.Transitions(cmd.Context(), q)
	if err != nil {
		return err
	}

	builder := flow.NewBuilder(cfg.Chart.Palette())
	g := builder.Build(records, q.Event)
	cmdCtx.Logger.Debug("built flow", "query", q.String(), "nodes", len(g.Nodes), "edges", len(g.Edges))

	if opts.Figure != "" {
		if err := writeFigure(cmd, opts.Figure, sankey.FromGraph(g, cfg.Chart.Style())); err != nil {
			return err
		}
		if opts.Figure == "-" {
			return nil
		}
	}

	out := flowOutput(q, g)
	r := cmdCtx.Renderer

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	if g.Empty() {
		r.Warn(fmt.Sprintf("No transitions for %s", q))
		return nil
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		renderFlowMarkdown(r, out)
		return nil
	}
	renderFlowText(r, out)
	return nil
}

func writeFigure(cmd *cobra.Command, path string, fig sankey.Figure) error {
	data, err := json.MarshalIndent(fig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode figure: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write figure: %w", err)
	}
	return nil
}

func flowOutput(q journey.Query, g *flow.Graph) output.FlowOutput {
	out := output.FlowOutput{
		Event:       string(q.Event),
		StepsBefore: q.StepsBefore,
		StepsAfter:  q.StepsAfter,
		Nodes:       make([]output.FlowNode, len(g.Nodes)),
		Edges:       make([]output.FlowEdge, len(g.Edges)),
		Summary: output.FlowSummary{
			Nodes:       len(g.Nodes),
			Edges:       len(g.Edges),
			TotalWeight: g.TotalWeight(),
		},
	}
	for i, n := range g.Nodes {
		hl := n.Label.Opens(q.Event)
		if hl {
			out.Summary.Highlighted++
		}
		out.Nodes[i] = output.FlowNode{
			Index:       i,
			Step:        n.Label.String(),
			Label:       n.DisplayLabel,
			Color:       string(n.Color),
			Value:       n.Value,
			Highlighted: hl,
		}
	}
	for i, e := range g.Edges {
		out.Edges[i] = output.FlowEdge{Source: e.Source, Target: e.Target, Value: e.Weight}
	}
	return out
}

func flowTitle(out output.FlowOutput) string {
	if out.StepsBefore == nil || out.StepsAfter == nil {
		return "Flow: " + out.Event
	}
	return fmt.Sprintf("Flow: %s (-%d, +%d)", out.Event, *out.StepsBefore, *out.StepsAfter)
}

func renderFlowText(r *output.Renderer, out output.FlowOutput) {
	styles := r.Styles()
	r.Header(1, flowTitle(out))
	r.Println("")

	nodes := table.NewWriter()
	nodes.SetOutputMirror(r.Writer())
	nodes.SetStyle(table.StyleLight)
	nodes.AppendHeader(table.Row{"#", "Step", "Color", "Users"})
	for _, n := range out.Nodes {
		step := n.Step
		if n.Highlighted {
			step = styles.Highlight.Render(step)
		}
		nodes.AppendRow(table.Row{n.Index, step, r.Swatch(n.Color), n.Value})
	}
	nodes.Render()
	r.Println("")

	edges := table.NewWriter()
	edges.SetOutputMirror(r.Writer())
	edges.SetStyle(table.StyleLight)
	edges.AppendHeader(table.Row{"From", "To", "Users"})
	for _, e := range out.Edges {
		edges.AppendRow(table.Row{out.Nodes[e.Source].Step, out.Nodes[e.Target].Step, e.Value})
	}
	edges.AppendFooter(table.Row{"", "Total", out.Summary.TotalWeight})
	edges.Render()

	r.Println(styles.Muted.Render(fmt.Sprintf("%d steps, %d transitions", out.Summary.Nodes, out.Summary.Edges)))
}

func renderFlowMarkdown(r *output.Renderer, out output.FlowOutput) {
	r.Header(1, flowTitle(out))
	r.Println(output.FormatKeyValue("Steps", strconv.Itoa(out.Summary.Nodes)))
	r.Println(output.FormatKeyValue("Transitions", strconv.Itoa(out.Summary.Edges)))
	r.Println(output.FormatKeyValue("Sessions", strconv.FormatInt(out.Summary.TotalWeight, 10)))
	r.Println("")

	r.Header(2, "Steps")
	r.Println(output.FormatTableRow("#", "Step", "Color", "Users"))
	r.Println(output.FormatTableSeparator(4))
	for _, n := range out.Nodes {
		step := n.Step
		if n.Highlighted {
			step = "**" + step + "**"
		}
		r.Println(output.FormatTableRow(strconv.Itoa(n.Index), step, n.Color, strconv.FormatInt(n.Value, 10)))
	}
	r.Println("")

	r.Header(2, "Transitions")
	r.Println(output.FormatTableRow("From", "To", "Users"))
	r.Println(output.FormatTableSeparator(3))
	for _, e := range out.Edges {
		r.Println(output.FormatTableRow(out.Nodes[e.Source].Step, out.Nodes[e.Target].Step, strconv.FormatInt(e.Value, 10)))
	}
}
