package commands

import (
	"github.com/spf13/cobra"

	"github.com/mgb22/chatbotjourney/internal/cli/output"
	"github.com/mgb22/chatbotjourney/internal/source"
)

// NewEventsCommand creates the events command.
func NewEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List the focal events available in the source",
		Long: `List every event that can be selected as the focal event of a flow.

The first entry is always "All", which draws every transition without a
step window.`,
		Example: `  # List events from the configured source
  journey events

  # From a CSV export, as JSON
  journey events --source file --source-path events.csv -o json`,
		Args: cobra.NoArgs,
		RunE: runEvents,
	}
}

func runEvents(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	events, err := source.Catalog(cmd.Context(), cmdCtx.Source)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(output.EventsOutput{Events: events, Count: len(events)})
	case output.ModeMarkdown:
		r.Header(2, "Events")
		for _, e := range events {
			r.Println("- " + e)
		}
	default:
		r.Header(1, "Events")
		for i, e := range events {
			if i == 0 {
				r.Println("  " + r.Styles().Muted.Render(e))
				continue
			}
			r.Println("  " + e)
		}
	}
	return nil
}
