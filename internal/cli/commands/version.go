package commands

import (
	"github.com/spf13/cobra"

	"github.com/mgb22/chatbotjourney/internal/cli/output"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version string
	Commit  string
	Built   string
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display journey version and build information.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := NewCommandContextWithoutSource(cmd).Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(output.VersionOutput{Version: info.Version, Commit: info.Commit, Built: info.Built})
			}
			r.Println("journey v" + info.Version)
			r.Println(r.Styles().Muted.Render("Chatbot journey flows for Sankey diagrams"))
			if info.Commit != "" {
				r.Println(r.Styles().Muted.Render("commit " + info.Commit + ", built " + info.Built))
			}
			return nil
		},
	}
}
