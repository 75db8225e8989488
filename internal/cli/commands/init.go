package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgb22/chatbotjourney/internal/cli/output"
	sharedcfg "github.com/mgb22/chatbotjourney/internal/config"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new journey project",
		Long: `Initialize a journey project with a journey.yaml configuration.

The default configuration reads the local SQLite store filled by
'journey import'. Use --example to also write a sample event log and a
pre-aggregated snapshot, with the configuration pointing at the log.`,
		Example: `  # Initialize in current directory
  journey init

  # Initialize a working example in a new directory
  journey init demo --example

  # Force overwrite existing config
  journey init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			r := NewCommandContextWithoutSource(cmd).Renderer

			template := "minimal"
			if example {
				template = "example"
			}
			return runInit(r, dir, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Create an example project with sample events")

	return cmd
}

func runInit(r *output.Renderer, dir, template string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, sharedcfg.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", sharedcfg.ConfigFileName)
	}

	if err := copyTemplate(template, dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles(template)
	groups := groupTemplateFiles(files)

	r.Header(2, "Configuration")
	for _, f := range groups["config"] {
		r.StatusLine(f, "success", "")
	}
	if len(groups["data"]) > 0 {
		r.Println("")
		r.Header(2, "Sample data")
		for _, f := range groups["data"] {
			r.StatusLine(f, "success", "")
		}
	}

	r.Println("")
	r.Success("journey project initialized!")
	r.Println("")
	r.Println("Next steps:")
	if template == "example" {
		r.Println("  journey events              List focal events")
		r.Println("  journey flow -e checkout    Flow after checkout")
		r.Println("  journey serve --open        Interactive diagram")
	} else {
		r.Println("  journey import events.csv   Load an event log")
		r.Println("  journey flow                Every transition")
		r.Println("  journey serve --open        Interactive diagram")
	}
	return nil
}
