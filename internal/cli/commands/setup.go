package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mgb22/chatbotjourney/internal/cli/config"
	"github.com/mgb22/chatbotjourney/internal/cli/output"
	"github.com/mgb22/chatbotjourney/internal/source"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Source   source.Source
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an opened source.
// The returned cleanup closes the source and must be called.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutSource(cmd)

	src, err := source.Open(cmd.Context(), cmdCtx.Cfg.Source.ToSource(), cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Source = src

	cleanup := func() {
		if err := src.Close(); err != nil {
			cmdCtx.Logger.Warn("failed to close source", slog.String("error", err.Error()))
		}
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutSource creates a CommandContext for commands
// that don't read transitions.
func NewCommandContextWithoutSource(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the loaded configuration, or defaults when commands
// run without the root command (as in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}
