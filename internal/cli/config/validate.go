package config

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/mgb22/chatbotjourney/internal/cli/output"
	"github.com/mgb22/chatbotjourney/internal/source"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if err := c.ValidateSource(); err != nil {
		return err
	}
	if err := c.ValidateChart(); err != nil {
		return err
	}
	if err := c.ValidateWindow(); err != nil {
		return err
	}
	if c.OutputFormat != "" && !slices.Contains(output.ValidModes, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q\nHint: Use one of %v", c.OutputFormat, output.ValidModes)
	}
	return nil
}

// ValidateSource checks the source section against the registered sources.
func (c *Config) ValidateSource() error {
	if c.Source.Type == "" {
		return fmt.Errorf("source.type is required\nHint: Set source.type in journey.yaml or pass --source")
	}
	if !source.IsRegistered(c.Source.Type) {
		return &source.UnknownSourceError{Type: c.Source.Type, Available: source.List()}
	}
	switch c.Source.Type {
	case "file":
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for file sources\nHint: Pass --source-path events.csv")
		}
	case "postgres":
		if c.Source.DSN == "" && len(c.Source.Options) == 0 {
			return fmt.Errorf("postgres source needs source.dsn or source.options\nHint: Pass --dsn postgres://user@host/db")
		}
	}
	return nil
}

// ValidateChart checks colors and layout.
func (c *Config) ValidateChart() error {
	for name, v := range map[string]string{
		"chart.node_color":      c.Chart.NodeColor,
		"chart.highlight_color": c.Chart.HighlightColor,
	} {
		if !hexColor.MatchString(v) {
			return fmt.Errorf("%s must be a #RRGGBB color, got %q", name, v)
		}
	}
	if err := c.Chart.Style().Validate(); err != nil {
		return fmt.Errorf("invalid chart layout: %w", err)
	}
	return nil
}

// ValidateWindow checks the step window defaults against the maximum.
func (c *Config) ValidateWindow() error {
	w := c.Window
	if w.MaxSteps < 0 {
		return fmt.Errorf("window.max_steps must not be negative, got %d", w.MaxSteps)
	}
	if err := w.Query("_").Validate(w.MaxSteps); err != nil {
		return fmt.Errorf("invalid window defaults: %w", err)
	}
	return nil
}
