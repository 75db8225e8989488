// Package config provides the configuration sections shared by the CLI
// and the HTTP server, independent of how they are loaded.
package config

import (
	"time"

	"github.com/mgb22/chatbotjourney/internal/flow"
	"github.com/mgb22/chatbotjourney/internal/flow/sankey"
	"github.com/mgb22/chatbotjourney/internal/journey"
	"github.com/mgb22/chatbotjourney/internal/source"
)

// SourceConfig selects and addresses the transition source.
type SourceConfig struct {
	Type  string `koanf:"type"` // sqlite, duckdb, postgres, file
	Path  string `koanf:"path"`
	DSN   string `koanf:"dsn"`
	Table string `koanf:"table"`

	// Driver-specific options, e.g. duckdb csv or postgres host/dbname.
	Options map[string]string `koanf:"options"`
}

// ToSource converts the section to a source.Config.
func (c SourceConfig) ToSource() source.Config {
	return source.Config{
		Type:    c.Type,
		Path:    c.Path,
		DSN:     c.DSN,
		Table:   c.Table,
		Options: c.Options,
	}
}

// ChartConfig holds diagram colors and figure layout.
type ChartConfig struct {
	NodeColor      string `koanf:"node_color"`
	HighlightColor string `koanf:"highlight_color"`
	NodePad        int    `koanf:"node_pad"`
	NodeThickness  int    `koanf:"node_thickness"`
	Height         int    `koanf:"height"`
	FontSize       int    `koanf:"font_size"`
}

// Palette returns the node colors.
func (c ChartConfig) Palette() flow.Palette {
	return flow.Palette{
		Default:   flow.Color(c.NodeColor),
		Highlight: flow.Color(c.HighlightColor),
	}
}

// Style returns the figure layout.
func (c ChartConfig) Style() sankey.Style {
	s := sankey.DefaultStyle()
	s.NodePad = c.NodePad
	s.NodeThickness = c.NodeThickness
	s.Height = c.Height
	s.FontSize = c.FontSize
	return s
}

// WindowConfig bounds and defaults the focal-event step window.
type WindowConfig struct {
	StepsBefore int `koanf:"steps_before"`
	StepsAfter  int `koanf:"steps_after"`
	MaxSteps    int `koanf:"max_steps"`
}

// Query builds a query for event using the configured defaults.
func (c WindowConfig) Query(event string) journey.Query {
	return journey.NewQuery(flow.FocalEvent(event), c.StepsBefore, c.StepsAfter)
}

// ServerConfig configures `journey serve`.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	Watch             bool          `koanf:"watch"`
	Debounce          time.Duration `koanf:"debounce"`
	AllowedOrigins    []string      `koanf:"allowed_origins"`
}
