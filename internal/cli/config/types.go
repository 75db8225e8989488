// Package config loads CLI configuration from journey.yaml, JOURNEY_*
// environment variables and command-line flags.
//
// The section types live in internal/config so the HTTP server can use
// them without depending on the CLI; they are aliased here.
package config

import (
	sharedcfg "github.com/mgb22/chatbotjourney/internal/config"
)

// SourceConfig is an alias for the shared source section.
type SourceConfig = sharedcfg.SourceConfig

// ChartConfig is an alias for the shared chart section.
type ChartConfig = sharedcfg.ChartConfig

// WindowConfig is an alias for the shared window section.
type WindowConfig = sharedcfg.WindowConfig

// ServerConfig is an alias for the shared server section.
type ServerConfig = sharedcfg.ServerConfig

// Config holds all CLI configuration options.
type Config struct {
	Source       SourceConfig `koanf:"source"`
	Chart        ChartConfig  `koanf:"chart"`
	Window       WindowConfig `koanf:"window"`
	Server       ServerConfig `koanf:"server"`
	Verbose      bool         `koanf:"verbose"`
	OutputFormat string       `koanf:"output"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// DefaultOutput auto-detects: TTY gets text, anything else markdown.
const DefaultOutput = "auto"

// Default returns a Config populated with defaults only.
func Default() *Config {
	return &Config{
		Source:       SourceConfig{Type: sharedcfg.DefaultSourceType, Path: sharedcfg.DefaultSourcePath},
		Chart:        sharedcfg.DefaultChart(),
		Window:       sharedcfg.DefaultWindow(),
		Server:       sharedcfg.DefaultServer(),
		OutputFormat: DefaultOutput,
	}
}
