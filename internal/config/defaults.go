package config

import (
	"time"

	"github.com/mgb22/chatbotjourney/internal/flow"
	"github.com/mgb22/chatbotjourney/internal/flow/sankey"
	"github.com/mgb22/chatbotjourney/internal/journey"
)

// Default configuration values.
const (
	DefaultSourceType  = "sqlite"
	DefaultSourcePath  = ".journey/events.db"
	DefaultServerAddr  = "127.0.0.1:8765"
	DefaultReadTimeout = 10 * time.Second
	DefaultShutdown    = 5 * time.Second
	DefaultDebounce    = 200 * time.Millisecond
)

// DefaultChart returns the chart section with the stock colors and layout.
func DefaultChart() ChartConfig {
	s := sankey.DefaultStyle()
	return ChartConfig{
		NodeColor:      string(flow.DefaultNodeColor),
		HighlightColor: string(flow.DefaultHighlightColor),
		NodePad:        s.NodePad,
		NodeThickness:  s.NodeThickness,
		Height:         s.Height,
		FontSize:       s.FontSize,
	}
}

// DefaultWindow returns the stock step window.
func DefaultWindow() WindowConfig {
	return WindowConfig{
		StepsBefore: journey.DefaultStepsBefore,
		StepsAfter:  journey.DefaultStepsAfter,
		MaxSteps:    journey.MaxSteps,
	}
}

// DefaultServer returns the stock server section.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Addr:              DefaultServerAddr,
		ReadHeaderTimeout: DefaultReadTimeout,
		ShutdownTimeout:   DefaultShutdown,
		Watch:             true,
		Debounce:          DefaultDebounce,
	}
}

// Defaults returns every default as a flat koanf key map.
func Defaults() map[string]any {
	chart := DefaultChart()
	window := DefaultWindow()
	server := DefaultServer()
	return map[string]any{
		"source.type":                DefaultSourceType,
		"source.path":                DefaultSourcePath,
		"chart.node_color":           chart.NodeColor,
		"chart.highlight_color":      chart.HighlightColor,
		"chart.node_pad":             chart.NodePad,
		"chart.node_thickness":       chart.NodeThickness,
		"chart.height":               chart.Height,
		"chart.font_size":            chart.FontSize,
		"window.steps_before":        window.StepsBefore,
		"window.steps_after":         window.StepsAfter,
		"window.max_steps":           window.MaxSteps,
		"server.addr":                server.Addr,
		"server.read_header_timeout": server.ReadHeaderTimeout.String(),
		"server.shutdown_timeout":    server.ShutdownTimeout.String(),
		"server.watch":               server.Watch,
		"server.debounce":            server.Debounce.String(),
	}
}
