// Package file serves transitions from local exports: CSV session events,
// or JSON/YAML snapshots of pre-aggregated pipe responses.
//
// A snapshot holds a default response under "data" and, optionally,
// per-event responses under "events":
//
//	{"data": [{"source": "1 - start", "target": "2 - faq", "value": 4}],
//	 "events": {"checkout": [...]}}
//
// A bare JSON array is read as "data". Snapshot rows are already
// windowed upstream, so the query window does not apply to them.
// The file is re-read on every call.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mgb22/chatbotjourney/internal/flow"
	"github.com/mgb22/chatbotjourney/internal/journey"
	"github.com/mgb22/chatbotjourney/internal/source"
)

func init() {
	source.Register("file", func(l *slog.Logger) source.Source { return New(l) })
}

// Format is the on-disk layout of a file source.
type Format string

// Supported formats, chosen by file extension.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat maps a path's extension to a Format.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported file type %q (expected .csv, .json, .yaml or .yml)", filepath.Ext(path))
	}
}

// Snapshot is a decoded JSON or YAML export.
type Snapshot struct {
	Data   []flow.RawTransition            `json:"data" yaml:"data"`
	Events map[string][]flow.RawTransition `json:"events" yaml:"events"`
}

// Rows returns the rows recorded for focal. Data holds the All response;
// a focal event without an entry in Events has no rows.
func (s *Snapshot) Rows(focal flow.FocalEvent) []flow.RawTransition {
	if focal.IsAll() {
		return s.Data
	}
	return s.Events[string(focal)]
}

// Source reads a local export.
type Source struct {
	path   string
	format Format
	logger *slog.Logger
}

// New creates an unopened file source.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{logger: logger}
}

// Open checks that cfg.Path exists and has a supported extension.
func (s *Source) Open(_ context.Context, cfg source.Config) error {
	if cfg.Path == "" {
		return fmt.Errorf("file source requires a path")
	}
	format, err := DetectFormat(cfg.Path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return fmt.Errorf("cannot read %s: %w", cfg.Path, err)
	}
	s.path = cfg.Path
	s.format = format
	return nil
}

// Close is a no-op.
func (s *Source) Close() error { return nil }

// WatchPath implements source.Watchable.
func (s *Source) WatchPath() string { return s.path }

// Events lists the event names present in the file.
func (s *Source) Events(ctx context.Context) ([]string, error) {
	if s.format == FormatCSV {
		steps, err := s.steps(ctx)
		if err != nil {
			return nil, err
		}
		events := make([]string, 0, len(steps))
		for _, st := range steps {
			events = append(events, st.Event)
		}
		return events, nil
	}

	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	var events []string
	collect := func(rows []flow.RawTransition) {
		for _, r := range rows {
			for _, l := range []*string{r.Source, r.Target} {
				if l == nil {
					continue
				}
				if label, err := flow.ParseStepLabel(*l); err == nil {
					events = append(events, label.Name)
				}
			}
		}
	}
	collect(snap.Data)
	for name, rows := range snap.Events {
		events = append(events, name)
		collect(rows)
	}
	return events, nil
}

// Transitions returns the records for q. Malformed labels in a snapshot
// surface as *flow.FormatError.
func (s *Source) Transitions(ctx context.Context, q journey.Query) ([]flow.TransitionRecord, error) {
	if s.format == FormatCSV {
		steps, err := s.steps(ctx)
		if err != nil {
			return nil, err
		}
		return journey.Aggregate(journey.GroupSessions(steps), q), nil
	}

	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	records, err := flow.ParseTransitions(snap.Rows(q.Event))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return records, nil
}

func (s *Source) read() ([]byte, error) {
	if s.path == "" {
		return nil, fmt.Errorf("file source not opened")
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return data, nil
}

func (s *Source) steps(_ context.Context) ([]journey.Step, error) {
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	steps, err := ReadStepsCSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	s.logger.Debug("read csv steps", slog.String("path", s.path), slog.Int("rows", len(steps)))
	return steps, nil
}

func (s *Source) snapshot() (*Snapshot, error) {
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	snap, err := DecodeSnapshot(data, s.format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return snap, nil
}

// DecodeSnapshot parses a JSON or YAML export.
func DecodeSnapshot(data []byte, format Format) (*Snapshot, error) {
	var snap Snapshot
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &snap, nil
	}

	switch format {
	case FormatJSON:
		if trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &snap.Data); err != nil {
				return nil, fmt.Errorf("invalid JSON: %w", err)
			}
			return &snap, nil
		}
		if err := json.Unmarshal(trimmed, &snap); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(trimmed, &snap); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("format %q is not a snapshot format", format)
	}
	return &snap, nil
}

var _ source.Watchable = (*Source)(nil)
