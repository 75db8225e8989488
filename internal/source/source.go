// Package source defines where transition data comes from. Concrete sources
// register themselves from their init functions; import them with a blank
// identifier to make them available:
//
//	import _ "github.com/mgb22/chatbotjourney/internal/source/sqlite"
package source

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mgb22/chatbotjourney/internal/flow"
	"github.com/mgb22/chatbotjourney/internal/journey"
)

// Config describes how to reach a source.
type Config struct {
	Type    string
	Path    string
	DSN     string
	Table   string
	Options map[string]string
}

// DefaultTable is the session-events table SQL sources read.
const DefaultTable = "events"

// TableName returns the configured table or DefaultTable.
func (c Config) TableName() string {
	if c.Table == "" {
		return DefaultTable
	}
	return c.Table
}

// Source supplies the event catalog and transition records.
// Labels are parsed at this boundary; a malformed one yields *flow.FormatError.
type Source interface {
	Open(ctx context.Context, cfg Config) error
	Close() error
	// Events returns every event name the source knows, in any order.
	Events(ctx context.Context) ([]string, error)
	// Transitions returns the records selected by q.
	Transitions(ctx context.Context, q journey.Query) ([]flow.TransitionRecord, error)
}

// Watchable is implemented by sources backed by a local file whose changes
// should refresh connected clients.
type Watchable interface {
	WatchPath() string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Source)
)

// Register adds a source factory under name.
func Register(name string, factory func(*slog.Logger) Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// IsRegistered reports whether a source type is known.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// List returns the registered source names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownSourceError is returned for an unregistered source type.
type UnknownSourceError struct {
	Type      string
	Available []string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source type %q\nAvailable sources: %v\nHint: Check source.type in journey.yaml", e.Type, e.Available)
}

// New creates an unopened source for cfg.Type.
func New(cfg Config, logger *slog.Logger) (Source, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("source type not specified")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	registryMu.RLock()
	factory, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownSourceError{Type: cfg.Type, Available: List()}
	}
	return factory(logger), nil
}

// Open creates and opens a source in one step.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Source, error) {
	src, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := src.Open(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to open %s source: %w", cfg.Type, err)
	}
	return src, nil
}

// Catalog loads the selectable focal events from src.
func Catalog(ctx context.Context, src Source) ([]string, error) {
	events, err := src.Events(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return journey.Catalog(events), nil
}
