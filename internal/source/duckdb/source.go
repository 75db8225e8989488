// Package duckdb reads session events from a DuckDB database, or directly
// from a CSV export through read_csv_auto.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/mgb22/chatbotjourney/internal/source"
	"github.com/mgb22/chatbotjourney/internal/source/sqlsource"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	source.Register("duckdb", func(l *slog.Logger) source.Source { return New(l) })
}

// Params holds DuckDB-specific options decoded from source.Config.Options.
type Params struct {
	// CSV exposes a session-events CSV file as the configured table.
	CSV string `mapstructure:"csv"`

	// Session settings such as memory_limit or threads.
	MemoryLimit string `mapstructure:"memory_limit"`
	Threads     string `mapstructure:"threads"`
}

// Source is a DuckDB-backed event source.
type Source struct {
	sqlsource.Base
	params Params
}

// New creates an unopened source.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{Base: sqlsource.Base{Logger: logger, Placeholder: sqlsource.Question}}
}

// DecodeParams reads Params from free-form options.
func DecodeParams(opts map[string]string) (Params, error) {
	var p Params
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &p,
		ErrorUnused: true,
	})
	if err != nil {
		return p, err
	}
	if err := dec.Decode(opts); err != nil {
		return p, fmt.Errorf("invalid duckdb options: %w", err)
	}
	return p, nil
}

// Open opens the database at cfg.Path (":memory:" when empty).
func (s *Source) Open(ctx context.Context, cfg source.Config) error {
	params, err := DecodeParams(cfg.Options)
	if err != nil {
		return err
	}
	if err := sqlsource.ValidateTable(cfg.TableName()); err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	if err := applySettings(ctx, db, params); err != nil {
		_ = db.Close()
		return err
	}

	if params.CSV != "" {
		if err := attachCSV(ctx, db, cfg.TableName(), params.CSV); err != nil {
			_ = db.Close()
			return err
		}
		s.Logger.Debug("attached csv", slog.String("file", params.CSV), slog.String("table", cfg.TableName()))
	}

	if err := s.Attach(db, cfg); err != nil {
		_ = db.Close()
		return err
	}
	s.params = params
	return nil
}

// WatchPath returns the CSV file backing the source, if any.
func (s *Source) WatchPath() string {
	return s.params.CSV
}

func applySettings(ctx context.Context, db *sql.DB, p Params) error {
	settings := [][2]string{{"memory_limit", p.MemoryLimit}, {"threads", p.Threads}}
	for _, kv := range settings {
		if kv[1] == "" {
			continue
		}
		stmt := fmt.Sprintf("SET %s = '%s'", kv[0], strings.ReplaceAll(kv[1], "'", "''"))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", kv[0], err)
		}
	}
	return nil
}

// attachCSV creates a view so every query reads the file as it is now.
func attachCSV(ctx context.Context, db *sql.DB, table, file string) error {
	absPath, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	query := fmt.Sprintf(
		"CREATE OR REPLACE VIEW %s AS SELECT * FROM read_csv_auto('%s', header=true)",
		table,
		strings.ReplaceAll(absPath, "'", "''"),
	)
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to load CSV: %w", err)
	}
	return nil
}

var _ source.Watchable = (*Source)(nil)
