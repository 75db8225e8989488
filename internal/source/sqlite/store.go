// Package sqlite provides a local SQLite event store. It is both a
// transition source and the target of `journey import`.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/mgb22/chatbotjourney/internal/journey"
	"github.com/mgb22/chatbotjourney/internal/source"
	"github.com/mgb22/chatbotjourney/internal/source/sqlsource"

	_ "modernc.org/sqlite" // sqlite driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// DefaultPath is where the store lives when no path is configured.
const DefaultPath = ".journey/events.db"

func init() {
	source.Register("sqlite", func(l *slog.Logger) source.Source { return New(l) })
}

// Store is a SQLite-backed event store.
type Store struct {
	sqlsource.Base
	path string
}

// New creates an unopened store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{Base: sqlsource.Base{Logger: logger, Placeholder: sqlsource.Question}}
}

// Open opens (creating if needed) the database and applies migrations.
// Use ":memory:" for an in-memory store.
func (s *Store) Open(ctx context.Context, cfg source.Config) error {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}

	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create store directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	s.Logger.Debug("opening sqlite store", slog.String("path", path))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	cfg.Table = source.DefaultTable
	if err := s.Attach(db, cfg); err != nil {
		_ = db.Close()
		return err
	}
	s.path = path
	return nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the applied schema version.
func (s *Store) MigrationVersion() (int64, error) {
	if s.DB == nil {
		return 0, fmt.Errorf("database not opened")
	}
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite"); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}
	return goose.GetDBVersion(s.DB)
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// WatchPath implements source.Watchable so imports made by another
// process refresh connected clients. In-memory stores are not watched.
func (s *Store) WatchPath() string {
	if s.path == ":memory:" {
		return ""
	}
	return s.path
}

// Import records one import batch.
type Import struct {
	ID         string
	Origin     string
	Rows       int
	ImportedAt time.Time
}

// Import writes steps in one transaction, replacing any step already
// stored at the same (session_id, seq).
func (s *Store) Import(ctx context.Context, steps []journey.Step, origin string) (*Import, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("database not opened")
	}

	imp := &Import{
		ID:         uuid.New().String(),
		Origin:     origin,
		Rows:       len(steps),
		ImportedAt: time.Now().UTC(),
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO imports (id, origin, row_count, imported_at) VALUES (?, ?, ?, ?)`,
		imp.ID, imp.Origin, imp.Rows, imp.ImportedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to record import: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (session_id, seq, event_id, import_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO UPDATE SET
			event_id = excluded.event_id,
			import_id = excluded.import_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, st := range steps {
		if _, err := stmt.ExecContext(ctx, st.SessionID, st.Seq, st.Event, imp.ID); err != nil {
			return nil, fmt.Errorf("failed to insert step %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	s.Logger.Info("imported steps", slog.String("import_id", imp.ID), slog.Int("rows", imp.Rows))
	return imp, nil
}

// ListImports returns import batches, newest first.
func (s *Store) ListImports(ctx context.Context, limit int) ([]Import, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, origin, row_count, imported_at FROM imports ORDER BY imported_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var imports []Import
	for rows.Next() {
		var imp Import
		if err := rows.Scan(&imp.ID, &imp.Origin, &imp.Rows, &imp.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}
