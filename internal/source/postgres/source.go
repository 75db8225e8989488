// Package postgres reads session events from a PostgreSQL table.
//
//	import _ "github.com/mgb22/chatbotjourney/internal/source/postgres"
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/mgb22/chatbotjourney/internal/source"
	"github.com/mgb22/chatbotjourney/internal/source/sqlsource"
)

func init() {
	source.Register("postgres", func(l *slog.Logger) source.Source { return New(l) })
}

// Source is a PostgreSQL-backed event source.
type Source struct {
	sqlsource.Base
}

// New creates an unopened source. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{Base: sqlsource.Base{Logger: logger, Placeholder: sqlsource.Dollar}}
}

// Open connects using cfg.DSN, or a DSN assembled from cfg.Options.
func (s *Source) Open(ctx context.Context, cfg source.Config) error {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = buildDSN(cfg.Options)
	}

	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("invalid postgres dsn: %w", err)
	}

	s.Logger.Debug("connecting to postgres",
		slog.String("host", connCfg.Host),
		slog.String("database", connCfg.Database),
		slog.String("table", cfg.TableName()))

	db := stdlib.OpenDB(*connCfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	if err := s.Attach(db, cfg); err != nil {
		_ = db.Close()
		return err
	}
	return nil
}

var dsnDefaults = map[string]string{
	"host":    "localhost",
	"port":    "5432",
	"sslmode": "disable",
}

// buildDSN renders options as a key=value connection string with keys in
// sorted order.
func buildDSN(opts map[string]string) string {
	merged := make(map[string]string, len(opts)+len(dsnDefaults))
	for k, v := range dsnDefaults {
		merged[k] = v
	}
	for k, v := range opts {
		if v != "" {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, merged[k]))
	}
	return strings.Join(parts, " ")
}
