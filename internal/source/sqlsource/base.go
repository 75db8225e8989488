// Package sqlsource provides the database/sql plumbing shared by the SQL
// backed sources. Each backend embeds Base and supplies a driver and a
// placeholder style.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mgb22/chatbotjourney/internal/flow"
	"github.com/mgb22/chatbotjourney/internal/journey"
	"github.com/mgb22/chatbotjourney/internal/source"
)

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// Question renders "?" placeholders (SQLite, DuckDB).
func Question(int) string { return "?" }

// Dollar renders "$n" placeholders (PostgreSQL).
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateTable rejects table names that are not plain (optionally
// schema-qualified) identifiers, since they are spliced into SQL.
func ValidateTable(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// Base reads session events from a table with the columns
// (session_id, seq, event_id).
type Base struct {
	DB          *sql.DB
	Cfg         source.Config
	Logger      *slog.Logger
	Placeholder Placeholder
}

// Close closes the database connection.
func (b *Base) Close() error {
	if b.DB != nil {
		b.logger().Debug("closing database connection")
		return b.DB.Close()
	}
	return nil
}

// Attach installs an open connection after validating the table name.
func (b *Base) Attach(db *sql.DB, cfg source.Config) error {
	if err := ValidateTable(cfg.TableName()); err != nil {
		return err
	}
	b.DB = db
	b.Cfg = cfg
	return nil
}

func (b *Base) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

func (b *Base) placeholder(n int) string {
	if b.Placeholder == nil {
		return Question(n)
	}
	return b.Placeholder(n)
}

// Events lists the distinct event names in the table.
func (b *Base) Events(ctx context.Context) ([]string, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	query := fmt.Sprintf(`SELECT DISTINCT event_id FROM %s WHERE event_id IS NOT NULL ORDER BY event_id`, b.Cfg.TableName())
	rows, err := b.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// StepsQuery returns the SQL and arguments that load the steps q needs.
// A focal event restricts the scan to sessions containing it.
func (b *Base) StepsQuery(q journey.Query) (string, []any) {
	var sb strings.Builder
	table := b.Cfg.TableName()
	fmt.Fprintf(&sb, "SELECT session_id, seq, event_id FROM %s", table)

	var args []any
	if !q.Event.IsAll() {
		fmt.Fprintf(&sb, " WHERE session_id IN (SELECT session_id FROM %s WHERE event_id = %s)", table, b.placeholder(1))
		args = append(args, string(q.Event))
	}
	sb.WriteString(" ORDER BY session_id, seq")
	return sb.String(), args
}

// Steps loads the raw steps selected by q.
func (b *Base) Steps(ctx context.Context, q journey.Query) ([]journey.Step, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	query, args := b.StepsQuery(q)
	b.logger().Debug("loading steps", slog.String("query", q.String()))

	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var steps []journey.Step
	for rows.Next() {
		var s journey.Step
		var event sql.NullString
		if err := rows.Scan(&s.SessionID, &s.Seq, &event); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		if !event.Valid {
			continue
		}
		s.Event = event.String
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}
	return steps, nil
}

// Transitions aggregates the selected sessions into transition records.
func (b *Base) Transitions(ctx context.Context, q journey.Query) ([]flow.TransitionRecord, error) {
	steps, err := b.Steps(ctx, q)
	if err != nil {
		return nil, err
	}
	return journey.Aggregate(journey.GroupSessions(steps), q), nil
}
