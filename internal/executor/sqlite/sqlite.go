// Package sqlite implements the sql strategy: each call gets a brand-new
// in-memory SQLite database, optionally seeded from the request context,
// and the database is discarded when the call returns.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the strategy works wherever the
// binary runs without a C toolchain or a system libsqlite3.
//
// SEEDING:
// A context entry named "data" that maps table names to lists of row
// objects is turned into tables before the user's statements run:
//
//	{"data": {"people": [{"name": "ada", "age": 36}, {"name": "alan", "age": 41}]}}
//
// Columns come from the first row's keys in sorted order (JSON objects have
// no key order once decoded). Rows are inserted positionally, so a row with
// a different key set fails instead of being truncated or reordered.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/cellexec/internal/apperror"
	"github.com/sakif/cellexec/internal/executor"
)

const (
	// SeedKey is the context entry holding table seed data.
	SeedKey = "data"
	// MaxDisplayRows caps how many rows of one query are rendered.
	MaxDisplayRows = 100

	noOutput = "SQL executed successfully"
)

type Strategy struct {
	timeout time.Duration
	logger  *slog.Logger
}

// New creates the sql strategy. timeout is only used to word the timeout
// message; the deadline itself arrives through the context.
func New(timeout time.Duration, logger *slog.Logger) *Strategy {
	return &Strategy{timeout: timeout, logger: logger}
}

func (s *Strategy) Run(ctx context.Context, code string, vars map[string]any) (executor.Outcome, error) {
	db, err := openStore(ctx)
	if err != nil {
		return executor.Outcome{}, err
	}
	defer func() {
		if err := db.Close(); err != nil {
			s.logger.Warn("failed to close ephemeral database", slog.String("error", err.Error()))
		}
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return executor.Outcome{}, fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op returning ErrTxDone.
	defer tx.Rollback()

	if err := seed(ctx, tx, vars[SeedKey]); err != nil {
		return s.failure(ctx, err, nil), nil
	}

	var lines []string
	for _, stmt := range strings.Split(code, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if isQuery(stmt) {
			rendered, err := query(ctx, tx, stmt)
			if err != nil {
				return s.failure(ctx, err, lines), nil
			}
			lines = append(lines, rendered...)
			continue
		}

		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return s.failure(ctx, err, lines), nil
		}
		lines = append(lines, "Executed: "+stmt)
	}

	if err := tx.Commit(); err != nil {
		return s.failure(ctx, err, lines), nil
	}

	return executor.Succeeded(strings.Join(lines, "\n"), noOutput), nil
}

// failure reports a statement error while keeping the output of every
// statement that ran before it.
func (s *Strategy) failure(ctx context.Context, err error, lines []string) executor.Outcome {
	output := strings.Join(lines, "\n")
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return executor.Failed(apperror.Timeout("SQL", s.timeout), output)
	case errors.Is(ctx.Err(), context.Canceled):
		return executor.Failed(apperror.Cancelled("SQL"), output)
	}
	return executor.Failed(apperror.ProcessFailure("SQL execution error: "+err.Error()), output)
}

// openStore creates a private in-memory database.
//
// Every connection to ":memory:" is a separate database, so the pool is
// pinned to a single connection for the lifetime of the call.
func openStore(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	return db, nil
}

// seed creates and fills the tables described by the "data" context entry.
// Anything that is not a table→rows mapping is ignored.
func seed(ctx context.Context, tx *sql.Tx, data any) error {
	tables, ok := data.(map[string]any)
	if !ok {
		return nil
	}

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rows, ok := tables[name].([]any)
		if !ok || len(rows) == 0 {
			continue
		}
		first, ok := rows[0].(map[string]any)
		if !ok || len(first) == 0 {
			continue
		}

		columns := sortedKeys(first)
		quoted := make([]string, len(columns))
		for i, col := range columns {
			quoted[i] = quoteIdent(col)
		}
		create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(quoted, ", "))
		if _, err := tx.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("creating table %q: %w", name, err)
		}

		for i, raw := range rows {
			row, ok := raw.(map[string]any)
			if !ok {
				return fmt.Errorf("table %q row %d is not an object", name, i)
			}
			if err := insertRow(ctx, tx, name, columns, row, i); err != nil {
				return err
			}
		}
	}
	return nil
}

// insertRow binds the row's own values positionally. A row with more or
// fewer keys than the table has columns is rejected by SQLite itself; a row
// with the same number of differently named keys is rejected here.
func insertRow(ctx context.Context, tx *sql.Tx, table string, columns []string, row map[string]any, index int) error {
	keys := sortedKeys(row)
	if len(keys) == len(columns) {
		for i := range keys {
			if keys[i] != columns[i] {
				return fmt.Errorf("table %q row %d: columns (%s) do not match (%s)",
					table, index, strings.Join(keys, ", "), strings.Join(columns, ", "))
			}
		}
	}

	args := make([]any, len(keys))
	for i, key := range keys {
		v := row[key]
		if v == nil {
			continue
		}
		scalar, ok := executor.Scalar(v)
		if !ok {
			return fmt.Errorf("table %q row %d column %q: unsupported value of type %T", table, index, key, v)
		}
		args[i] = scalar
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table), placeholders)
	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		return fmt.Errorf("inserting row %d into %q: %w", index, table, err)
	}
	return nil
}

// query runs a row-returning statement and renders it. Every row is read so
// the count is exact, but only the first MaxDisplayRows are formatted.
func query(ctx context.Context, tx *sql.Tx, stmt string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var (
		rendered []string
		count    int
	)
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		count++
		if count <= MaxDisplayRows {
			rendered = append(rendered, formatRow(values))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines := []string{
		"Query: " + stmt,
		"Columns: " + strings.Join(columns, ", "),
		fmt.Sprintf("Results (%d rows):", count),
	}
	lines = append(lines, rendered...)
	if count > MaxDisplayRows {
		lines = append(lines, fmt.Sprintf("...and %d more rows", count-MaxDisplayRows))
	}
	return append(lines, ""), nil
}

func isQuery(stmt string) bool {
	word := strings.ToUpper(strings.Fields(stmt)[0])
	return strings.HasPrefix(word, "SELECT") || word == "WITH"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
