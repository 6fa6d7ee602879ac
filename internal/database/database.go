// Package database opens the SQL store shared by the history fetcher and the
// factor recorder. SQLite is the default; PostgreSQL is supported for shared
// deployments.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour of a connection.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// DB wraps a connection pool with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to driver ("sqlite" or "postgres") at dsn and verifies the
// connection.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// WAL lets readers keep working while a run writes.
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return &DB{DB: db, Dialect: SQLite}, nil

	case "postgres", "postgresql":
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(15 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return &DB{DB: db, Dialect: Postgres}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Placeholder returns the n-th (1-based) bind parameter.
func (d *DB) Placeholder(n int) string {
	if d.Dialect == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Placeholders returns count parameters starting at from, comma separated.
func (d *DB) Placeholders(from, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.Placeholder(from + i)
	}
	return strings.Join(parts, ", ")
}

// QuoteIdent quotes a table or column name.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ColumnNames lists the columns of table.
func (d *DB) ColumnNames(ctx context.Context, table string) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if d.Dialect == Postgres {
		rows, err = d.QueryContext(ctx,
			`SELECT column_name FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position`, table)
	} else {
		rows, err = d.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	}
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// ParseTime converts a scanned date column into a time.
func ParseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return parseTimeString(t)
	case []byte:
		return parseTimeString(string(t))
	case int64:
		return time.Unix(t, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", v)
	}
}

var timeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05-07:00",
	"20060102",
}

func parseTimeString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// FormatDate renders a date the way every table stores it.
func FormatDate(t time.Time) string { return t.Format("2006-01-02") }
