package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"FactorForge/internal/database"
	"FactorForge/internal/model"
)

// SQLRecorder writes factors into one wide table, one column per factor,
// keyed by (code, datetime). Missing factor columns are added on demand.
type SQLRecorder struct {
	db          *database.DB
	factorTable string
	dateTable   string

	mu      sync.Mutex
	columns map[string]bool
}

// NewSQLRecorder creates the key columns of both tables if needed.
func NewSQLRecorder(ctx context.Context, db *database.DB, factorTable, dateTable string) (*SQLRecorder, error) {
	r := &SQLRecorder{db: db, factorTable: factorTable, dateTable: dateTable}
	if err := r.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLRecorder) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			code     TEXT NOT NULL,
			datetime TEXT NOT NULL,
			PRIMARY KEY (code, datetime)
		)`, database.QuoteIdent(r.factorTable)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (datetime)`,
			database.QuoteIdent("idx_"+r.factorTable+"_datetime"), database.QuoteIdent(r.factorTable)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			datetime     TEXT PRIMARY KEY,
			weekday      INTEGER,
			day_of_week  TEXT,
			day_of_month INTEGER,
			month        INTEGER,
			season       TEXT
		)`, database.QuoteIdent(r.dateTable)),
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(s), err)
		}
	}

	cols, err := r.db.ColumnNames(ctx, r.factorTable)
	if err != nil {
		return err
	}
	r.columns = make(map[string]bool, len(cols))
	for _, c := range cols {
		r.columns[c] = true
	}
	return nil
}

// ensureColumns adds the factor columns the table does not have yet.
func (r *SQLRecorder) ensureColumns(ctx context.Context, cols []string) error {
	for _, c := range cols {
		if r.columns[c] {
			continue
		}
		stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s DOUBLE PRECISION`,
			database.QuoteIdent(r.factorTable), database.QuoteIdent(c))
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s: %w", c, err)
		}
		r.columns[c] = true
	}
	return nil
}

func (r *SQLRecorder) RecordFactors(ctx context.Context, frame *model.FactorFrame) error {
	if len(frame.Rows) == 0 {
		return nil
	}
	if err := checkColumns(frame.Columns); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureColumns(ctx, frame.Columns); err != nil {
		return err
	}

	quoted := make([]string, len(frame.Columns))
	updates := make([]string, len(frame.Columns))
	for i, c := range frame.Columns {
		quoted[i] = database.QuoteIdent(c)
		updates[i] = fmt.Sprintf("%s = excluded.%s", quoted[i], quoted[i])
	}
	stmt := fmt.Sprintf(`INSERT INTO %s (code, datetime, %s) VALUES (%s) ON CONFLICT (code, datetime) DO UPDATE SET %s`,
		database.QuoteIdent(r.factorTable),
		strings.Join(quoted, ", "),
		r.db.Placeholders(1, len(frame.Columns)+2),
		strings.Join(updates, ", "))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer prepared.Close()

	args := make([]any, len(frame.Columns)+2)
	for _, row := range frame.Rows {
		args[0] = frame.Code
		args[1] = database.FormatDate(row.Date)
		for i, v := range row.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				args[i+2] = nil
			} else {
				args[i+2] = v
			}
		}
		if _, err := prepared.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %s %s: %w", frame.Code, database.FormatDate(row.Date), err)
		}
	}
	return tx.Commit()
}

func (r *SQLRecorder) Recorded(ctx context.Context, code string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT 1 FROM %s WHERE code = %s LIMIT 1`, database.QuoteIdent(r.factorTable), r.db.Placeholder(1)),
		code).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check %s: %w", code, err)
	}
	return true, nil
}

func (r *SQLRecorder) RecordDateFactors(ctx context.Context, dates []model.DateFactor) error {
	if len(dates) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stmt := fmt.Sprintf(`INSERT INTO %s (datetime, weekday, day_of_week, day_of_month, month, season) VALUES (%s)
		ON CONFLICT (datetime) DO UPDATE SET weekday = excluded.weekday, day_of_week = excluded.day_of_week,
		day_of_month = excluded.day_of_month, month = excluded.month, season = excluded.season`,
		database.QuoteIdent(r.dateTable), r.db.Placeholders(1, 6))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, d := range dates {
		if _, err := tx.ExecContext(ctx, stmt,
			database.FormatDate(d.Date), d.Weekday, d.DayOfWeek, d.DayOfMonth, d.Month, d.Season); err != nil {
			return fmt.Errorf("insert date %s: %w", database.FormatDate(d.Date), err)
		}
	}
	return tx.Commit()
}

// Close does not close the shared connection.
func (r *SQLRecorder) Close() error { return nil }

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
