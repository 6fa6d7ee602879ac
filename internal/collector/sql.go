package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"FactorForge/internal/database"
	"FactorForge/internal/model"
)

// SQLFetcher reads daily bars from a history table with the columns
// code, datetime, open, high, low, close and volume.
type SQLFetcher struct {
	db    *database.DB
	table string
}

// NewSQLFetcher creates a fetcher over table.
func NewSQLFetcher(db *database.DB, table string) *SQLFetcher {
	return &SQLFetcher{db: db, table: table}
}

func (f *SQLFetcher) Name() string { return "sql:" + f.table }

func (f *SQLFetcher) FetchDailyBars(ctx context.Context, code string, from, to time.Time) ([]model.OHLCV, error) {
	query := fmt.Sprintf(
		`SELECT datetime, open, high, low, close, volume FROM %s WHERE code = %s`,
		database.QuoteIdent(f.table), f.db.Placeholder(1))
	args := []any{code}
	if !from.IsZero() {
		args = append(args, database.FormatDate(from))
		query += " AND datetime >= " + f.db.Placeholder(len(args))
	}
	if !to.IsZero() {
		args = append(args, database.FormatDate(to))
		query += " AND datetime <= " + f.db.Placeholder(len(args))
	}
	query += " ORDER BY datetime"

	rows, err := f.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history of %s: %w", code, err)
	}
	defer rows.Close()

	var bars []model.OHLCV
	for rows.Next() {
		var (
			ts                      any
			open, high, low, closes *float64
			volume                  *float64
		)
		if err := rows.Scan(&ts, &open, &high, &low, &closes, &volume); err != nil {
			return nil, fmt.Errorf("scan history of %s: %w", code, err)
		}
		day, err := database.ParseTime(ts)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUpstreamData, code, err)
		}
		bars = append(bars, model.OHLCV{
			Time:   day,
			Open:   orNaN(open),
			High:   orNaN(high),
			Low:    orNaN(low),
			Close:  orNaN(closes),
			Volume: orNaN(volume),
		})
	}
	return bars, rows.Err()
}

// ListCodes returns every code in the history table.
func (f *SQLFetcher) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := f.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT DISTINCT code FROM %s ORDER BY code`, database.QuoteIdent(f.table)))
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
