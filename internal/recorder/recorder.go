// Package recorder persists computed factor rows.
package recorder

import (
	"context"
	"fmt"

	"FactorForge/internal/model"
)

// Recorder persists factor frames and the calendar table.
type Recorder interface {
	// RecordFactors writes every row of frame. Rows of the same code and date
	// are replaced.
	RecordFactors(ctx context.Context, frame *model.FactorFrame) error
	// Recorded reports whether output for code already exists.
	Recorded(ctx context.Context, code string) (bool, error)
	RecordDateFactors(ctx context.Context, dates []model.DateFactor) error
	Close() error
}

// Reserved output columns.
const (
	colCode     = "code"
	colDatetime = "datetime"
)

func checkColumns(cols []string) error {
	for _, c := range cols {
		if c == colCode || c == colDatetime {
			return fmt.Errorf("factor name %q collides with a key column", c)
		}
	}
	return nil
}
