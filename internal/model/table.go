package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Series is a time-aligned column of values. NaN marks an undefined point.
type Series []float64

// NewSeries returns a series of length n filled with NaN.
func NewSeries(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Constant returns a series of length n where every point equals v.
func Constant(n int, v float64) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// Clone returns an independent copy of s.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// Table is the history of one instrument: a time index plus uniquely named
// columns of the same length. Column names are stored lower-cased.
type Table struct {
	Code  string
	Index []time.Time

	names   []string
	columns map[string]Series
}

// NewTable creates an empty table over the given index.
func NewTable(code string, index []time.Time) *Table {
	return &Table{
		Code:    code,
		Index:   index,
		columns: make(map[string]Series),
	}
}

// TableFromBars builds a table with the base OHLCV columns from bars.
func TableFromBars(code string, bars []OHLCV) *Table {
	n := len(bars)
	index := make([]time.Time, n)
	open, high, low, closes := make(Series, n), make(Series, n), make(Series, n), make(Series, n)
	volume, amount := make(Series, n), make(Series, n)
	hasAmount := false
	for i, b := range bars {
		index[i] = b.Time
		open[i], high[i], low[i], closes[i] = b.Open, b.High, b.Low, b.Close
		volume[i], amount[i] = b.Volume, b.Amount
		if b.Amount != 0 {
			hasAmount = true
		}
	}
	t := NewTable(code, index)
	// lengths match by construction
	_ = t.Set(ColOpen, open)
	_ = t.Set(ColHigh, high)
	_ = t.Set(ColLow, low)
	_ = t.Set(ColClose, closes)
	_ = t.Set(ColVolume, volume)
	if hasAmount {
		_ = t.Set(ColAmount, amount)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Index) }

// Set adds or replaces a column.
func (t *Table) Set(name string, s Series) error {
	if len(s) != len(t.Index) {
		return fmt.Errorf("column %q has %d rows, table has %d", name, len(s), len(t.Index))
	}
	key := strings.ToLower(name)
	if _, ok := t.columns[key]; !ok {
		t.names = append(t.names, key)
	}
	t.columns[key] = s
	return nil
}

// Column looks a column up by name, ignoring case.
func (t *Table) Column(name string) (Series, bool) {
	s, ok := t.columns[strings.ToLower(name)]
	return s, ok
}

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.columns[strings.ToLower(name)]
	return ok
}

// Columns returns column names in insertion order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}
