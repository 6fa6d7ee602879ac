package model

import (
	"math"
	"time"
)

// FactorDefinition is one named formula of a catalog.
type FactorDefinition struct {
	Name       string
	Expression string
}

// FactorRow is the wide output row of one instrument on one date.
type FactorRow struct {
	Date   time.Time
	Values []float64
}

// FactorFrame holds the computed factors of one instrument, one column per
// factor in catalog order.
type FactorFrame struct {
	Code    string
	Columns []string
	Rows    []FactorRow
}

// NewFactorFrame assembles rows from per-factor series aligned to index.
func NewFactorFrame(code string, index []time.Time, columns []string, series []Series) *FactorFrame {
	f := &FactorFrame{Code: code, Columns: columns, Rows: make([]FactorRow, len(index))}
	for i, ts := range index {
		vals := make([]float64, len(series))
		for j, s := range series {
			vals[j] = s[i]
		}
		f.Rows[i] = FactorRow{Date: ts, Values: vals}
	}
	return f
}

// ReplaceInf turns every infinite value into NaN.
func (f *FactorFrame) ReplaceInf() {
	for _, r := range f.Rows {
		for j, v := range r.Values {
			if math.IsInf(v, 0) {
				r.Values[j] = math.NaN()
			}
		}
	}
}

// DropIncomplete removes rows holding at least one NaN.
func (f *FactorFrame) DropIncomplete() {
	kept := f.Rows[:0]
	for _, r := range f.Rows {
		complete := true
		for _, v := range r.Values {
			if math.IsNaN(v) {
				complete = false
				break
			}
		}
		if complete {
			kept = append(kept, r)
		}
	}
	f.Rows = kept
}

// Between keeps rows dated within [from, to]. A zero bound is open.
func (f *FactorFrame) Between(from, to time.Time) {
	kept := f.Rows[:0]
	for _, r := range f.Rows {
		if !from.IsZero() && r.Date.Before(from) {
			continue
		}
		if !to.IsZero() && r.Date.After(to) {
			continue
		}
		kept = append(kept, r)
	}
	f.Rows = kept
}

// Dates returns the date of every row.
func (f *FactorFrame) Dates() []time.Time {
	out := make([]time.Time, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r.Date
	}
	return out
}

// DateFactor holds calendar attributes of a trading date.
type DateFactor struct {
	Date       time.Time
	Weekday    int // 0 = Monday
	DayOfWeek  string
	DayOfMonth int
	Month      int
	Season     string
}
