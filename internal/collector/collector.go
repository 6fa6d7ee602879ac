package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"FactorForge/internal/calculator"
	"FactorForge/internal/model"
)

// ErrUpstreamData is returned when a source yields no usable history.
var ErrUpstreamData = errors.New("upstream data error")

// Collector turns fetched bars into the table factor formulas read.
type Collector struct {
	Fetcher Fetcher
	// WarmupDays is the calendar lookback fetched before the requested start
	// so rolling windows are full on the first output date.
	WarmupDays int
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, warmupDays int) *Collector {
	return &Collector{Fetcher: fetcher, WarmupDays: warmupDays}
}

// Collect fetches the history of code covering [from, to] plus the warm-up
// and derives the vwap and ret columns.
func (c *Collector) Collect(ctx context.Context, code string, from, to time.Time) (*model.Table, error) {
	start := from
	if !from.IsZero() && c.WarmupDays > 0 {
		start = from.AddDate(0, 0, -c.WarmupDays)
	}
	bars, err := c.Fetcher.FetchDailyBars(ctx, code, start, to)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars: %w", err)
	}
	bars = dedupe(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s", ErrUpstreamData, code)
	}

	t := model.TableFromBars(code, bars)
	if err := derive(t); err != nil {
		return nil, err
	}
	return t, nil
}

// dedupe sorts bars by time and keeps the last bar of every timestamp.
func dedupe(bars []model.OHLCV) []model.OHLCV {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// derive adds the columns catalogs expect besides the raw bars.
func derive(t *model.Table) error {
	cols := make(map[string]model.Series, len(model.BaseColumns))
	for _, name := range model.BaseColumns {
		s, ok := t.Column(name)
		if !ok {
			return fmt.Errorf("%w: missing column %q", ErrUpstreamData, name)
		}
		cols[name] = s
	}

	if !t.Has(model.ColVWAP) {
		vwap := make(model.Series, t.Len())
		for i := range vwap {
			vwap[i] = (cols[model.ColOpen][i] + cols[model.ColHigh][i] + cols[model.ColLow][i] + cols[model.ColClose][i]) / 4
		}
		if err := t.Set(model.ColVWAP, vwap); err != nil {
			return err
		}
	}

	if !t.Has(model.ColReturn) {
		closes := cols[model.ColClose]
		prev, err := calculator.Shift(closes, 1)
		if err != nil {
			return err
		}
		ret := make(model.Series, len(closes))
		for i := range ret {
			ret[i] = closes[i]/prev[i] - 1
			if math.IsInf(ret[i], 0) {
				ret[i] = math.NaN()
			}
		}
		if err := t.Set(model.ColReturn, ret); err != nil {
			return err
		}
	}
	return nil
}
