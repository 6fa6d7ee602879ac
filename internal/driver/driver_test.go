package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"FactorForge/internal/calculator"
	"FactorForge/internal/catalog"
	"FactorForge/internal/collector"
	"FactorForge/internal/expr"
	"FactorForge/internal/model"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

// tableSource serves fixed tables and can run a hook before returning.
type tableSource struct {
	tables map[string]*model.Table
	before func(code string)
}

func (s *tableSource) Collect(ctx context.Context, code string, _, _ time.Time) (*model.Table, error) {
	if s.before != nil {
		s.before(code)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, ok := s.tables[code]
	if !ok {
		return nil, collector.ErrUpstreamData
	}
	return t, nil
}

func table(t *testing.T, code string, cols map[string]model.Series) *model.Table {
	t.Helper()
	var n int
	for _, s := range cols {
		n = len(s)
	}
	index := make([]time.Time, n)
	for i := range index {
		index[i] = day(i + 2)
	}
	tbl := model.NewTable(code, index)
	for name, s := range cols {
		require.NoError(t, tbl.Set(name, s))
	}
	return tbl
}

type memRecorder struct {
	mu       sync.Mutex
	frames   map[string]*model.FactorFrame
	dates    []model.DateFactor
	recorded map[string]bool
}

func newMemRecorder() *memRecorder {
	return &memRecorder{frames: map[string]*model.FactorFrame{}, recorded: map[string]bool{}}
}

func (m *memRecorder) RecordFactors(_ context.Context, f *model.FactorFrame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames[f.Code] = f
	return nil
}

func (m *memRecorder) Recorded(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recorded[code], nil
}

func (m *memRecorder) RecordDateFactors(_ context.Context, d []model.DateFactor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dates = append(m.dates, d...)
	return nil
}

func (m *memRecorder) Close() error { return nil }

func compile(t *testing.T, defs map[string]string, order ...string) []catalog.Factor {
	t.Helper()
	c, err := catalog.New()
	require.NoError(t, err)
	for _, name := range order {
		require.NoError(t, c.Add(name, defs[name]))
	}
	factors, err := c.Compile(calculator.NewLibrary())
	require.NoError(t, err)
	return factors
}

func newDriver(src Source, factors []catalog.Factor, rec *memRecorder, opts Options) *Driver {
	return New(src, expr.NewEvaluator(calculator.NewLibrary()), factors, rec, nil, opts)
}

func TestRun_MissingColumnSkipsOnlyThatInstrument(t *testing.T) {
	src := &tableSource{tables: map[string]*model.Table{
		"A": table(t, "A", map[string]model.Series{"close": {1, 2, 3}, "foo": {1, 1, 1}}),
		"B": table(t, "B", map[string]model.Series{"close": {1, 2, 3}}),
	}}
	factors := compile(t, map[string]string{"x": "foo + close"}, "x")
	rec := newMemRecorder()

	report, err := newDriver(src, factors, rec, Options{}).Run(context.Background(), []string{"A", "B"})
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, report.Succeeded)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "B", report.Failed[0].Code)
	assert.Equal(t, "unbound_name", report.Failed[0].Kind)
	assert.Contains(t, report.Failed[0].Reason, "factor x")

	require.Contains(t, rec.frames, "A")
	assert.NotContains(t, rec.frames, "B")
	assert.Equal(t, []float64{2}, rec.frames["A"].Rows[0].Values)
}

func TestRun_UpstreamFailureContinues(t *testing.T) {
	src := &tableSource{tables: map[string]*model.Table{
		"A": table(t, "A", map[string]model.Series{"close": {1, 2}}),
	}}
	rec := newMemRecorder()
	report, err := newDriver(src, compile(t, map[string]string{"c": "close"}, "c"), rec, Options{}).
		Run(context.Background(), []string{"gone", "A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, report.Succeeded)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "upstream_data", report.Failed[0].Kind)
}

func TestProcess_RowsAndCleanup(t *testing.T) {
	src := &tableSource{tables: map[string]*model.Table{
		"A": table(t, "A", map[string]model.Series{"close": {1, 0, 4, 5}}),
	}}
	factors := compile(t, map[string]string{"inv": "1/close", "m2": "mean(close, 2)"}, "inv", "m2")

	frame, err := newDriver(src, factors, newMemRecorder(), Options{}).Process(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "A", frame.Code)
	assert.Equal(t, []string{"inv", "m2"}, frame.Columns)
	require.Len(t, frame.Rows, 4)
	assert.Equal(t, day(2), frame.Rows[0].Date)
	assert.True(t, math.IsNaN(frame.Rows[0].Values[1]))
	assert.True(t, math.IsNaN(frame.Rows[1].Values[0]), "inf becomes NaN")
	assert.Equal(t, []float64{0.25, 2}, frame.Rows[2].Values)

	// output range and incomplete rows
	d := newDriver(src, factors, newMemRecorder(), Options{From: day(3), DropIncomplete: true})
	frame, err = d.Process(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, frame.Rows, 2)
	assert.Equal(t, []time.Time{day(4), day(5)}, frame.Dates())
}

func TestRun_CancellationStopsWithoutWriting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &tableSource{
		tables: map[string]*model.Table{
			"A": table(t, "A", map[string]model.Series{"close": {1, 2}}),
			"B": table(t, "B", map[string]model.Series{"close": {1, 2}}),
		},
		before: func(string) { cancel() },
	}
	rec := newMemRecorder()
	report, err := newDriver(src, compile(t, map[string]string{"c": "close"}, "c"), rec, Options{DateFactors: true}).
		Run(ctx, []string{"A", "B"})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Empty(t, report.Succeeded)
	assert.Empty(t, report.Failed)
	assert.Empty(t, rec.frames)
	assert.Empty(t, rec.dates)
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tbl := table(t, "A", map[string]model.Series{"close": {1, 2}})
	src := &tableSource{tables: map[string]*model.Table{"A": tbl}}

	d := newDriver(src, compile(t, map[string]string{"a": "close", "b": "close*2"}, "a", "b"), newMemRecorder(), Options{})
	cancel()
	_, err := d.Process(ctx, "A")
	assert.ErrorIs(t, err, context.Canceled)
}

// errSource fails every fetch with err.
type errSource struct{ err error }

func (s errSource) Collect(context.Context, string, time.Time, time.Time) (*model.Table, error) {
	return nil, s.err
}

func TestRun_FetchTimeoutIsAFailure(t *testing.T) {
	src := errSource{err: fmt.Errorf("fetch daily bars: yahoo fetch: %w", context.DeadlineExceeded)}
	log, hook := logtest.NewNullLogger()
	d := New(src, expr.NewEvaluator(calculator.NewLibrary()), compile(t, map[string]string{"c": "close"}, "c"),
		newMemRecorder(), log, Options{})

	report, err := d.Run(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	require.Len(t, report.Failed, 2)
	for _, f := range report.Failed {
		assert.Equal(t, "timeout", f.Kind)
	}

	var warned []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "instrument skipped" {
			warned = append(warned, e.Data["code"].(string))
		}
	}
	assert.Equal(t, []string{"A", "B"}, warned)
}

func TestRun_HugeWindowLeavesFactorUndefined(t *testing.T) {
	src := &tableSource{tables: map[string]*model.Table{
		"A": table(t, "A", map[string]model.Series{"close": {1, 2, 3}}),
		"B": table(t, "B", map[string]model.Series{"close": {4, 5, 6}}),
	}}
	rec := newMemRecorder()
	factors := compile(t, map[string]string{"d": "decaylinear(close, 10000000000000)"}, "d")

	report, err := newDriver(src, factors, rec, Options{}).Run(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, report.Succeeded)
	for _, row := range rec.frames["A"].Rows {
		assert.True(t, math.IsNaN(row.Values[0]))
	}
}

func TestRun_SkipRecorded(t *testing.T) {
	src := &tableSource{tables: map[string]*model.Table{
		"A": table(t, "A", map[string]model.Series{"close": {1}}),
		"B": table(t, "B", map[string]model.Series{"close": {1}}),
	}}
	rec := newMemRecorder()
	rec.recorded["A"] = true

	report, err := newDriver(src, compile(t, map[string]string{"c": "close"}, "c"), rec, Options{SkipRecorded: true}).
		Run(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, report.Skipped)
	assert.Equal(t, []string{"B"}, report.Succeeded)
	assert.NotContains(t, rec.frames, "A")
}

func TestRun_ParallelWithDateFactors(t *testing.T) {
	fetcher := &collector.MockFetcher{Price: 10}
	src := collector.NewCollector(fetcher, 10)
	codes := []string{"c0", "c1", "c2", "c3", "c4", "c5", "c6", "c7"}
	rec := newMemRecorder()

	opts := Options{From: day(15), To: day(31), Workers: 4, DateFactors: true, DropIncomplete: true}
	factors := compile(t, map[string]string{"ma5": "mean(close, 5)/close", "ret": "ret"}, "ma5", "ret")
	report, err := newDriver(src, factors, rec, opts).Run(context.Background(), codes)
	require.NoError(t, err)

	got := append([]string(nil), report.Succeeded...)
	sort.Strings(got)
	assert.Equal(t, codes, got)
	assert.Empty(t, report.Failed)
	assert.Len(t, rec.frames, len(codes))
	for _, f := range rec.frames {
		require.NotEmpty(t, f.Rows)
		assert.False(t, f.Rows[0].Date.Before(day(15)))
	}

	// 2024-01-15 .. 2024-01-31 holds 13 weekdays
	require.Len(t, rec.dates, 13)
	assert.Equal(t, day(15), rec.dates[0].Date)
	assert.Equal(t, 0, rec.dates[0].Weekday)
}

func TestReport_Write(t *testing.T) {
	src := &tableSource{tables: map[string]*model.Table{"A": table(t, "A", map[string]model.Series{"close": {1}})}}
	report, err := newDriver(src, compile(t, map[string]string{"c": "close"}, "c"), newMemRecorder(), Options{}).
		Run(context.Background(), []string{"A", "Z"})
	require.NoError(t, err)

	path, err := report.WriteReport(t.TempDir())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var back Report
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, report.RunID, back.RunID)
	assert.Equal(t, []string{"A"}, back.Succeeded)
	require.Len(t, back.Failed, 1)
	assert.Equal(t, "Z", back.Failed[0].Code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{context.Canceled, "cancelled"},
		{fmt.Errorf("fetch: %w", context.DeadlineExceeded), "timeout"},
		{calculator.ErrInvalidWindow, "invalid_window"},
		{&FactorError{Factor: "x", Err: expr.ErrUnboundName}, "unbound_name"},
		{expr.ErrSyntax, "syntax"},
		{collector.ErrUpstreamData, "upstream_data"},
		{os.ErrNotExist, "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err))
	}
}
