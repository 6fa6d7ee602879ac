// Package driver runs a factor catalog over a universe of instruments.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"FactorForge/internal/calculator"
	"FactorForge/internal/calendar"
	"FactorForge/internal/catalog"
	"FactorForge/internal/collector"
	"FactorForge/internal/expr"
	"FactorForge/internal/metrics"
	"FactorForge/internal/model"
	"FactorForge/internal/recorder"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Source yields the input table of one instrument.
type Source interface {
	Collect(ctx context.Context, code string, from, to time.Time) (*model.Table, error)
}

// Options controls one run.
type Options struct {
	// From and To bound the output dates. A zero bound is open.
	From, To time.Time
	// DropIncomplete removes rows holding any undefined factor.
	DropIncomplete bool
	// SkipRecorded leaves instruments with existing output untouched.
	SkipRecorded bool
	// Workers above 1 processes instruments in parallel.
	Workers int
	// DateFactors also writes the calendar table of every output date.
	DateFactors bool
}

// Driver evaluates compiled factors for each instrument and hands the rows
// to a recorder.
type Driver struct {
	source    Source
	evaluator *expr.Evaluator
	factors   []catalog.Factor
	recorder  recorder.Recorder
	log       logrus.FieldLogger
	opts      Options
}

// New creates a Driver. A nil log discards output.
func New(source Source, ev *expr.Evaluator, factors []catalog.Factor, rec recorder.Recorder, log logrus.FieldLogger, opts Options) *Driver {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Driver{
		source:    source,
		evaluator: ev,
		factors:   factors,
		recorder:  rec,
		log:       log,
		opts:      opts,
	}
}

// Columns returns the factor names in output order.
func (d *Driver) Columns() []string {
	names := make([]string, len(d.factors))
	for i, f := range d.factors {
		names[i] = f.Name
	}
	return names
}

// Process computes the factor frame of one instrument without recording it.
func (d *Driver) Process(ctx context.Context, code string) (*model.FactorFrame, error) {
	table, err := d.source.Collect(ctx, code, d.opts.From, d.opts.To)
	if err != nil {
		return nil, err
	}

	scope := d.evaluator.Bind(table)
	series := make([]model.Series, len(d.factors))
	for i, f := range d.factors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := scope.Evaluate(f.Expr)
		if err != nil {
			return nil, &FactorError{Factor: f.Name, Err: err}
		}
		series[i] = s
	}

	frame := model.NewFactorFrame(code, table.Index, d.Columns(), series)
	frame.ReplaceInf()
	frame.Between(d.opts.From, d.opts.To)
	if d.opts.DropIncomplete {
		frame.DropIncomplete()
	}
	return frame, nil
}

// FactorError names the factor whose evaluation failed.
type FactorError struct {
	Factor string
	Err    error
}

func (e *FactorError) Error() string { return fmt.Sprintf("factor %s: %v", e.Factor, e.Err) }
func (e *FactorError) Unwrap() error { return e.Err }

// Run processes codes and records their factors. An instrument that fails is
// logged and listed in the report; the run goes on with the next one. Only
// cancellation of ctx stops the run early, and it is returned as the error.
func (d *Driver) Run(ctx context.Context, codes []string) (*Report, error) {
	report := &Report{RunID: uuid.New(), Started: time.Now()}
	log := d.log.WithField("run_id", report.RunID.String())
	log.WithField("instruments", len(codes)).WithField("factors", len(d.factors)).Info("factor run started")

	var (
		mu    sync.Mutex
		dates []time.Time
	)
	handle := func(ctx context.Context, code string) error {
		outcome, frameDates, err := d.runOne(ctx, log, code)
		if err != nil && ctx.Err() != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		report.add(code, outcome, err)
		dates = append(dates, frameDates...)
		return nil
	}

	var err error
	if d.opts.Workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.opts.Workers)
		for _, code := range codes {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error { return handle(gctx, code) })
		}
		err = g.Wait()
		if err == nil {
			err = ctx.Err()
		}
	} else {
		for _, code := range codes {
			if err = ctx.Err(); err != nil {
				break
			}
			if err = handle(ctx, code); err != nil {
				break
			}
		}
	}
	report.Finished = time.Now()
	if err != nil {
		log.WithError(err).Warn("factor run cancelled")
		return report, err
	}

	if d.opts.DateFactors && len(dates) > 0 {
		if err := d.recorder.RecordDateFactors(ctx, calendar.Factors(dates)); err != nil {
			log.WithError(err).Error("record date factors")
			report.DateFactorsError = err.Error()
		}
	}

	log.WithFields(logrus.Fields{
		"succeeded": len(report.Succeeded),
		"failed":    len(report.Failed),
		"skipped":   len(report.Skipped),
		"elapsed":   report.Finished.Sub(report.Started).String(),
	}).Info("factor run finished")
	return report, nil
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (d *Driver) runOne(ctx context.Context, log logrus.FieldLogger, code string) (outcome, []time.Time, error) {
	log = log.WithField("code", code)
	start := time.Now()
	defer func() { metrics.BuildSeconds.Observe(time.Since(start).Seconds()) }()

	if d.opts.SkipRecorded {
		done, err := d.recorder.Recorded(ctx, code)
		if err != nil {
			return d.fail(ctx, log, err)
		}
		if done {
			log.Debug("already recorded, skipping")
			metrics.InstrumentsTotal.WithLabelValues("skipped").Inc()
			return outcomeSkipped, nil, nil
		}
	}

	frame, err := d.Process(ctx, code)
	if err != nil {
		return d.fail(ctx, log, err)
	}
	if err := ctx.Err(); err != nil {
		return outcomeFailed, nil, err
	}
	if err := d.recorder.RecordFactors(ctx, frame); err != nil {
		return d.fail(ctx, log, fmt.Errorf("record factors: %w", err))
	}

	metrics.InstrumentsTotal.WithLabelValues("ok").Inc()
	metrics.RowsWritten.Add(float64(len(frame.Rows)))
	log.WithField("rows", len(frame.Rows)).Debug("instrument done")
	return outcomeOK, frame.Dates(), nil
}

// fail logs and counts an instrument failure. Only cancellation of the run
// itself is passed through silently; a timeout inside a fetch is a failure
// like any other.
func (d *Driver) fail(ctx context.Context, log logrus.FieldLogger, err error) (outcome, []time.Time, error) {
	if ctx.Err() != nil {
		return outcomeFailed, nil, err
	}
	kind := Classify(err)
	entry := log.WithField("kind", kind)
	var fe *FactorError
	if errors.As(err, &fe) {
		entry = entry.WithField("factor", fe.Factor)
	}
	entry.WithError(err).Warn("instrument skipped")
	metrics.InstrumentsTotal.WithLabelValues("failed").Inc()
	metrics.FailuresTotal.WithLabelValues(kind).Inc()
	return outcomeFailed, nil, err
}

// Classify names the kind of an instrument failure for logs and metrics.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, calculator.ErrArityMismatch):
		return "arity_mismatch"
	case errors.Is(err, calculator.ErrInvalidWindow):
		return "invalid_window"
	case errors.Is(err, calculator.ErrArgumentType):
		return "argument_type"
	case errors.Is(err, expr.ErrSyntax):
		return "syntax"
	case errors.Is(err, expr.ErrUnboundName):
		return "unbound_name"
	case errors.Is(err, expr.ErrEvaluation):
		return "evaluation"
	case errors.Is(err, collector.ErrUpstreamData):
		return "upstream_data"
	default:
		return "other"
	}
}
