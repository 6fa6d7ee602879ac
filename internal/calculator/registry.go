// Package calculator implements the time-series operators factor formulas
// are built from. Every operator is causal: rolling operators read only the
// current and earlier points, and emit NaN until their window is full.
package calculator

import (
	"fmt"
	"math"
	"sort"

	"FactorForge/internal/model"
)

// Value is an operator argument or result: either a series or a scalar.
type Value struct {
	Series model.Series
	Scalar float64
}

// ScalarValue wraps a number.
func ScalarValue(v float64) Value { return Value{Scalar: v} }

// SeriesValue wraps a series.
func SeriesValue(s model.Series) Value { return Value{Series: s} }

// IsScalar reports whether v holds a number rather than a series.
func (v Value) IsScalar() bool { return v.Series == nil }

// At returns the value at row i, broadcasting scalars.
func (v Value) At(i int) float64 {
	if v.Series == nil {
		return v.Scalar
	}
	return v.Series[i]
}

// Broadcast returns v as a series of length n.
func (v Value) Broadcast(n int) model.Series {
	if v.Series != nil {
		return v.Series
	}
	return model.Constant(n, v.Scalar)
}

// ArgKind describes how an operator argument is checked and converted.
type ArgKind int

const (
	// ArgSeries accepts a series, or a scalar broadcast to one.
	ArgSeries ArgKind = iota
	// ArgWindow accepts a positive integral scalar.
	ArgWindow
	// ArgLag accepts a non-negative integral scalar.
	ArgLag
	// ArgScalar accepts any scalar.
	ArgScalar
)

func (k ArgKind) String() string {
	switch k {
	case ArgSeries:
		return "series"
	case ArgWindow:
		return "window"
	case ArgLag:
		return "lag"
	case ArgScalar:
		return "scalar"
	default:
		return "unknown"
	}
}

// Operator is one entry of the operator table.
type Operator struct {
	Name string
	Args []ArgKind
	// Defaults fill trailing arguments the caller left out.
	Defaults []float64

	fn func(args []Value) (model.Series, error)
}

// Arity returns the minimum and maximum number of arguments.
func (op *Operator) Arity() (lo, hi int) {
	return len(op.Args) - len(op.Defaults), len(op.Args)
}

// Call checks the arguments against the signature and runs the operator over
// rows of length n.
func (op *Operator) Call(n int, args []Value) (model.Series, error) {
	lo, hi := op.Arity()
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrArityMismatch, op.Name, hi, len(args))
		}
		return nil, fmt.Errorf("%w: %s takes %d to %d arguments, got %d", ErrArityMismatch, op.Name, lo, hi, len(args))
	}

	full := make([]Value, len(op.Args))
	copy(full, args)
	for i := len(args); i < len(op.Args); i++ {
		full[i] = ScalarValue(op.Defaults[i-lo])
	}

	for i, kind := range op.Args {
		v := full[i]
		switch kind {
		case ArgSeries:
			full[i] = SeriesValue(v.Broadcast(n))
			if len(full[i].Series) != n {
				return nil, fmt.Errorf("%w: %s argument %d has %d rows, want %d", ErrArgumentType, op.Name, i+1, len(full[i].Series), n)
			}
		case ArgWindow, ArgLag:
			if !v.IsScalar() {
				return nil, fmt.Errorf("%w: %s argument %d must be a number", ErrInvalidWindow, op.Name, i+1)
			}
			if v.Scalar != math.Trunc(v.Scalar) || math.IsInf(v.Scalar, 0) {
				return nil, fmt.Errorf("%w: %s argument %d must be an integer, got %v", ErrInvalidWindow, op.Name, i+1, v.Scalar)
			}
			if kind == ArgWindow && v.Scalar <= 0 {
				return nil, fmt.Errorf("%w: %s window must be positive, got %v", ErrInvalidWindow, op.Name, v.Scalar)
			}
			if kind == ArgLag && v.Scalar < 0 {
				return nil, fmt.Errorf("%w: %s lag must be non-negative, got %v", ErrInvalidWindow, op.Name, v.Scalar)
			}
			// anything longer than the history behaves like n+1
			if v.Scalar > float64(n) {
				full[i] = ScalarValue(float64(n + 1))
			}
		case ArgScalar:
			if !v.IsScalar() {
				return nil, fmt.Errorf("%w: %s argument %d must be a number", ErrArgumentType, op.Name, i+1)
			}
		}
	}
	return op.fn(full)
}

// Library is the immutable table of operators, keyed by lower-case name.
type Library struct {
	ops map[string]*Operator
}

// NewLibrary builds the operator table.
func NewLibrary() *Library {
	l := &Library{ops: make(map[string]*Operator)}

	unary := func(f func(model.Series) model.Series) func([]Value) (model.Series, error) {
		return func(a []Value) (model.Series, error) { return f(a[0].Series), nil }
	}
	binary := func(f func(a, b model.Series) model.Series) func([]Value) (model.Series, error) {
		return func(a []Value) (model.Series, error) { return f(a[0].Series, a[1].Series), nil }
	}
	windowed := func(f func(model.Series, int) (model.Series, error)) func([]Value) (model.Series, error) {
		return func(a []Value) (model.Series, error) { return f(a[0].Series, int(a[1].Scalar)) }
	}
	paired := func(f func(a, b model.Series, w int) (model.Series, error)) func([]Value) (model.Series, error) {
		return func(a []Value) (model.Series, error) { return f(a[0].Series, a[1].Series, int(a[2].Scalar)) }
	}

	s, w, k, c := ArgSeries, ArgWindow, ArgLag, ArgScalar

	// elementwise
	l.add(&Operator{Name: "min", Args: []ArgKind{s, s}, fn: binary(Min)})
	l.add(&Operator{Name: "max", Args: []ArgKind{s, s}, fn: binary(Max)})
	l.add(&Operator{Name: "abs", Args: []ArgKind{s}, fn: unary(Abs)})
	l.add(&Operator{Name: "sign", Args: []ArgKind{s}, fn: unary(Sign)})
	l.add(&Operator{Name: "log", Args: []ArgKind{s}, fn: unary(Log)})
	l.add(&Operator{Name: "where", Args: []ArgKind{s, s, s}, fn: func(a []Value) (model.Series, error) {
		return Where(a[0].Series, a[1].Series, a[2].Series), nil
	}})
	l.add(&Operator{Name: "clip", Args: []ArgKind{s, s, s}, fn: func(a []Value) (model.Series, error) {
		return Clip(a[0].Series, a[1].Series, a[2].Series), nil
	}})
	l.add(&Operator{Name: "signedpower", Args: []ArgKind{s, s}, fn: binary(SignedPower)})
	l.add(&Operator{Name: "rank", Args: []ArgKind{s}, fn: unary(Rank)})
	l.add(&Operator{Name: "scale", Args: []ArgKind{s, c}, Defaults: []float64{1}, fn: func(a []Value) (model.Series, error) {
		return Scale(a[0].Series, a[1].Scalar), nil
	}})
	allQuantile := func(a []Value) (model.Series, error) { return AllQuantile(a[0].Series, a[1].Scalar), nil }
	l.add(&Operator{Name: "allquantile", Args: []ArgKind{s, c}, fn: allQuantile})
	l.add(&Operator{Name: "all_quantile", Args: []ArgKind{s, c}, fn: allQuantile})

	// lag
	shift := func(a []Value) (model.Series, error) { return Shift(a[0].Series, int(a[1].Scalar)) }
	diff := func(a []Value) (model.Series, error) { return Diff(a[0].Series, int(a[1].Scalar)) }
	l.add(&Operator{Name: "shift", Args: []ArgKind{s, k}, fn: shift})
	l.add(&Operator{Name: "delay", Args: []ArgKind{s, k}, fn: shift})
	l.add(&Operator{Name: "diff", Args: []ArgKind{s, k}, Defaults: []float64{1}, fn: diff})
	l.add(&Operator{Name: "delta", Args: []ArgKind{s, k}, Defaults: []float64{1}, fn: diff})

	// rolling aggregates
	for name, f := range map[string]func(model.Series, int) (model.Series, error){
		"mean":        Mean,
		"sum":         Sum,
		"count":       Sum,
		"std":         Std,
		"product":     Product,
		"tsmax":       TsMax,
		"tsmin":       TsMin,
		"tsargmax":    TsArgMax,
		"tsargmin":    TsArgMin,
		"idxmax":      IdxMax,
		"highday":     IdxMax,
		"idxmin":      IdxMin,
		"lowday":      IdxMin,
		"tsrank":      TsRank,
		"slope":       Slope,
		"regbeta":     Slope,
		"rsquare":     RSquare,
		"resi":        Resi,
		"decaylinear": DecayLinear,
		"wma":         WMA,
	} {
		l.add(&Operator{Name: name, Args: []ArgKind{s, w}, fn: windowed(f)})
	}
	l.add(&Operator{Name: "sma", Args: []ArgKind{s, w, c}, Defaults: []float64{1}, fn: func(a []Value) (model.Series, error) {
		return SMA(a[0].Series, int(a[1].Scalar), a[2].Scalar)
	}})
	l.add(&Operator{Name: "quantile", Args: []ArgKind{s, w, c}, fn: func(a []Value) (model.Series, error) {
		return Quantile(a[0].Series, int(a[1].Scalar), a[2].Scalar)
	}})

	// paired
	l.add(&Operator{Name: "correlation", Args: []ArgKind{s, s, w}, fn: paired(Correlation)})
	l.add(&Operator{Name: "corr", Args: []ArgKind{s, s, w}, fn: paired(Correlation)})
	l.add(&Operator{Name: "covariance", Args: []ArgKind{s, s, w}, fn: paired(Covariance)})
	l.add(&Operator{Name: "cov", Args: []ArgKind{s, s, w}, fn: paired(Covariance)})

	return l
}

func (l *Library) add(op *Operator) {
	if _, dup := l.ops[op.Name]; dup {
		panic("calculator: duplicate operator " + op.Name)
	}
	l.ops[op.Name] = op
}

// Lookup returns the operator registered under name.
func (l *Library) Lookup(name string) (*Operator, bool) {
	op, ok := l.ops[name]
	return op, ok
}

// Names returns every operator name in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.ops))
	for n := range l.ops {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
