// Package expr parses factor formulas and evaluates them against a table.
//
// Formulas are arithmetic over numbers, column names and calls to operators
// of a calculator.Library. Nothing else is reachable: there is no attribute
// access, indexing or host function of any kind.
package expr

import (
	"errors"
	"fmt"
	"math"

	"FactorForge/internal/calculator"
	"FactorForge/internal/model"
)

// Evaluator evaluates compiled formulas using a fixed operator library.
type Evaluator struct {
	lib *calculator.Library
}

// NewEvaluator creates an Evaluator over lib.
func NewEvaluator(lib *calculator.Library) *Evaluator {
	return &Evaluator{lib: lib}
}

// Library returns the operator library formulas are resolved against.
func (e *Evaluator) Library() *calculator.Library { return e.lib }

// Bind builds a fresh scope for t.
func (e *Evaluator) Bind(t *model.Table) *Scope {
	return newScope(e.lib, t)
}

// Evaluate evaluates x against t in a scope of its own.
func (e *Evaluator) Evaluate(t *model.Table, x *Expression) (model.Series, error) {
	return e.Bind(t).Evaluate(x)
}

// EvaluateString compiles text and evaluates it against t.
func (e *Evaluator) EvaluateString(t *model.Table, text string) (model.Series, error) {
	x, err := Compile(text)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(t, x)
}

// Evaluate evaluates x and returns a series aligned to the scope's table.
// A scalar result is repeated on every row.
func (s *Scope) Evaluate(x *Expression) (out model.Series, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrEvaluation, r)
		}
	}()
	v, err := x.root.eval(s)
	if err != nil {
		return nil, err
	}
	if v.IsScalar() {
		return model.Constant(s.rows, v.Scalar), nil
	}
	return v.Series.Clone(), nil
}

func (n *numberNode) eval(_ *Scope) (value, error) {
	return calculator.ScalarValue(n.value), nil
}

func (n *identNode) eval(s *Scope) (value, error) {
	b, ok := s.lookup(n.name)
	if !ok {
		return value{}, fmt.Errorf("%w: %q", ErrUnboundName, n.name)
	}
	if b.kind == bindOperator {
		return value{}, fmt.Errorf("%w: operator %q used without arguments", ErrEvaluation, n.name)
	}
	return b.val, nil
}

func (n *callNode) eval(s *Scope) (value, error) {
	b, ok := s.lookup(n.name)
	if !ok {
		return value{}, fmt.Errorf("%w: operator %q", ErrUnboundName, n.name)
	}
	if b.kind != bindOperator {
		return value{}, fmt.Errorf("%w: %q is not an operator", ErrUnboundName, n.name)
	}
	args := make([]value, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(s)
		if err != nil {
			return value{}, err
		}
		args[i] = v
	}
	out, err := b.op.Call(s.rows, args)
	if err != nil {
		if errors.Is(err, calculator.ErrArgumentType) {
			return value{}, fmt.Errorf("%w: %w", ErrEvaluation, err)
		}
		return value{}, err
	}
	return calculator.SeriesValue(out), nil
}

func (n *unaryNode) eval(s *Scope) (value, error) {
	v, err := n.operand.eval(s)
	if err != nil {
		return value{}, err
	}
	var f func(float64) float64
	switch n.op {
	case "-":
		f = func(x float64) float64 { return -x }
	case "+":
		return v, nil
	case "!":
		f = func(x float64) float64 { return boolean(!truthy(x)) }
	default:
		return value{}, fmt.Errorf("%w: unknown unary operator %q", ErrEvaluation, n.op)
	}
	if v.IsScalar() {
		return calculator.ScalarValue(f(v.Scalar)), nil
	}
	out := make(model.Series, len(v.Series))
	for i, x := range v.Series {
		out[i] = f(x)
	}
	return calculator.SeriesValue(out), nil
}

func (n *binaryNode) eval(s *Scope) (value, error) {
	l, err := n.left.eval(s)
	if err != nil {
		return value{}, err
	}
	r, err := n.right.eval(s)
	if err != nil {
		return value{}, err
	}
	f, ok := binaryOps[n.op]
	if !ok {
		return value{}, fmt.Errorf("%w: unknown operator %q", ErrEvaluation, n.op)
	}
	return combine(s.rows, f, l, r), nil
}

func (n *ternaryNode) eval(s *Scope) (value, error) {
	c, err := n.cond.eval(s)
	if err != nil {
		return value{}, err
	}
	a, err := n.then.eval(s)
	if err != nil {
		return value{}, err
	}
	b, err := n.otherwise.eval(s)
	if err != nil {
		return value{}, err
	}
	if c.IsScalar() && a.IsScalar() && b.IsScalar() {
		return calculator.ScalarValue(pick(c.Scalar, a.Scalar, b.Scalar)), nil
	}
	out := make(model.Series, s.rows)
	for i := range out {
		out[i] = pick(c.At(i), a.At(i), b.At(i))
	}
	return calculator.SeriesValue(out), nil
}

func pick(c, a, b float64) float64 {
	switch {
	case math.IsNaN(c):
		return math.NaN()
	case c != 0:
		return a
	default:
		return b
	}
}

// combine applies f pointwise, broadcasting scalars.
func combine(rows int, f func(a, b float64) float64, l, r value) value {
	if l.IsScalar() && r.IsScalar() {
		return calculator.ScalarValue(f(l.Scalar, r.Scalar))
	}
	out := make(model.Series, rows)
	for i := range out {
		out[i] = f(l.At(i), r.At(i))
	}
	return calculator.SeriesValue(out)
}

var binaryOps = map[string]func(a, b float64) float64{
	"+":  func(a, b float64) float64 { return a + b },
	"-":  func(a, b float64) float64 { return a - b },
	"*":  func(a, b float64) float64 { return a * b },
	"/":  func(a, b float64) float64 { return a / b },
	"%":  floorMod,
	"**": math.Pow,
	"<":  func(a, b float64) float64 { return boolean(a < b) },
	"<=": func(a, b float64) float64 { return boolean(a <= b) },
	">":  func(a, b float64) float64 { return boolean(a > b) },
	">=": func(a, b float64) float64 { return boolean(a >= b) },
	"==": func(a, b float64) float64 { return boolean(a == b) },
	"!=": func(a, b float64) float64 { return boolean(a != b) },
	"&":  func(a, b float64) float64 { return boolean(truthy(a) && truthy(b)) },
	"&&": func(a, b float64) float64 { return boolean(truthy(a) && truthy(b)) },
	"|":  func(a, b float64) float64 { return boolean(truthy(a) || truthy(b)) },
	"||": func(a, b float64) float64 { return boolean(truthy(a) || truthy(b)) },
}

// floorMod takes the sign of the divisor.
func floorMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

// truthy treats NaN and zero as false.
func truthy(x float64) bool { return x != 0 && !math.IsNaN(x) }

func boolean(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
