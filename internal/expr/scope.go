package expr

import (
	"math"
	"strings"

	"FactorForge/internal/calculator"
	"FactorForge/internal/model"
)

type value = calculator.Value

type bindingKind int

const (
	bindOperator bindingKind = iota
	bindConstant
	bindColumn
)

type binding struct {
	kind bindingKind
	op   *calculator.Operator
	val  value
}

// Scope binds names for the evaluation of formulas against one table.
// Operators are bound first, then constants, then the table's columns, so a
// column shadows an operator or constant of the same name. A Scope is not
// modified after Bind returns and is never shared between tables.
type Scope struct {
	code  string
	rows  int
	names map[string]binding
}

func newScope(lib *calculator.Library, t *model.Table) *Scope {
	names := lib.Names()
	s := &Scope{
		code:  t.Code,
		rows:  t.Len(),
		names: make(map[string]binding, len(names)+len(t.Columns())+2),
	}
	for _, name := range names {
		op, _ := lib.Lookup(name)
		s.names[name] = binding{kind: bindOperator, op: op}
	}
	s.names["nan"] = binding{kind: bindConstant, val: calculator.ScalarValue(math.NaN())}
	s.names["inf"] = binding{kind: bindConstant, val: calculator.ScalarValue(math.Inf(1))}
	for _, col := range t.Columns() {
		series, _ := t.Column(col)
		s.names[strings.ToLower(col)] = binding{kind: bindColumn, val: calculator.SeriesValue(series)}
	}
	return s
}

// Rows returns the number of rows every result of this scope has.
func (s *Scope) Rows() int { return s.rows }

func (s *Scope) lookup(name string) (binding, bool) {
	b, ok := s.names[name]
	return b, ok
}
