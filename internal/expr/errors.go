package expr

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax is returned when formula text cannot be parsed.
	ErrSyntax = errors.New("syntax error")
	// ErrUnboundName is returned when a formula references an unknown column or operator.
	ErrUnboundName = errors.New("unbound name")
	// ErrEvaluation is returned when a formula misuses a value or evaluation panics.
	ErrEvaluation = errors.New("evaluation error")
)

// SyntaxError reports a parse failure at a byte offset of the normalized text.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

func syntaxErrorf(pos int, format string, args ...any) error {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
