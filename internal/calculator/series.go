package calculator

import (
	"errors"
	"fmt"
	"math"

	"FactorForge/internal/model"
)

var (
	// ErrInvalidWindow is returned for a window or lag that is not a usable integer.
	ErrInvalidWindow = errors.New("invalid window")
	// ErrArityMismatch is returned when an operator receives the wrong number of arguments.
	ErrArityMismatch = errors.New("arity mismatch")
	// ErrArgumentType is returned when a series is passed where a scalar is required.
	ErrArgumentType = errors.New("argument type mismatch")
)

func checkWindow(w int) error {
	if w <= 0 {
		return fmt.Errorf("%w: window must be positive, got %d", ErrInvalidWindow, w)
	}
	return nil
}

// beyond reports whether a window of w never fills over n points. Callers
// return an all-NaN series before sizing anything by w.
func beyond(n, w int) bool { return w > n }

func hasNaN(win []float64) bool {
	for _, v := range win {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// rolling applies fn to every full trailing window of x. The first w-1
// points and any window holding a NaN stay NaN.
func rolling(x model.Series, w int, fn func(win []float64) float64) (model.Series, error) {
	if err := checkWindow(w); err != nil {
		return nil, err
	}
	out := model.NewSeries(len(x))
	for i := w - 1; i < len(x); i++ {
		win := x[i-w+1 : i+1]
		if hasNaN(win) {
			continue
		}
		out[i] = fn(win)
	}
	return out, nil
}

// rollingPair is rolling over two aligned series.
func rollingPair(a, b model.Series, w int, fn func(x, y []float64) float64) (model.Series, error) {
	if err := checkWindow(w); err != nil {
		return nil, err
	}
	if len(a) != len(b) {
		return nil, fmt.Errorf("series length mismatch: %d vs %d", len(a), len(b))
	}
	out := model.NewSeries(len(a))
	for i := w - 1; i < len(a); i++ {
		x, y := a[i-w+1:i+1], b[i-w+1:i+1]
		if hasNaN(x) || hasNaN(y) {
			continue
		}
		out[i] = fn(x, y)
	}
	return out, nil
}

// weighted returns the weighted average of every full window.
func weighted(x model.Series, weights []float64) (model.Series, error) {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	return rolling(x, len(weights), func(win []float64) float64 {
		s := 0.0
		for i, v := range win {
			s += v * weights[i]
		}
		return s / total
	})
}

// pctRank is the average-tie rank of v among vals, divided by len(vals).
func pctRank(vals []float64, v float64) float64 {
	less, equal := 0, 0
	for _, x := range vals {
		switch {
		case x < v:
			less++
		case x == v:
			equal++
		}
	}
	return (float64(less) + float64(equal+1)/2) / float64(len(vals))
}

// linearQuantile interpolates between order statistics at q*(n-1).
func linearQuantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 || math.IsNaN(q) {
		return math.NaN()
	}
	q = math.Max(0, math.Min(1, q))
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
