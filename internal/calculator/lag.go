package calculator

import (
	"fmt"

	"FactorForge/internal/model"
)

// Shift returns the value k steps earlier. Only backward shifts are allowed.
func Shift(a model.Series, k int) (model.Series, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: shift must be non-negative, got %d", ErrInvalidWindow, k)
	}
	out := model.NewSeries(len(a))
	for i := k; i < len(a); i++ {
		out[i] = a[i-k]
	}
	return out, nil
}

// Diff is a - Shift(a, k).
func Diff(a model.Series, k int) (model.Series, error) {
	prev, err := Shift(a, k)
	if err != nil {
		return nil, err
	}
	return zip(a, prev, func(x, y float64) float64 { return x - y }), nil
}
