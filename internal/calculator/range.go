package calculator

import (
	"sort"

	"FactorForge/internal/model"

	"gonum.org/v1/gonum/floats"
)

// TsMax is the rolling maximum.
func TsMax(a model.Series, w int) (model.Series, error) {
	return rolling(a, w, floats.Max)
}

// TsMin is the rolling minimum.
func TsMin(a model.Series, w int) (model.Series, error) {
	return rolling(a, w, floats.Min)
}

// TsArgMax is the window position (0 = oldest) of the first maximum.
func TsArgMax(a model.Series, w int) (model.Series, error) {
	return rolling(a, w, func(win []float64) float64 { return float64(floats.MaxIdx(win)) })
}

// TsArgMin is the window position (0 = oldest) of the first minimum.
func TsArgMin(a model.Series, w int) (model.Series, error) {
	return rolling(a, w, func(win []float64) float64 { return float64(floats.MinIdx(win)) })
}

// IdxMax is the number of steps since the window maximum.
func IdxMax(a model.Series, w int) (model.Series, error) {
	return rolling(a, w, func(win []float64) float64 { return float64(len(win) - 1 - floats.MaxIdx(win)) })
}

// IdxMin is the number of steps since the window minimum.
func IdxMin(a model.Series, w int) (model.Series, error) {
	return rolling(a, w, func(win []float64) float64 { return float64(len(win) - 1 - floats.MinIdx(win)) })
}

// TsRank is the percentile rank of the newest point within its window.
func TsRank(a model.Series, w int) (model.Series, error) {
	return rolling(a, w, func(win []float64) float64 { return pctRank(win, win[len(win)-1]) })
}

// Quantile is the rolling q-quantile with linear interpolation.
func Quantile(a model.Series, w int, q float64) (model.Series, error) {
	buf := make([]float64, 0, max(min(w, len(a)), 0))
	return rolling(a, w, func(win []float64) float64 {
		buf = append(buf[:0], win...)
		sort.Float64s(buf)
		return linearQuantile(buf, q)
	})
}
