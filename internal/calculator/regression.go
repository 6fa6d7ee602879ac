package calculator

import (
	"math"

	"FactorForge/internal/model"

	"gonum.org/v1/gonum/stat"
)

// positions returns 0..w-1, the regressor of every window regression.
func positions(w int) []float64 {
	xs := make([]float64, w)
	for i := range xs {
		xs[i] = float64(i)
	}
	return xs
}

func regress(a model.Series, w int, fn func(xs, ys []float64, alpha, beta float64) float64) (model.Series, error) {
	if err := checkWindow(w); err != nil {
		return nil, err
	}
	if beyond(len(a), w) {
		return model.NewSeries(len(a)), nil
	}
	xs := positions(w)
	return rolling(a, w, func(ys []float64) float64 {
		if w < 2 {
			return math.NaN()
		}
		alpha, beta := stat.LinearRegression(xs, ys, nil, false)
		return fn(xs, ys, alpha, beta)
	})
}

// Slope is the OLS slope of the window against its positions.
func Slope(a model.Series, w int) (model.Series, error) {
	return regress(a, w, func(_, _ []float64, _, beta float64) float64 { return beta })
}

// RSquare is the coefficient of determination of the window regression.
// A window with no variance scores 0.
func RSquare(a model.Series, w int) (model.Series, error) {
	return regress(a, w, func(xs, ys []float64, alpha, beta float64) float64 {
		if stat.Variance(ys, nil) == 0 {
			return 0
		}
		return stat.RSquared(xs, ys, nil, alpha, beta)
	})
}

// Resi is the residual of the newest point against the window regression.
func Resi(a model.Series, w int) (model.Series, error) {
	return regress(a, w, func(xs, ys []float64, alpha, beta float64) float64 {
		last := len(ys) - 1
		return ys[last] - (alpha + beta*xs[last])
	})
}

// Correlation is the rolling Pearson correlation of a and b.
func Correlation(a, b model.Series, w int) (model.Series, error) {
	return rollingPair(a, b, w, func(x, y []float64) float64 {
		if len(x) < 2 {
			return math.NaN()
		}
		return stat.Correlation(x, y, nil)
	})
}

// Covariance is the rolling sample covariance of a and b.
func Covariance(a, b model.Series, w int) (model.Series, error) {
	return rollingPair(a, b, w, func(x, y []float64) float64 {
		if len(x) < 2 {
			return math.NaN()
		}
		return stat.Covariance(x, y, nil)
	})
}
