package calculator

import (
	"math"

	"FactorForge/internal/model"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean is the rolling arithmetic mean.
func Mean(a model.Series, w int) (model.Series, error) {
	return rolling(a, w, func(win []float64) float64 { return stat.Mean(win, nil) })
}

// Sum is the rolling sum.
func Sum(a model.Series, w int) (model.Series, error) {
	return rolling(a, w, floats.Sum)
}

// Std is the rolling sample standard deviation. A window of one is undefined.
func Std(a model.Series, w int) (model.Series, error) {
	return rolling(a, w, func(win []float64) float64 {
		if len(win) < 2 {
			return math.NaN()
		}
		return stat.StdDev(win, nil)
	})
}

// Product is the rolling product.
func Product(a model.Series, w int) (model.Series, error) {
	return rolling(a, w, floats.Prod)
}

// DecayLinear weights the window 1..w from oldest to newest.
func DecayLinear(a model.Series, w int) (model.Series, error) {
	if err := checkWindow(w); err != nil {
		return nil, err
	}
	if beyond(len(a), w) {
		return model.NewSeries(len(a)), nil
	}
	weights := make([]float64, w)
	for i := range weights {
		weights[i] = float64(i + 1)
	}
	return weighted(a, weights)
}

// WMA weights each point by 0.9^age, the newest point having weight 1.
func WMA(a model.Series, w int) (model.Series, error) {
	if err := checkWindow(w); err != nil {
		return nil, err
	}
	if beyond(len(a), w) {
		return model.NewSeries(len(a)), nil
	}
	weights := make([]float64, w)
	for i := range weights {
		weights[i] = math.Pow(0.9, float64(w-1-i))
	}
	return weighted(a, weights)
}

// SMA is the window average under a flat weight.
func SMA(a model.Series, w int, weight float64) (model.Series, error) {
	if err := checkWindow(w); err != nil {
		return nil, err
	}
	if beyond(len(a), w) {
		return model.NewSeries(len(a)), nil
	}
	weights := make([]float64, w)
	for i := range weights {
		weights[i] = weight
	}
	return weighted(a, weights)
}
