package calculator

import (
	"math"
	"sort"

	"FactorForge/internal/model"
)

func zip(a, b model.Series, fn func(x, y float64) float64) model.Series {
	out := make(model.Series, len(a))
	for i := range a {
		out[i] = fn(a[i], b[i])
	}
	return out
}

func apply(a model.Series, fn func(x float64) float64) model.Series {
	out := make(model.Series, len(a))
	for i, v := range a {
		out[i] = fn(v)
	}
	return out
}

// Min is the pointwise minimum. NaN propagates.
func Min(a, b model.Series) model.Series { return zip(a, b, math.Min) }

// Max is the pointwise maximum. NaN propagates.
func Max(a, b model.Series) model.Series { return zip(a, b, math.Max) }

// Abs is the pointwise absolute value.
func Abs(a model.Series) model.Series { return apply(a, math.Abs) }

// Sign returns -1, 0 or 1 per point.
func Sign(a model.Series) model.Series {
	return apply(a, func(x float64) float64 {
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		default:
			return x // keeps 0 and NaN
		}
	})
}

// Log is the natural logarithm; non-positive inputs are undefined.
func Log(a model.Series) model.Series {
	return apply(a, func(x float64) float64 {
		if x <= 0 {
			return math.NaN()
		}
		return math.Log(x)
	})
}

// Where picks a where cond is non-zero and b otherwise. An undefined
// condition yields an undefined point.
func Where(cond, a, b model.Series) model.Series {
	out := make(model.Series, len(cond))
	for i, c := range cond {
		switch {
		case math.IsNaN(c):
			out[i] = math.NaN()
		case c != 0:
			out[i] = a[i]
		default:
			out[i] = b[i]
		}
	}
	return out
}

// Clip bounds a to [lo, hi]. An undefined bound is ignored.
func Clip(a, lo, hi model.Series) model.Series {
	out := make(model.Series, len(a))
	for i, v := range a {
		if !math.IsNaN(lo[i]) && v < lo[i] {
			v = lo[i]
		}
		if !math.IsNaN(hi[i]) && v > hi[i] {
			v = hi[i]
		}
		out[i] = v
	}
	return out
}

// SignedPower is sign(a)*|a|^p.
func SignedPower(a, p model.Series) model.Series {
	return zip(a, p, func(x, e float64) float64 {
		if math.IsNaN(x) {
			return x
		}
		s := 1.0
		if x < 0 {
			s = -1
		} else if x == 0 {
			return 0
		}
		return s * math.Pow(math.Abs(x), e)
	})
}

// Rank is the percentile rank of every point over the whole series, with
// ties averaged and NaN left out of the population.
func Rank(a model.Series) model.Series {
	idx := make([]int, 0, len(a))
	for i, v := range a {
		if !math.IsNaN(v) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(i, j int) bool { return a[idx[i]] < a[idx[j]] })

	out := model.NewSeries(len(a))
	n := float64(len(idx))
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && a[idx[j]] == a[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // mean of 1-based ranks i+1..j
		for k := i; k < j; k++ {
			out[idx[k]] = avg / n
		}
		i = j
	}
	return out
}

// Scale rescales a so its defined values sum to factor.
func Scale(a model.Series, factor float64) model.Series {
	sum := 0.0
	for _, v := range a {
		if !math.IsNaN(v) {
			sum += v
		}
	}
	k := factor / sum
	return apply(a, func(x float64) float64 { return x * k })
}

// AllQuantile is the q-quantile of all defined values, repeated at every point.
func AllQuantile(a model.Series, q float64) model.Series {
	vals := make([]float64, 0, len(a))
	for _, v := range a {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	sort.Float64s(vals)
	return model.Constant(len(a), linearQuantile(vals, q))
}
