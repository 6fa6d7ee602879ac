package calculator

import (
	"math"
	"testing"

	"FactorForge/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func ramp(n int) model.Series {
	s := make(model.Series, n)
	for i := range s {
		s[i] = float64(i + 1)
	}
	return s
}

func assertSeries(t *testing.T, want, got model.Series) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.Truef(t, math.IsNaN(got[i]), "index %d: want NaN, got %v", i, got[i])
			continue
		}
		assert.InDeltaf(t, want[i], got[i], 1e-9, "index %d", i)
	}
}

func TestRollingOperators_WarmupIsUndefined(t *testing.T) {
	lib := NewLibrary()
	x := model.Series{3, 1, 4, 1, 5, 9, 2, 6, 5, 3}
	y := model.Series{2, 7, 1, 8, 2, 8, 1, 8, 2, 8}
	const w = 4

	for _, name := range []string{
		"mean", "sum", "std", "tsmax", "tsmin", "tsrank", "idxmax", "idxmin",
		"slope", "rsquare", "resi", "decaylinear", "wma", "sma", "product", "count",
		"tsargmax", "tsargmin",
	} {
		t.Run(name, func(t *testing.T) {
			op, ok := lib.Lookup(name)
			require.True(t, ok)
			out, err := op.Call(len(x), []Value{SeriesValue(x), ScalarValue(w)})
			require.NoError(t, err)
			for i := 0; i < w-1; i++ {
				assert.Truef(t, math.IsNaN(out[i]), "index %d should be undefined", i)
			}
			for i := w - 1; i < len(x); i++ {
				assert.Falsef(t, math.IsNaN(out[i]), "index %d should be defined", i)
			}
		})
	}

	for _, name := range []string{"correlation", "covariance"} {
		t.Run(name, func(t *testing.T) {
			op, _ := lib.Lookup(name)
			out, err := op.Call(len(x), []Value{SeriesValue(x), SeriesValue(y), ScalarValue(w)})
			require.NoError(t, err)
			assert.True(t, math.IsNaN(out[w-2]))
			assert.False(t, math.IsNaN(out[w-1]))
		})
	}
}

func TestRolling_NaNInsideWindow(t *testing.T) {
	out, err := Mean(model.Series{1, 2, nan, 4, 5, 6}, 2)
	require.NoError(t, err)
	assertSeries(t, model.Series{nan, 1.5, nan, nan, 4.5, 5.5}, out)
}

func TestRolling_ShortHistory(t *testing.T) {
	out, err := Mean(model.Series{1, 2}, 5)
	require.NoError(t, err)
	assertSeries(t, model.Series{nan, nan}, out)
}

func TestRolling_HugeWindow(t *testing.T) {
	lib := NewLibrary()
	x := model.Series{1, 2, 3}
	allNaN := model.Series{nan, nan, nan}

	for _, w := range []float64{1e13, 1e30} {
		for _, name := range []string{
			"mean", "std", "tsrank", "slope", "rsquare", "resi", "decaylinear", "wma", "sma", "quantile", "shift",
		} {
			op, ok := lib.Lookup(name)
			require.True(t, ok)
			args := []Value{SeriesValue(x), ScalarValue(w)}
			if name == "quantile" {
				args = append(args, ScalarValue(0.5))
			}
			out, err := op.Call(len(x), args)
			require.NoError(t, err, "%s(%g)", name, w)
			assertSeries(t, allNaN, out)
		}
	}

	for _, fn := range []func(model.Series, int) (model.Series, error){DecayLinear, WMA, Slope, RSquare, Resi} {
		out, err := fn(x, 1<<40)
		require.NoError(t, err)
		assertSeries(t, allNaN, out)
	}
	out, err := SMA(x, 1<<40, 1)
	require.NoError(t, err)
	assertSeries(t, allNaN, out)
	out, err = Quantile(x, 1<<40, 0.5)
	require.NoError(t, err)
	assertSeries(t, allNaN, out)
}

func TestRolling_InvalidWindow(t *testing.T) {
	_, err := Mean(ramp(5), 0)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	op, _ := NewLibrary().Lookup("mean")
	for _, w := range []Value{ScalarValue(-3), ScalarValue(2.5), ScalarValue(nan), SeriesValue(ramp(5))} {
		_, err := op.Call(5, []Value{SeriesValue(ramp(5)), w})
		assert.ErrorIs(t, err, ErrInvalidWindow)
	}
}

func TestShift(t *testing.T) {
	x := model.Series{1, 2, 3, 4}

	same, err := Shift(x, 0)
	require.NoError(t, err)
	assertSeries(t, x, same)

	out, err := Shift(x, 2)
	require.NoError(t, err)
	assertSeries(t, model.Series{nan, nan, 1, 2}, out)

	out, err = Shift(x, 10)
	require.NoError(t, err)
	assertSeries(t, model.Series{nan, nan, nan, nan}, out)

	_, err = Shift(x, -1)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestDiff(t *testing.T) {
	out, err := Diff(model.Series{1, 4, 9, 16}, 1)
	require.NoError(t, err)
	assertSeries(t, model.Series{nan, 3, 5, 7}, out)
}

func TestWeightedAverages_Constant(t *testing.T) {
	x := model.Constant(12, 7.5)
	for name, f := range map[string]func(model.Series, int) (model.Series, error){
		"decaylinear": DecayLinear,
		"wma":         WMA,
		"mean":        Mean,
	} {
		t.Run(name, func(t *testing.T) {
			out, err := f(x, 5)
			require.NoError(t, err)
			for i := 4; i < len(out); i++ {
				assert.InDelta(t, 7.5, out[i], 1e-12)
			}
		})
	}
	out, err := SMA(x, 5, 3)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, out[4], 1e-12)
}

func TestDecayLinear_Weights(t *testing.T) {
	out, err := DecayLinear(model.Series{1, 2, 3}, 3)
	require.NoError(t, err)
	// (1*1 + 2*2 + 3*3) / 6
	assert.InDelta(t, 14.0/6, out[2], 1e-12)
}

func TestWMA_NewestWeighsMost(t *testing.T) {
	out, err := WMA(model.Series{0, 1}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1/1.9, out[1], 1e-12)
}

func TestRSquare(t *testing.T) {
	linear := make(model.Series, 20)
	for i := range linear {
		linear[i] = 3*float64(i) - 2
	}
	out, err := RSquare(linear, 6)
	require.NoError(t, err)
	for i := 5; i < len(out); i++ {
		assert.InDelta(t, 1, out[i], 1e-9)
	}

	noisy := model.Series{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8, 9, 7}
	out, err = RSquare(noisy, 5)
	require.NoError(t, err)
	for i := 4; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i], -1e-12)
		assert.LessOrEqual(t, out[i], 1+1e-12)
	}

	flat, err := RSquare(model.Constant(5, 2), 3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, flat[4])
}

func TestSlopeAndResi(t *testing.T) {
	x := model.Series{1, 3, 5, 7, 20}
	slope, err := Slope(x, 4)
	require.NoError(t, err)
	assert.InDelta(t, 2, slope[3], 1e-12)

	resi, err := Resi(x, 4)
	require.NoError(t, err)
	assert.InDelta(t, 0, resi[3], 1e-12)
	assert.Greater(t, resi[4], 0.0)
}

func TestCorrelation(t *testing.T) {
	a := model.Series{3, 1, 4, 1, 5, 9, 2, 6}
	neg := make(model.Series, len(a))
	for i := range neg {
		neg[i] = -a[i]
	}

	self, err := Correlation(a, a, 4)
	require.NoError(t, err)
	anti, err := Correlation(a, neg, 4)
	require.NoError(t, err)
	for i := 3; i < len(a); i++ {
		assert.InDelta(t, 1, self[i], 1e-9)
		assert.InDelta(t, -1, anti[i], 1e-9)
	}

	flat, err := Correlation(model.Constant(4, 1), a[:4], 4)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(flat[3]))
}

func TestCovariance(t *testing.T) {
	out, err := Covariance(model.Series{1, 2, 3}, model.Series{2, 4, 6}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 2, out[2], 1e-12)
}

func TestExtremes(t *testing.T) {
	x := model.Series{1, 5, 2, 5, 0}
	tests := []struct {
		name string
		fn   func(model.Series, int) (model.Series, error)
		want model.Series
	}{
		{"tsmax", TsMax, model.Series{nan, nan, 5, 5, 5}},
		{"tsmin", TsMin, model.Series{nan, nan, 1, 2, 0}},
		{"tsargmax", TsArgMax, model.Series{nan, nan, 1, 0, 1}},
		{"idxmax", IdxMax, model.Series{nan, nan, 1, 2, 1}},
		{"idxmin", IdxMin, model.Series{nan, nan, 2, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.fn(x, 3)
			require.NoError(t, err)
			assertSeries(t, tt.want, out)
		})
	}
}

func TestTsRank(t *testing.T) {
	out, err := TsRank(model.Series{1, 2, 3, 3, 1}, 3)
	require.NoError(t, err)
	assertSeries(t, model.Series{nan, nan, 1, 5.0 / 6, 1.0 / 3}, out)
}

func TestRank(t *testing.T) {
	out := Rank(model.Series{10, nan, 30, 20, 20})
	assertSeries(t, model.Series{0.25, nan, 1, 0.625, 0.625}, out)
}

func TestQuantile(t *testing.T) {
	out, err := Quantile(model.Series{4, 1, 3, 2}, 4, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, out[3], 1e-12)

	out, err = Quantile(model.Series{4, 1, 3, 2}, 4, 0.2)
	require.NoError(t, err)
	assert.InDelta(t, 1.6, out[3], 1e-12)

	all := AllQuantile(model.Series{nan, 1, 2, 3}, 1)
	assertSeries(t, model.Series{3, 3, 3, 3}, all)
}

func TestElementwise(t *testing.T) {
	assertSeries(t, model.Series{nan, -2.302585092994046, 0, nan}, Log(model.Series{-1, 0.1, 1, 0}))
	assertSeries(t, model.Series{-1, 0, 1, nan}, Sign(model.Series{-3, 0, 2, nan}))
	assertSeries(t, model.Series{1, 20, nan}, Where(model.Series{1, 0, nan}, model.Series{1, 2, 3}, model.Series{10, 20, 30}))
	assertSeries(t, model.Series{0, 5, 10}, Clip(model.Series{-5, 5, 50}, model.Constant(3, 0), model.Constant(3, 10)))
	assertSeries(t, model.Series{-4, 0, 9}, SignedPower(model.Series{-2, 0, 3}, model.Constant(3, 2)))
	assertSeries(t, model.Series{0.25, 0.75}, Scale(model.Series{1, 3}, 1))
	assertSeries(t, model.Series{nan, 2}, Min(model.Series{nan, 4}, model.Series{1, 2}))
}

func TestProduct(t *testing.T) {
	out, err := Product(model.Series{1, 2, 3, 4}, 3)
	require.NoError(t, err)
	assertSeries(t, model.Series{nan, nan, 6, 24}, out)
}

func TestStd_SampleDeviation(t *testing.T) {
	out, err := Std(model.Series{2, 4, 4, 4, 5, 5, 7, 9}, 8)
	require.NoError(t, err)
	assert.InDelta(t, 2.138089935299395, out[7], 1e-12)

	single, err := Std(model.Series{1, 2}, 1)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(single[1]))
}

func TestOperator_Arity(t *testing.T) {
	lib := NewLibrary()
	op, ok := lib.Lookup("correlation")
	require.True(t, ok)
	_, err := op.Call(3, []Value{SeriesValue(ramp(3))})
	assert.ErrorIs(t, err, ErrArityMismatch)

	scale, _ := lib.Lookup("scale")
	out, err := scale.Call(2, []Value{SeriesValue(model.Series{1, 1})})
	require.NoError(t, err)
	assertSeries(t, model.Series{0.5, 0.5}, out)

	_, err = scale.Call(2, []Value{SeriesValue(model.Series{1, 1}), ScalarValue(1), ScalarValue(2)})
	assert.ErrorIs(t, err, ErrArityMismatch)
}

func TestOperator_ScalarArguments(t *testing.T) {
	lib := NewLibrary()
	op, _ := lib.Lookup("max")
	out, err := op.Call(3, []Value{SeriesValue(model.Series{-1, 0, 1}), ScalarValue(0)})
	require.NoError(t, err)
	assertSeries(t, model.Series{0, 0, 1}, out)

	q, _ := lib.Lookup("quantile")
	_, err = q.Call(3, []Value{SeriesValue(ramp(3)), ScalarValue(2), SeriesValue(ramp(3))})
	assert.ErrorIs(t, err, ErrArgumentType)
}

func TestLibrary_Names(t *testing.T) {
	names := NewLibrary().Names()
	assert.GreaterOrEqual(t, len(names), 40)
	assert.Contains(t, names, "highday")
	assert.Contains(t, names, "lowday")
	assert.IsIncreasing(t, names)
}
