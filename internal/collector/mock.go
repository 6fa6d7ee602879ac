package collector

import (
	"context"
	"sort"
	"sync"
	"time"

	"FactorForge/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	// Price seeds generated bars for codes without fixed data.
	Price float64
	Data  map[string][]model.OHLCV
	Errs  map[string]error
	// Calls counts fetches per code.
	Calls map[string]int

	mu sync.Mutex
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(ctx context.Context, code string, from, to time.Time) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	if m.Calls == nil {
		m.Calls = make(map[string]int)
	}
	m.Calls[code]++
	m.mu.Unlock()
	if err, ok := m.Errs[code]; ok {
		return nil, err
	}
	if bars, ok := m.Data[code]; ok {
		var out []model.OHLCV
		for _, b := range bars {
			if (from.IsZero() || !b.Time.Before(from)) && (to.IsZero() || !b.Time.After(to)) {
				out = append(out, b)
			}
		}
		return out, nil
	}
	return generateMockBars(m.Price, from, to), nil
}

// ListCodes returns the codes with fixed data or errors, sorted.
func (m *MockFetcher) ListCodes(_ context.Context) ([]string, error) {
	seen := map[string]bool{}
	var codes []string
	for c := range m.Data {
		seen[c] = true
		codes = append(codes, c)
	}
	for c := range m.Errs {
		if !seen[c] {
			codes = append(codes, c)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// generateMockBars produces one bar per weekday in [from, to].
func generateMockBars(basePrice float64, from, to time.Time) []model.OHLCV {
	var bars []model.OHLCV
	i := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i%20-10)*0.001)
		bars = append(bars, model.OHLCV{
			Time:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000 + float64(i%7)*10000,
		})
		i++
	}
	return bars
}
