package collector

import (
	"context"
	"time"

	"FactorForge/internal/model"
)

// Fetcher loads the daily history of one instrument.
type Fetcher interface {
	// FetchDailyBars returns bars dated within [from, to] in any order.
	FetchDailyBars(ctx context.Context, code string, from, to time.Time) ([]model.OHLCV, error)
	Name() string
}

// Universe lists the instruments a source knows about.
type Universe interface {
	ListCodes(ctx context.Context) ([]string, error)
}
