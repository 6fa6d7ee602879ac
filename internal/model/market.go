package model

import "time"

// OHLCV represents a single daily bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	// Amount is the traded value; zero when the source does not report it.
	Amount float64
}

// History holds the raw bars of one instrument as returned by a fetcher.
type History struct {
	Code      string
	Bars      []OHLCV
	FetchedAt time.Time
}

// Base column names every history table carries.
const (
	ColOpen   = "open"
	ColHigh   = "high"
	ColLow    = "low"
	ColClose  = "close"
	ColVolume = "volume"
	ColAmount = "amount"
	ColVWAP   = "vwap"
	ColReturn = "ret"
)

// BaseColumns lists the columns a fetched history must provide.
var BaseColumns = []string{ColOpen, ColHigh, ColLow, ColClose, ColVolume}
