package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	InstrumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "factor_instruments_total", Help: "Instruments processed, by outcome"},
		[]string{"status"},
	)
	FailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "factor_failures_total", Help: "Instrument failures, by error kind"},
		[]string{"kind"},
	)
	RowsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "factor_rows_written_total", Help: "Factor rows handed to the recorder"},
	)
	BuildSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "factor_instrument_build_seconds",
			Help:    "Time to fetch, evaluate and record one instrument",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(InstrumentsTotal, FailuresTotal, RowsWritten, BuildSeconds)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
