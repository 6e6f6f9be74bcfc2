// Package metrics registers run counters and serves the scrape endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FlowFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "flow_fetches_total", Help: "Broker flow fetch attempts issued"},
		[]string{"symbol"},
	)
	SnapshotsLocated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "snapshots_located_total", Help: "Valid flow snapshots resolved"},
		[]string{"symbol"},
	)
	RateLimitTrips = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "rate_limit_trips_total", Help: "Provider rate limit responses seen"},
	)
	InstrumentsReported = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "instruments_reported_total", Help: "Instruments included in the final report"},
	)
)

func init() {
	prometheus.MustRegister(FlowFetches, SnapshotsLocated, RateLimitTrips, InstrumentsReported)
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
