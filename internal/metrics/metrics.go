package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockwatcher_fetch_total",
		Help: "Upstream quote fetches by provider, market and outcome.",
	}, []string{"provider", "market", "outcome"})

	QuotesParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockwatcher_quotes_parsed_total",
		Help: "Normalized quotes produced per provider and market.",
	}, []string{"provider", "market"})

	CacheServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockwatcher_cache_served_total",
		Help: "Quote requests answered from cache.",
	}, []string{"market", "reason"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stockwatcher_fetch_duration_seconds",
		Help:    "Upstream fetch latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	AlertsFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockwatcher_alerts_fired_total",
		Help: "Threshold alerts fired.",
	})
)

// Serve exposes /metrics and /healthz on its own listener so the
// operational surface stays off the API port. Blocks like
// http.ListenAndServe.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
