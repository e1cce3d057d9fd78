package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "oracle"

var (
	// ObservationsFetchedTotal counts observations returned by providers.
	ObservationsFetchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_fetched_total",
			Help:      "Total number of observations fetched from providers",
		},
		[]string{"provider", "symbol"},
	)

	// FetchFailuresTotal counts provider failures by kind.
	FetchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Total number of failed provider fetches",
		},
		[]string{"provider", "kind"},
	)

	// ObservationAgeSeconds is the age of the last observation per source.
	ObservationAgeSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "observation_age_seconds",
			Help:      "Seconds between the observation publish time and its fetch",
		},
		[]string{"provider", "symbol"},
	)

	// ConsensusPrice is the latest consensus price.
	ConsensusPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consensus_price",
			Help:      "Latest consensus price per symbol",
		},
		[]string{"symbol", "policy"},
	)

	// ConsensusSkippedTotal counts feeds skipped in a cycle.
	ConsensusSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consensus_skipped_total",
			Help:      "Total number of feed cycles that produced no consensus",
		},
		[]string{"symbol", "reason"},
	)

	// PersistFailuresTotal counts failed writes per tier.
	PersistFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Total number of failed persistence writes",
		},
		[]string{"tier"},
	)

	// IngestCycleDuration is a histogram of full cycle latencies.
	IngestCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_cycle_duration_seconds",
			Help:      "Duration of ingest cycles",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"route"},
	)
)

var initOnce sync.Once

// Init registers all metrics with the default registry. Safe to call
// more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			ObservationsFetchedTotal,
			FetchFailuresTotal,
			ObservationAgeSeconds,
			ConsensusPrice,
			ConsensusSkippedTotal,
			PersistFailuresTotal,
			IngestCycleDuration,
			HTTPRequestsTotal,
			HTTPRequestDuration,
		)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServer returns a metrics-only HTTP server on addr serving path.
func NewServer(addr, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, Handler())
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// RecordFetch records a successful provider fetch.
func RecordFetch(provider, symbol string, age time.Duration) {
	ObservationsFetchedTotal.WithLabelValues(provider, symbol).Inc()
	ObservationAgeSeconds.WithLabelValues(provider, symbol).Set(age.Seconds())
}

// RecordFetchFailure records a failed provider fetch.
func RecordFetchFailure(provider, kind string) {
	FetchFailuresTotal.WithLabelValues(provider, kind).Inc()
}

// RecordConsensus records a new consensus price.
func RecordConsensus(symbol, policy string, price float64) {
	ConsensusPrice.WithLabelValues(symbol, policy).Set(price)
}

// RecordSkip records a feed that produced no consensus this cycle.
func RecordSkip(symbol, reason string) {
	ConsensusSkippedTotal.WithLabelValues(symbol, reason).Inc()
}

// RecordPersistFailure records a failed write to a tier.
func RecordPersistFailure(tier string) {
	PersistFailuresTotal.WithLabelValues(tier).Inc()
}

// RecordCycle records the duration of one ingest cycle.
func RecordCycle(d time.Duration) {
	IngestCycleDuration.Observe(d.Seconds())
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(route string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
