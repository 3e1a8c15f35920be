package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lionz"

var (
	DownloadEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_events_total",
			Help:      "Count of daemon notifications observed for referenced downloads.",
		},
		[]string{"type"},
	)

	Aria2RPCErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aria2_rpc_errors_total",
			Help:      "Errors from aria2 JSON-RPC calls.",
		},
		[]string{"method"},
	)

	Aria2RPCLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aria2_rpc_latency_seconds",
			Help:      "Latency of aria2 JSON-RPC calls.",
		},
		[]string{"method"},
	)

	Aria2RPCRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aria2_rpc_retries_total",
			Help:      "Transport-level retries of aria2 JSON-RPC requests.",
		},
	)

	Aria2BatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aria2_batch_size",
			Help:      "Number of envelopes per aria2 batch request.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)

	MetadataCacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_cache_requests_total",
			Help:      "Metadata cache lookups by kind and result.",
		},
		[]string{"kind", "result"},
	)

	Launches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launches_total",
			Help:      "Download launches by outcome.",
		},
		[]string{"outcome"},
	)
)

// Launch outcomes.
const (
	OutcomeStarted       = "started"
	OutcomeAlreadyActive = "already_active"
	OutcomeFailed        = "failed"
	OutcomeUnpersisted   = "unpersisted"
)

// Collectors returns every lionz collector.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		DownloadEvents, Aria2RPCErrors, Aria2RPCLatency, Aria2RPCRetries,
		Aria2BatchSize, MetadataCacheRequests, Launches,
	}
}

var registerOnce sync.Once

// Register registers the lionz metrics into the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(Collectors()...)
	})
}
