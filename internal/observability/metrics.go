package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "delivery_fee"

// Metrics holds the Prometheus counters, histograms, and gauges for ingestion and quoting.
type Metrics struct {
	// Ingestion metrics.
	IngestCycles        *prometheus.CounterVec // labels: outcome={success,partial,fetch_error,parse_error}
	ObservationsStored  prometheus.Counter
	IngestCycleDuration prometheus.Histogram
	LastIngestSuccess   prometheus.Gauge
	SchedulerRunning    prometheus.Gauge

	// Quote metrics.
	Quotes *prometheus.CounterVec // labels: outcome={ok,unknown_city,unknown_vehicle,forbidden,no_data,error}

	// Publisher metrics.
	ObservationsPublished prometheus.Counter
	PublishErrors         prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.IngestCycles,
		m.ObservationsStored,
		m.IngestCycleDuration,
		m.LastIngestSuccess,
		m.SchedulerRunning,
		m.Quotes,
		m.ObservationsPublished,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		IngestCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_cycles_total",
			Help:      "Ingestion cycles by outcome.",
		}, []string{"outcome"}),
		ObservationsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_observations_total",
			Help:      "Total observations written to the store.",
		}),
		IngestCycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_cycle_duration_seconds",
			Help:      "Duration of a complete fetch-parse-store cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		LastIngestSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_last_success_timestamp_seconds",
			Help:      "Unix time of the last cycle that stored every observation.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 when the ingestion scheduler is active, 0 when shut down.",
		}),
		Quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Fee quote requests by outcome.",
		}, []string{"outcome"}),
		ObservationsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_published_total",
			Help:      "Total observations published to Kafka.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed observation publish attempts.",
		}),
	}
}
