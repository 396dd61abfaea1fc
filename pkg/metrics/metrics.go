package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Record linker
	LinkRuns        *prometheus.CounterVec
	LinkMatches     *prometheus.CounterVec
	LinkFailures    prometheus.Counter
	LinkRunDuration prometheus.Histogram
	UnlinkedIntakes prometheus.Gauge

	// Check-in tracker
	CheckinsSaved      prometheus.Counter
	CheckinsRejected   *prometheus.CounterVec
	PatientCacheHits   prometheus.Counter
	PatientCacheMisses prometheus.Counter

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxRetries           *prometheus.CounterVec

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
}

// New creates all application metrics and registers them on reg. A nil reg
// leaves them unregistered, which is what tests want.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LinkRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "linker",
			Name:      "runs_total",
			Help:      "Record linker runs by mode and outcome",
		}, []string{"mode", "outcome"}),
		LinkMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "linker",
			Name:      "matches_total",
			Help:      "Intakes matched to a patient, by match method",
		}, []string{"method"}),
		LinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "linker",
			Name:      "link_failures_total",
			Help:      "Matched intakes whose link could not be persisted",
		}),
		LinkRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "linker",
			Name:      "run_duration_seconds",
			Help:      "Duration of record linker runs",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		UnlinkedIntakes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "linker",
			Name:      "unlinked_intakes",
			Help:      "Intakes without a patient at the start of the last run",
		}),

		CheckinsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkin",
			Name:      "saved_total",
			Help:      "Weekly check-ins created or replaced",
		}),
		CheckinsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkin",
			Name:      "rejected_total",
			Help:      "Check-ins rejected before persistence, by field",
		}, []string{"field"}),
		PatientCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkin",
			Name:      "patient_cache_hits_total",
			Help:      "Active patient list served from cache",
		}),
		PatientCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkin",
			Name:      "patient_cache_misses_total",
			Help:      "Active patient list loaded from the store",
		}),

		OutboxEventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "retry_attempts_total",
			Help:      "Total number of retry attempts for outbox events",
		}, []string{"event_type"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
		}, []string{"method", "path", "status"}),
		RequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.LinkRuns, m.LinkMatches, m.LinkFailures, m.LinkRunDuration, m.UnlinkedIntakes,
			m.CheckinsSaved, m.CheckinsRejected, m.PatientCacheHits, m.PatientCacheMisses,
			m.OutboxEventsProcessed, m.OutboxEventsFailed, m.OutboxProcessingLatency, m.OutboxRetries,
			m.RequestDuration, m.RequestTotal,
		)
	}

	return m
}
