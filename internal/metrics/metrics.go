// Package metrics exposes prometheus collectors for answering and corpus rebuilds.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kotae"

// Outcome labels for queries and rebuilds.
const (
	OutcomeAnswered  = "answered"
	OutcomeNoMatch   = "no_match"
	OutcomeError     = "error"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Metrics holds the collectors, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	queriesTotal      *prometheus.CounterVec
	queryDuration     *prometheus.HistogramVec
	sentencesScored   prometheus.Histogram
	rebuildsTotal     *prometheus.CounterVec
	snapshotDocuments prometheus.Gauge
	snapshotVocab     prometheus.Gauge
	rateLimitedTotal  prometheus.Counter
	requestTotal      *prometheus.CounterVec
}

// New creates the collectors and registers them.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "qa",
			Name:      "queries_total",
			Help:      "Total queries answered by outcome.",
		},
		[]string{"outcome"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "qa",
			Name:      "query_duration_seconds",
			Help:      "Query duration in seconds by ranking stage.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"stage"},
	)
	sentencesScored := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "qa",
			Name:      "sentences_scored",
			Help:      "Distribution of candidate sentences per query.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
	rebuildsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "rebuilds_total",
			Help:      "Total corpus snapshot builds by result.",
		},
		[]string{"result"},
	)
	snapshotDocuments := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "documents",
			Help:      "Documents in the current snapshot.",
		},
	)
	snapshotVocab := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "vocabulary_terms",
			Help:      "Distinct terms in the current snapshot.",
		},
	)
	rateLimitedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
	)
	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "path", "status"},
	)

	registry.MustRegister(
		queriesTotal,
		queryDuration,
		sentencesScored,
		rebuildsTotal,
		snapshotDocuments,
		snapshotVocab,
		rateLimitedTotal,
		requestTotal,
	)

	return &Metrics{
		registry:          registry,
		queriesTotal:      queriesTotal,
		queryDuration:     queryDuration,
		sentencesScored:   sentencesScored,
		rebuildsTotal:     rebuildsTotal,
		snapshotDocuments: snapshotDocuments,
		snapshotVocab:     snapshotVocab,
		rateLimitedTotal:  rateLimitedTotal,
		requestTotal:      requestTotal,
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordQuery counts one query and observes its per-stage durations.
func (m *Metrics) RecordQuery(outcome string, documentStage, sentenceStage time.Duration, candidates int) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(outcome).Inc()
	m.queryDuration.WithLabelValues("documents").Observe(documentStage.Seconds())
	m.queryDuration.WithLabelValues("sentences").Observe(sentenceStage.Seconds())
	m.sentencesScored.Observe(float64(candidates))
}

// RecordQueryError counts a failed query.
func (m *Metrics) RecordQueryError() {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(OutcomeError).Inc()
}

// RecordRebuild counts a snapshot build and, on success, updates the corpus gauges.
func (m *Metrics) RecordRebuild(err error, documents, vocabulary int) {
	if m == nil {
		return
	}
	if err != nil {
		m.rebuildsTotal.WithLabelValues(OutcomeFailed).Inc()
		return
	}
	m.rebuildsTotal.WithLabelValues(OutcomeSucceeded).Inc()
	m.snapshotDocuments.Set(float64(documents))
	m.snapshotVocab.Set(float64(vocabulary))
}

// RecordRateLimited counts a rejected request.
func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedTotal.Inc()
}

// Middleware counts requests by method, route pattern and status.
func (m *Metrics) Middleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r)
			path := r.URL.Path
			if route != nil {
				if p := route(r); p != "" {
					path = p
				}
			}
			m.requestTotal.WithLabelValues(r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
