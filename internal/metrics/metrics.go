// Package metrics exposes Prometheus collectors for the record service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "welltrack"

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "Record mutations by action and outcome.",
	}, []string{"action", "outcome"})

	uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Upload previews and commits by stage and outcome.",
	}, []string{"stage", "outcome"})

	violations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_violations_total",
		Help:      "Validation violations by field.",
	}, []string{"field"})

	storeResets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_resets_total",
		Help:      "Times the workbook was unreadable and reset to empty.",
	})

	records = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "records",
		Help:      "Records in the store after the last load or save.",
	})

	stagedUploads = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "staged_uploads",
		Help:      "Previewed uploads waiting for a commit.",
	})

	storeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_duration_seconds",
		Help:      "Workbook load and save latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern and status class.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)

// Mutation counts one create, update, delete or upload commit.
func Mutation(action, outcome string) {
	mutations.WithLabelValues(action, outcome).Inc()
}

// Upload counts one upload stage ("preview" or "commit").
func Upload(stage, outcome string) {
	uploads.WithLabelValues(stage, outcome).Inc()
}

// Violation counts one broken validation rule.
func Violation(field string) {
	violations.WithLabelValues(field).Inc()
}

// StoreReset counts one reset of an unreadable workbook.
func StoreReset() {
	storeResets.Inc()
}

// Records sets the current record count.
func Records(n int) {
	records.Set(float64(n))
}

// StagedUploads sets the number of uploads waiting for a commit.
func StagedUploads(n int) {
	stagedUploads.Set(float64(n))
}

// ObserveStore records how long a load or save took.
func ObserveStore(op string, seconds float64) {
	storeDuration.WithLabelValues(op).Observe(seconds)
}

// ObserveRequest records one served request. route is the matched router
// pattern, not the raw path, to keep label cardinality bounded.
func ObserveRequest(method, route string, status int, seconds float64) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(seconds)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
