// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics exposes Prometheus instrumentation for the upload pipeline.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipd_uploads_total",
		Help: "Total number of upload attempts by outcome",
	}, []string{"result"})

	validationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipd_validation_failures_total",
		Help: "Total number of failed video validations by error kind",
	}, []string{"kind"})

	storageAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipd_storage_attempts_total",
		Help: "Total number of durable store attempts by outcome",
	}, []string{"result"})

	probeDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clipd_probe_duration_seconds",
		Help:    "ffprobe invocation latencies in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// IncUpload records an upload outcome.
// result ∈ {accepted,rejected,failed}; anything else is forced to "failed"
// to cap label cardinality.
func IncUpload(result string) {
	switch result {
	case "accepted", "rejected", "failed":
	default:
		result = "failed"
	}
	uploadsTotal.WithLabelValues(result).Inc()
}

// IncValidationFailure records a validation failure by error kind.
func IncValidationFailure(kind string) {
	validationFailuresTotal.WithLabelValues(strings.ToLower(strings.TrimSpace(kind))).Inc()
}

// IncStorageAttempt records one durable store attempt.
// result ∈ {ok,error}; anything else becomes "error".
func IncStorageAttempt(result string) {
	if result != "ok" {
		result = "error"
	}
	storageAttemptsTotal.WithLabelValues(result).Inc()
}

// ObserveProbeDuration records the wall time of one ffprobe invocation.
func ObserveProbeDuration(seconds float64) {
	probeDurationSeconds.Observe(seconds)
}
