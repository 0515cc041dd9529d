// Package metrics exposes prometheus collectors over the translation
// pipeline: per-stage timing histograms and lossiness item counts by code
// and severity, served at GET /metrics via promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"specado/internal/assembler"
	"specado/internal/lossiness"
)

var (
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "specado",
		Subsystem: "translate",
		Name:      "stage_duration_microseconds",
		Help:      "Per-stage elapsed time of the translate pipeline.",
		Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
	}, []string{"stage"})

	translateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "specado",
		Subsystem: "translate",
		Name:      "requests_total",
		Help:      "Total translate() invocations by outcome.",
	}, []string{"outcome"})

	lossinessItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "specado",
		Subsystem: "translate",
		Name:      "lossiness_items_total",
		Help:      "Lossiness items recorded, by code and severity.",
	}, []string{"code", "severity"})
)

// ObserveStages records one translate()'s per-stage timings.
func ObserveStages(t assembler.StageTimings) {
	stageDuration.WithLabelValues("validator").Observe(float64(t.Validator))
	stageDuration.WithLabelValues("pre_validate").Observe(float64(t.PreValidate))
	stageDuration.WithLabelValues("transform").Observe(float64(t.Transform))
	stageDuration.WithLabelValues("map").Observe(float64(t.Map))
	stageDuration.WithLabelValues("resolve").Observe(float64(t.Resolve))
	stageDuration.WithLabelValues("flags").Observe(float64(t.Flags))
}

// ObserveOutcome increments the translate-request counter for outcome,
// which is "success" or an apperr.Kind string for a failure.
func ObserveOutcome(outcome string) {
	translateTotal.WithLabelValues(outcome).Inc()
}

// ObserveLossiness increments the per-code/severity counters for every
// item in items.
func ObserveLossiness(items []lossiness.Item) {
	for _, it := range items {
		lossinessItemsTotal.WithLabelValues(string(it.Code), string(it.Severity)).Inc()
	}
}
