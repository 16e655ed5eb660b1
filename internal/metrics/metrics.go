// Package metrics exposes Prometheus instruments for mail fetching and the
// classification pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every mailboard metric. It is private so the TUI does not
// drag in the Go runtime collectors unless the server is enabled.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// ProviderCallDuration times mail provider calls.
	ProviderCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailboard_provider_call_duration_seconds",
			Help:    "Mail provider call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"operation", "status"},
	)

	// StaleResponses counts page responses dropped because a newer fetch
	// superseded them.
	StaleResponses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailboard_stale_responses_total",
			Help: "Total number of page responses discarded as stale",
		},
		[]string{"kind"}, // kind: replace, append
	)

	// ClassifyBatchDuration times classification service calls.
	ClassifyBatchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailboard_classify_batch_duration_seconds",
			Help:    "Classification batch duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		},
		[]string{"status"},
	)

	// ClassifiedMessages counts messages by classification outcome.
	ClassifiedMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailboard_classified_messages_total",
			Help: "Total number of messages submitted for classification",
		},
		[]string{"status"}, // status: success, failed, missing
	)

	// InFlight is the current size of the classification in-flight set.
	InFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "mailboard_classify_in_flight",
			Help: "Messages currently submitted for classification",
		},
	)

	// AssistantCalls counts assistant requests by kind and status.
	AssistantCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailboard_assistant_calls_total",
			Help: "Total number of assistant requests",
		},
		[]string{"kind", "status"},
	)
)

// StatusLabel maps an error to the "status" label value.
func StatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordProviderCall records one mail provider call.
func RecordProviderCall(operation string, err error, d time.Duration) {
	ProviderCallDuration.WithLabelValues(operation, StatusLabel(err)).Observe(d.Seconds())
}

// RecordStale counts a dropped stale page response.
func RecordStale(kind string) {
	StaleResponses.WithLabelValues(kind).Inc()
}

// RecordClassifyBatch records a finished classification batch.
func RecordClassifyBatch(submitted, classified int, err error, d time.Duration) {
	ClassifyBatchDuration.WithLabelValues(StatusLabel(err)).Observe(d.Seconds())
	if err != nil {
		ClassifiedMessages.WithLabelValues("failed").Add(float64(submitted))
		return
	}
	ClassifiedMessages.WithLabelValues("success").Add(float64(classified))
	if missing := submitted - classified; missing > 0 {
		ClassifiedMessages.WithLabelValues("missing").Add(float64(missing))
	}
}

// SetInFlight updates the in-flight gauge.
func SetInFlight(n int) {
	InFlight.Set(float64(n))
}

// RecordAssistantCall counts one assistant request.
func RecordAssistantCall(kind string, err error) {
	AssistantCalls.WithLabelValues(kind, StatusLabel(err)).Inc()
}
