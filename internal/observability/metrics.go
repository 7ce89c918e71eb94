// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Stream metrics
	AlertsProcessed *prometheus.CounterVec
	DuplicateAlerts prometheus.Counter
	DecodeErrors    prometheus.Counter
	PublishErrors   prometheus.Counter

	// Decision metrics
	Decisions       *prometheus.CounterVec
	Candidates      *prometheus.CounterVec
	MalformedImages prometheus.Counter
	DecideDuration  prometheus.Histogram

	// Storage metrics
	StoreErrors *prometheus.CounterVec

	// Report metrics
	ReportRuns     *prometheus.CounterVec
	ReportDuration prometheus.Histogram

	// Health metrics
	LastProcessedMjd prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "transient_filter"
	}

	return &Metrics{
		AlertsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_processed_total",
			Help:      "Total number of alerts consumed and decided",
		}, []string{"survey"}),
		DuplicateAlerts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_alerts_total",
			Help:      "Total number of redelivered alerts skipped by the seen cache",
		}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Total number of alert payloads that failed schema mapping",
		}),
		PublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total number of failed candidate publications",
		}),

		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Total number of decisions by outcome",
		}, []string{"outcome"}),
		Candidates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Total number of discovery candidates by channel",
		}, []string{"channel"}),
		MalformedImages: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_images_total",
			Help:      "Total number of alerts rejected for malformed image stamps",
		}),
		DecideDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decide_duration_seconds",
			Help:      "Engine decision latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Total number of store operation failures by store",
		}, []string{"store"}),

		ReportRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_runs_total",
			Help:      "Total number of report generation runs by status",
		}, []string{"status"}),
		ReportDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_duration_seconds",
			Help:      "Report generation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		LastProcessedMjd: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_processed_mjd",
			Help:      "MJD of the most recently decided alert",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAlertProcessed increments the processed-alert counter for a survey.
func RecordAlertProcessed(survey string) {
	DefaultMetrics.AlertsProcessed.WithLabelValues(survey).Inc()
}

// RecordDuplicateAlert increments the duplicate-alert counter.
func RecordDuplicateAlert() {
	DefaultMetrics.DuplicateAlerts.Inc()
}

// RecordDecodeError increments the schema decode failure counter.
func RecordDecodeError() {
	DefaultMetrics.DecodeErrors.Inc()
}

// RecordPublishError increments the publish failure counter.
func RecordPublishError() {
	DefaultMetrics.PublishErrors.Inc()
}

// RecordDecision increments the decision counter for an outcome.
func RecordDecision(outcome string) {
	DefaultMetrics.Decisions.WithLabelValues(outcome).Inc()
}

// RecordCandidate increments the candidate counter for a channel.
func RecordCandidate(channel string) {
	DefaultMetrics.Candidates.WithLabelValues(channel).Inc()
}

// RecordMalformedImage increments the malformed-stamp counter.
func RecordMalformedImage() {
	DefaultMetrics.MalformedImages.Inc()
}

// ObserveDecideDuration records one engine decision latency.
func ObserveDecideDuration(seconds float64) {
	DefaultMetrics.DecideDuration.Observe(seconds)
}

// RecordStoreError increments the store failure counter for a store name.
func RecordStoreError(store string) {
	DefaultMetrics.StoreErrors.WithLabelValues(store).Inc()
}

// RecordReportRun records one report generation run.
func RecordReportRun(status string, durationSeconds float64) {
	DefaultMetrics.ReportRuns.WithLabelValues(status).Inc()
	DefaultMetrics.ReportDuration.Observe(durationSeconds)
}

// SetLastProcessedMjd updates the last processed MJD gauge.
func SetLastProcessedMjd(mjd float64) {
	DefaultMetrics.LastProcessedMjd.Set(mjd)
}
