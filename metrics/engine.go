// Package metrics provides Prometheus metrics for the release engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics contains Prometheus metrics for lifecycle, purge, upload and
// cascade operations. A nil *EngineMetrics records nothing.
type EngineMetrics struct {
	registry *prometheus.Registry

	transitionsTotal    *prometheus.CounterVec
	transitionErrors    *prometheus.CounterVec
	purgeDeletesTotal   *prometheus.CounterVec
	uploadsTotal        *prometheus.CounterVec
	uploadBytesTotal    *prometheus.CounterVec
	uploadDuration      *prometheus.HistogramVec
	cascadeDeletesTotal *prometheus.CounterVec
}

// NewEngineMetrics creates and registers the engine metrics.
func NewEngineMetrics(registry *prometheus.Registry) (*EngineMetrics, error) {
	m := &EngineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *EngineMetrics) initMetrics() {
	m.transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labeldesk_release_transitions_total",
			Help: "Total number of applied release status transitions",
		},
		[]string{"from", "to"}, // from is "new" for created releases
	)

	m.transitionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labeldesk_release_transition_errors_total",
			Help: "Total number of refused release status transitions",
		},
		[]string{"to", "error_type"}, // error_type: validation, authorization, not_found, upstream
	)

	m.purgeDeletesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labeldesk_purge_deletes_total",
			Help: "Total number of asset deletes issued while purging releases",
		},
		[]string{"status"}, // status: success, error
	)

	m.uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labeldesk_asset_uploads_total",
			Help: "Total number of asset uploads during draft commits",
		},
		[]string{"kind", "status"}, // kind: artwork, audio
	)

	m.uploadBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labeldesk_asset_upload_bytes_total",
			Help: "Total bytes of successfully uploaded assets",
		},
		[]string{"kind"},
	)

	m.uploadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labeldesk_asset_upload_duration_seconds",
			Help:    "Time taken to upload a single asset",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"kind"},
	)

	m.cascadeDeletesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labeldesk_cascade_deleted_entities_total",
			Help: "Total number of entities removed by label cascade deletes",
		},
		[]string{"entity"}, // entity: label, artist, release, user
	)
}

// RecordTransition counts an applied transition.
func (m *EngineMetrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	if from == "" {
		from = "new"
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordTransitionError counts a refused transition.
func (m *EngineMetrics) RecordTransitionError(to, errorType string) {
	if m == nil {
		return
	}
	m.transitionErrors.WithLabelValues(to, errorType).Inc()
}

// RecordPurgeDelete counts one asset delete issued by a purge.
func (m *EngineMetrics) RecordPurgeDelete(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.purgeDeletesTotal.WithLabelValues(status).Inc()
}

// RecordUpload counts one asset upload and, on success, its size and duration.
func (m *EngineMetrics) RecordUpload(kind string, bytes int64, d time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.uploadsTotal.WithLabelValues(kind, "error").Inc()
		return
	}
	m.uploadsTotal.WithLabelValues(kind, "success").Inc()
	m.uploadBytesTotal.WithLabelValues(kind).Add(float64(bytes))
	m.uploadDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordCascade counts entities removed by a label cascade delete.
func (m *EngineMetrics) RecordCascade(entity string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cascadeDeletesTotal.WithLabelValues(entity).Add(float64(n))
}

// Describe implements the Collector interface
func (m *EngineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.transitionsTotal.Describe(ch)
	m.transitionErrors.Describe(ch)
	m.purgeDeletesTotal.Describe(ch)
	m.uploadsTotal.Describe(ch)
	m.uploadBytesTotal.Describe(ch)
	m.uploadDuration.Describe(ch)
	m.cascadeDeletesTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *EngineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.transitionsTotal.Collect(ch)
	m.transitionErrors.Collect(ch)
	m.purgeDeletesTotal.Collect(ch)
	m.uploadsTotal.Collect(ch)
	m.uploadBytesTotal.Collect(ch)
	m.uploadDuration.Collect(ch)
	m.cascadeDeletesTotal.Collect(ch)
}
