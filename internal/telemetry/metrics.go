package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service. Each instance owns
// its registry so tests can construct metrics freely without duplicate
// registration panics; the server exposes Registry on /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	VendorErrors     *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	UnmappedStatuses *prometheus.CounterVec
	HeuristicHits    *prometheus.CounterVec
	ReconcilerRuns   *prometheus.CounterVec
	ReconcilerBatch  *prometheus.GaugeVec
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierhub_requests_total",
				Help: "Total vendor operations by operation, vendor, and status",
			},
			[]string{"operation", "vendor", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "courierhub_request_duration_seconds",
				Help:    "Vendor operation duration in seconds by operation and vendor",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "vendor"},
		),
		VendorErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierhub_vendor_errors_total",
				Help: "Total vendor API errors by vendor and error type",
			},
			[]string{"vendor", "error_type"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierhub_cache_lookups_total",
				Help: "Cache lookups by subsystem and result (hit, miss, sentinel)",
			},
			[]string{"subsystem", "result"},
		),
		UnmappedStatuses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierhub_unmapped_statuses_total",
				Help: "Vendor statuses seen with no active bucket mapping, by courier",
			},
			[]string{"courier"},
		),
		HeuristicHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierhub_bucket_heuristic_hits_total",
				Help: "Bucket resolutions that fell through to keyword heuristics, by courier",
			},
			[]string{"courier"},
		),
		ReconcilerRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierhub_reconciler_shipments_total",
				Help: "Reconciler per-shipment outcomes (updated, skipped, failed)",
			},
			[]string{"outcome"},
		),
		ReconcilerBatch: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "courierhub_reconciler_last_batch",
				Help: "Size counters of the last reconciler batch",
			},
			[]string{"counter"},
		),
	}
}

// RecordRequest records one vendor operation.
func (m *Metrics) RecordRequest(operation, vendor, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(operation, vendor, status).Inc()
	m.RequestDuration.WithLabelValues(operation, vendor).Observe(duration)
}

// RecordVendorError records a vendor API error.
func (m *Metrics) RecordVendorError(vendor, errorType string) {
	m.VendorErrors.WithLabelValues(vendor, errorType).Inc()
}

// RecordCacheLookup records a cache hit, miss, or sentinel hit.
func (m *Metrics) RecordCacheLookup(subsystem, result string) {
	m.CacheLookups.WithLabelValues(subsystem, result).Inc()
}

// RecordUnmappedStatus records a mapping-table miss routed to review.
func (m *Metrics) RecordUnmappedStatus(courier string) {
	m.UnmappedStatuses.WithLabelValues(courier).Inc()
}

// RecordHeuristicHit records a keyword-fallback bucket resolution.
func (m *Metrics) RecordHeuristicHit(courier string) {
	m.HeuristicHits.WithLabelValues(courier).Inc()
}

// RecordReconciler records a batch's outcome counters.
func (m *Metrics) RecordReconciler(processed, updated, skipped, failed int) {
	m.ReconcilerRuns.WithLabelValues("updated").Add(float64(updated))
	m.ReconcilerRuns.WithLabelValues("skipped").Add(float64(skipped))
	m.ReconcilerRuns.WithLabelValues("failed").Add(float64(failed))
	m.ReconcilerBatch.WithLabelValues("processed").Set(float64(processed))
	m.ReconcilerBatch.WithLabelValues("updated").Set(float64(updated))
	m.ReconcilerBatch.WithLabelValues("skipped").Set(float64(skipped))
	m.ReconcilerBatch.WithLabelValues("failed").Set(float64(failed))
}
