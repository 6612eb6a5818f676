// Package metrics exposes Prometheus metrics for the claim token service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClaimMetrics contains Prometheus metrics for claim token operations and the
// security audit trail. A nil *ClaimMetrics is valid and records nothing.
type ClaimMetrics struct {
	securityEventsTotal   *prometheus.CounterVec
	operationsTotal       *prometheus.CounterVec
	operationDuration     *prometheus.HistogramVec
	auditWriteErrorsTotal prometheus.Counter
	tokensCleanedTotal    prometheus.Counter
	tokensGauge           *prometheus.GaugeVec
}

// NewClaimMetrics creates the metrics and registers them with registry.
func NewClaimMetrics(registry prometheus.Registerer) (*ClaimMetrics, error) {
	m := &ClaimMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ClaimMetrics) initMetrics() {
	m.securityEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimkeeper_security_events_total",
			Help: "Total number of security events recorded",
		},
		[]string{"event_type", "severity"},
	)

	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimkeeper_token_operations_total",
			Help: "Total number of claim token operations",
		},
		[]string{"operation", "outcome"}, // outcome: success, failure, blocked, expired
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "claimkeeper_token_operation_duration_seconds",
			Help:    "Time taken by claim token operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)

	m.auditWriteErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "claimkeeper_audit_write_errors_total",
		Help: "Total number of security events that could not be persisted",
	})

	m.tokensCleanedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "claimkeeper_tokens_cleaned_total",
		Help: "Total number of claim tokens purged by cleanup",
	})

	m.tokensGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "claimkeeper_tokens",
			Help: "Claim tokens by state as of the last statistics run",
		},
		[]string{"state"},
	)
}

// Describe implements the Collector interface
func (m *ClaimMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.securityEventsTotal.Describe(ch)
	m.operationsTotal.Describe(ch)
	m.operationDuration.Describe(ch)
	m.auditWriteErrorsTotal.Describe(ch)
	m.tokensCleanedTotal.Describe(ch)
	m.tokensGauge.Describe(ch)
}

// Collect implements the Collector interface
func (m *ClaimMetrics) Collect(ch chan<- prometheus.Metric) {
	m.securityEventsTotal.Collect(ch)
	m.operationsTotal.Collect(ch)
	m.operationDuration.Collect(ch)
	m.auditWriteErrorsTotal.Collect(ch)
	m.tokensCleanedTotal.Collect(ch)
	m.tokensGauge.Collect(ch)
}

// RecordSecurityEvent counts one persisted security event.
func (m *ClaimMetrics) RecordSecurityEvent(eventType, severity string) {
	if m == nil {
		return
	}
	m.securityEventsTotal.WithLabelValues(eventType, severity).Inc()
}

// RecordAuditWriteError counts a security event that failed to persist.
func (m *ClaimMetrics) RecordAuditWriteError() {
	if m == nil {
		return
	}
	m.auditWriteErrorsTotal.Inc()
}

// RecordOperation counts a finished operation and observes its duration.
func (m *ClaimMetrics) RecordOperation(operation, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(took.Seconds())
}

// RecordCleanup adds deleted to the purge counter.
func (m *ClaimMetrics) RecordCleanup(deleted int64) {
	if m == nil {
		return
	}
	m.tokensCleanedTotal.Add(float64(deleted))
}

// SetTokenCounts publishes the latest per-state token totals.
func (m *ClaimMetrics) SetTokenCounts(active, used, expired int64) {
	if m == nil {
		return
	}
	m.tokensGauge.WithLabelValues("active").Set(float64(active))
	m.tokensGauge.WithLabelValues("used").Set(float64(used))
	m.tokensGauge.WithLabelValues("expired").Set(float64(expired))
}
