// Package metrics holds the Prometheus instruments of city provisioning.
// Collectors are registered with the global registry in init, so mounting
// promhttp.Handler is enough to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "citypages"

// Outcomes recorded on ProvisionOperations.
const (
	OutcomeOK          = "ok"
	OutcomeRejected    = "rejected"
	OutcomeCompensated = "compensated"
	OutcomeFailed      = "failed"
)

var (
	ProvisionOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provision_operations_total",
			Help:      "City provisioning operations by category, operation and outcome.",
		}, []string{"category", "operation", "outcome"})

	ProvisionCompensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provision_compensations_total",
			Help:      "Compensating actions run after a failed provisioning step.",
		}, []string{"category", "step"})

	PagesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_written_total",
			Help:      "Generated page files written to disk.",
		}, []string{"category"})

	ReconcileRepairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_repairs_total",
			Help:      "Page files repaired by the reconciler, by kind (missing, drifted, orphan).",
		}, []string{"category", "kind"})

	ProvisionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provision_duration_seconds",
			Help:      "Latency of provisioning operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"category", "operation"})
)

func init() {
	prometheus.MustRegister(
		ProvisionOperations,
		ProvisionCompensations,
		PagesWritten,
		ReconcileRepairs,
		ProvisionDuration,
	)
}
