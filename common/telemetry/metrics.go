package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Domain counters. Registered once at startup via RegisterMetrics.
var (
	// AssignmentsTotal counts orchestrator operations by kind and outcome.
	AssignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signcore_assignments_total",
			Help: "Sign assignment operations.",
		},
		[]string{"operation", "outcome"},
	)

	// ResolutionsTotal counts public resolutions by outcome.
	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signcore_resolutions_total",
			Help: "Public code resolutions.",
		},
		[]string{"kind", "outcome"},
	)

	// GenerationsTotal counts artifact generation attempts by result.
	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signcore_generations_total",
			Help: "Artifact generation attempts.",
		},
		[]string{"result"},
	)

	// ScanEventsDropped counts scan events lost to a full recording buffer.
	ScanEventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signcore_scan_events_dropped_total",
			Help: "Scan events dropped before recording.",
		},
	)
)

// RegisterMetrics registers all domain collectors with the default registry
func RegisterMetrics() {
	prometheus.MustRegister(
		AssignmentsTotal,
		ResolutionsTotal,
		GenerationsTotal,
		ScanEventsDropped,
	)
}
