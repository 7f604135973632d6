// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StepValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_step_validation_failures_total",
			Help: "Total number of failed step validations by step and field",
		},
		[]string{"step", "field"},
	)

	StepTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_step_transitions_total",
			Help: "Total number of step navigations by direction",
		},
		[]string{"direction"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_submissions_total",
			Help: "Total number of submission attempts by outcome",
		},
		[]string{"outcome"},
	)

	SubmissionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "form_submissions_in_flight",
			Help: "Number of submissions awaiting a response",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of backend API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	OptionsLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_options_loads_total",
			Help: "Total number of option set loads by source",
		},
		[]string{"source"},
	)

	AuditWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_audit_writes_total",
			Help: "Total number of submission audit inserts by result",
		},
		[]string{"result"},
	)

	AdminStatusUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_status_updates_total",
			Help: "Total number of application status changes by new status",
		},
		[]string{"status"},
	)
)
