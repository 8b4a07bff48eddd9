// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	IntakeAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_intake_attempts_total",
			Help: "Insert attempts made by application intake, by outcome",
		},
		[]string{"pool", "outcome"},
	)

	IntakeSchemaFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_intake_schema_fallbacks_total",
			Help: "Inserts retried with the legacy column set",
		},
		[]string{"pool"},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_status_transitions_total",
			Help: "Applications moved to a status",
		},
		[]string{"pool", "status"},
	)

	SubjectRepairFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_subject_repair_failures_total",
			Help: "Mark repairs that failed after a template replacement",
		},
		[]string{"pool", "op"},
	)

	Lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_lookups_total",
			Help: "Applicant status lookups, by path and result",
		},
		[]string{"path", "result"},
	)
)
