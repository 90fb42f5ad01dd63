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

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grant_pipeline_runs_total",
			Help: "Discovery pipeline runs by outcome",
		},
		[]string{"status"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grant_pipeline_duration_seconds",
			Help:    "Discovery pipeline wall time",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	EligibilityVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grant_eligibility_verdicts_total",
			Help: "Eligibility verdicts by outcome",
		},
		[]string{"verdict"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grant_match_cache_lookups_total",
			Help: "Match cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	AIAnalyses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grant_ai_analyses_total",
			Help: "AI match analyses by outcome (ok, timeout, failed)",
		},
		[]string{"outcome"},
	)

	CacheSweepDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grant_cache_sweep_deleted_total",
			Help: "Match cache entries deleted by the sweeper",
		},
		[]string{"reason"},
	)
)

// RecordJobCompleted bumps the completion counter for taskType.
func RecordJobCompleted(taskType string) {
	WorkerJobsCompleted.WithLabelValues(taskType).Inc()
}

// RecordJobFailed bumps the failure counter for taskType and errorCode.
func RecordJobFailed(taskType, errorCode string) {
	WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
}
