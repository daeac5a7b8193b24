package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	epicExtractor = "epic_extractor"

	// Extraction metrics
	attemptsTotal    = "attempts_total"
	extractionsTotal = "extractions_total"

	// Job metrics
	jobsRunning     = "jobs_running"
	jobRecordsTotal = "job_records_total"
	jobsReapedTotal = "jobs_reaped_total"

	// Labels
	outcomeLabel     = "outcome"
	statusLabel      = "status"
	dispositionLabel = "disposition"
)

/**
* Metrics definition
**/
var attemptsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: epicExtractor,
		Name:      attemptsTotal,
		Help:      "number of extraction attempts partitioned by outcome",
	},
	[]string{outcomeLabel},
)

var extractionsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: epicExtractor,
		Name:      extractionsTotal,
		Help:      "number of finished extractions partitioned by final status",
	},
	[]string{statusLabel},
)

var jobsRunningMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: epicExtractor,
		Name:      jobsRunning,
		Help:      "number of bulk jobs currently running in this process",
	},
)

var jobRecordsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: epicExtractor,
		Name:      jobRecordsTotal,
		Help:      "number of identifiers dispositioned by bulk jobs",
	},
	[]string{dispositionLabel},
)

var jobsReapedTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: epicExtractor,
		Name:      jobsReapedTotal,
		Help:      "number of orphaned jobs marked as failed",
	},
)

func IncreaseAttemptsMetric(outcome string) {
	attemptsTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

func IncreaseExtractionsMetric(status string) {
	extractionsTotalMetric.With(prometheus.Labels{statusLabel: status}).Inc()
}

func IncreaseJobRecordsMetric(disposition string) {
	jobRecordsTotalMetric.With(prometheus.Labels{dispositionLabel: disposition}).Inc()
}

func IncreaseJobsReapedMetric(count int) {
	jobsReapedTotalMetric.Add(float64(count))
}

func JobStarted() {
	jobsRunningMetric.Inc()
}

func JobFinished() {
	jobsRunningMetric.Dec()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(attemptsTotalMetric)
	prometheus.MustRegister(extractionsTotalMetric)
	prometheus.MustRegister(jobsRunningMetric)
	prometheus.MustRegister(jobRecordsTotalMetric)
	prometheus.MustRegister(jobsReapedTotalMetric)
}
