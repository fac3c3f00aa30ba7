package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	QueueJobReasonDeadlineExceeded = "deadline_exceeded"
	QueueJobReasonLMSUnavailable   = "lms_unavailable"
	QueueJobReasonLMSRejected      = "lms_rejected"
	QueueJobReasonDB               = "db"
	QueueJobReasonUnknown          = "unknown"
)

const (
	QueueOutcomeCompleted   = "completed"
	QueueOutcomeRescheduled = "rescheduled"
	QueueOutcomeFailed      = "failed"
)

// QueueMetrics captures retry queue health signals.
type QueueMetrics struct {
	batchRuns      prometheus.Counter
	batchDuration  prometheus.Observer
	jobsClaimed    prometheus.Counter
	jobOutcomes    *prometheus.CounterVec
	jobErrors      *prometheus.CounterVec
	stuckRecovered prometheus.Counter
	runLoopLag     prometheus.Observer
	queueDepth     *prometheus.GaugeVec
}

var (
	queueMetricsOnce sync.Once
	queueMetrics     *QueueMetrics
)

// Queue returns the singleton queue metrics registry.
func Queue() *QueueMetrics {
	return QueueWithConfig(Config{})
}

// QueueWithConfig returns the singleton queue metrics registry using config labels.
func QueueWithConfig(cfg Config) *QueueMetrics {
	queueMetricsOnce.Do(func() {
		queueMetrics = newQueueMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return queueMetrics
}

// ResetQueueMetricsForTest resets the queue metrics singleton for tests.
func ResetQueueMetricsForTest() {
	queueMetricsOnce = sync.Once{}
	queueMetrics = nil
}

func newQueueMetrics(registerer prometheus.Registerer, cfg Config) *QueueMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "fulfillment"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	batchRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "fulfillment_retry_batch_runs_total",
		Help:        "Retry worker batch passes.",
		ConstLabels: constLabels,
	})
	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "fulfillment_retry_batch_duration_seconds",
		Help:        "Retry worker batch latency.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})
	jobsClaimed := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "fulfillment_retry_jobs_claimed_total",
		Help:        "Retry jobs claimed by workers.",
		ConstLabels: constLabels,
	})
	jobOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "fulfillment_retry_job_outcomes_total",
		Help:        "Retry job outcomes per batch pass.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "fulfillment_retry_job_errors_total",
		Help:        "Retry job errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	stuckRecovered := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "fulfillment_retry_jobs_stuck_recovered_total",
		Help:        "Jobs returned to pending by the stuck sweep.",
		ConstLabels: constLabels,
	})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "fulfillment_retry_runloop_lag_seconds",
		Help:        "Worker run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		ConstLabels: constLabels,
	})
	queueDepth := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "fulfillment_retry_queue_depth",
		Help:        "Retry jobs by status after each batch pass.",
		ConstLabels: constLabels,
	}, []string{"status"})

	registerer.MustRegister(
		batchRuns,
		batchDuration,
		jobsClaimed,
		jobOutcomes,
		jobErrors,
		stuckRecovered,
		runLoopLag,
		queueDepth,
	)

	return &QueueMetrics{
		batchRuns:      batchRuns,
		batchDuration:  batchDuration,
		jobsClaimed:    jobsClaimed,
		jobOutcomes:    jobOutcomes,
		jobErrors:      jobErrors,
		stuckRecovered: stuckRecovered,
		runLoopLag:     runLoopLag,
		queueDepth:     queueDepth,
	}
}

// IncBatchRun increments the batch pass counter.
func (m *QueueMetrics) IncBatchRun() {
	if m == nil || m.batchRuns == nil {
		return
	}
	m.batchRuns.Inc()
}

// ObserveBatchDuration records batch latency in seconds.
func (m *QueueMetrics) ObserveBatchDuration(duration time.Duration) {
	if m == nil || m.batchDuration == nil {
		return
	}
	m.batchDuration.Observe(duration.Seconds())
}

// AddJobsClaimed increments the claimed counter by count.
func (m *QueueMetrics) AddJobsClaimed(count int) {
	if m == nil || m.jobsClaimed == nil || count <= 0 {
		return
	}
	m.jobsClaimed.Add(float64(count))
}

// IncJobOutcome increments the outcome counter.
func (m *QueueMetrics) IncJobOutcome(outcome string) {
	if m == nil || m.jobOutcomes == nil {
		return
	}
	m.jobOutcomes.WithLabelValues(outcome).Inc()
}

// IncJobError increments the job error counter with classification.
func (m *QueueMetrics) IncJobError(err error) {
	if m == nil || m.jobErrors == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(ClassifyQueueJobReason(err)).Inc()
}

// AddStuckRecovered increments the stuck sweep counter by count.
func (m *QueueMetrics) AddStuckRecovered(count int64) {
	if m == nil || m.stuckRecovered == nil || count <= 0 {
		return
	}
	m.stuckRecovered.Add(float64(count))
}

// ObserveRunLoopLag records lag between the scheduled tick and actual run start.
func (m *QueueMetrics) ObserveRunLoopLag(duration time.Duration) {
	if m == nil || m.runLoopLag == nil {
		return
	}
	lag := duration
	if lag < 0 {
		lag = 0
	}
	m.runLoopLag.Observe(lag.Seconds())
}

// SetQueueDepth records the per-status queue depth.
func (m *QueueMetrics) SetQueueDepth(status string, depth int64) {
	if m == nil || m.queueDepth == nil {
		return
	}
	m.queueDepth.WithLabelValues(status).Set(float64(depth))
}

// ClassifyQueueJobReason maps job errors to low-cardinality reasons.
// LMS errors are matched by sentinel message because the metrics package
// sits below the lms domain package.
func ClassifyQueueJobReason(err error) string {
	if err == nil {
		return QueueJobReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return QueueJobReasonDeadlineExceeded
	}
	message := err.Error()
	if strings.Contains(message, "lms_unavailable") {
		return QueueJobReasonLMSUnavailable
	}
	if strings.Contains(message, "lms_rejected") {
		return QueueJobReasonLMSRejected
	}
	if isDBError(err) {
		return QueueJobReasonDB
	}
	return QueueJobReasonUnknown
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	return errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrInvalidData)
}
