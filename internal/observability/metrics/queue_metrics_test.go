package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

func TestQueueMetricsRecordBatchSignals(t *testing.T) {
	reg := prometheus.NewRegistry()
	qm := newQueueMetrics(reg, Config{ServiceName: "fulfillment", Environment: "test"})

	qm.IncBatchRun()
	qm.IncBatchRun()
	qm.AddJobsClaimed(3)
	qm.AddJobsClaimed(0)
	qm.IncJobOutcome(QueueOutcomeCompleted)
	qm.IncJobOutcome(QueueOutcomeRescheduled)
	qm.AddStuckRecovered(2)
	qm.SetQueueDepth("pending", 7)
	qm.ObserveBatchDuration(120 * time.Millisecond)
	qm.ObserveRunLoopLag(-time.Second)

	runs := gatherFamily(t, reg, "fulfillment_retry_batch_runs_total")
	if runs == nil || len(runs.Metric) != 1 {
		t.Fatalf("batch runs family = %+v", runs)
	}
	assert.Equal(t, float64(2), runs.Metric[0].GetCounter().GetValue())

	claimed := gatherFamily(t, reg, "fulfillment_retry_jobs_claimed_total")
	assert.Equal(t, float64(3), claimed.Metric[0].GetCounter().GetValue())

	depth := gatherFamily(t, reg, "fulfillment_retry_queue_depth")
	assert.Equal(t, float64(7), depth.Metric[0].GetGauge().GetValue())

	outcomes := gatherFamily(t, reg, "fulfillment_retry_job_outcomes_total")
	assert.Len(t, outcomes.Metric, 2)

	for _, label := range runs.Metric[0].GetLabel() {
		switch label.GetName() {
		case "service":
			assert.Equal(t, "fulfillment", label.GetValue())
		case "env":
			assert.Equal(t, "test", label.GetValue())
		}
	}
}

func TestQueueMetricsAreNilSafe(t *testing.T) {
	var qm *QueueMetrics

	qm.IncBatchRun()
	qm.AddJobsClaimed(1)
	qm.IncJobOutcome(QueueOutcomeFailed)
	qm.IncJobError(errors.New("boom"))
	qm.AddStuckRecovered(1)
	qm.SetQueueDepth("pending", 1)
	qm.ObserveBatchDuration(time.Second)
	qm.ObserveRunLoopLag(time.Second)
}

func TestClassifyQueueJobReason(t *testing.T) {
	assert.Equal(t, QueueJobReasonDeadlineExceeded, ClassifyQueueJobReason(context.DeadlineExceeded))
	assert.Equal(t, QueueJobReasonLMSUnavailable, ClassifyQueueJobReason(errors.New("lms_unavailable: connection refused")))
	assert.Equal(t, QueueJobReasonLMSRejected, ClassifyQueueJobReason(errors.New("lms_rejected: course missing")))
	assert.Equal(t, QueueJobReasonUnknown, ClassifyQueueJobReason(errors.New("boom")))
	assert.Equal(t, QueueJobReasonUnknown, ClassifyQueueJobReason(nil))
}
