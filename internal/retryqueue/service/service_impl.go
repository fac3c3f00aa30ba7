package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/devhb1/FrappeLms-sub002/internal/clock"
	"github.com/devhb1/FrappeLms-sub002/internal/config"
	enrollmentdomain "github.com/devhb1/FrappeLms-sub002/internal/enrollment/domain"
	lmsdomain "github.com/devhb1/FrappeLms-sub002/internal/lms/domain"
	obscontext "github.com/devhb1/FrappeLms-sub002/internal/observability/context"
	"github.com/devhb1/FrappeLms-sub002/internal/observability/metrics"
	"github.com/devhb1/FrappeLms-sub002/internal/retryqueue/domain"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recentFailureLimit = 5

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Config     config.Config
	Policy     *config.RetryPolicyHolder
	Node       *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	EnrollRepo enrollmentdomain.Repository
	LMS        lmsdomain.Client
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        config.Config
	policy     *config.RetryPolicyHolder
	node       *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	enrollRepo enrollmentdomain.Repository
	lms        lmsdomain.Client

	workerNodeID string
}

func NewService(p Params) *Service {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "worker"
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("retryqueue.service"),
		cfg:          p.Config,
		policy:       p.Policy,
		node:         p.Node,
		clock:        p.Clock,
		repo:         p.Repo,
		enrollRepo:   p.EnrollRepo,
		lms:          p.LMS,
		workerNodeID: hostname + "-" + uuid.NewString()[:8],
	}
}

// Enqueue stores a sync request for durable retry. The job is due
// immediately; the backoff ladder only starts once a worker attempt
// fails.
func (s *Service) Enqueue(ctx context.Context, enrollmentID snowflake.ID, req lmsdomain.SyncRequest, lastError string) (snowflake.ID, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("encode sync request: %w", err)
	}

	policy := s.policy.Get()
	now := s.clock.Now()
	job := &domain.RetryJob{
		ID:           s.node.Generate(),
		JobType:      domain.JobTypeLMSEnrollmentSync,
		EnrollmentID: enrollmentID,
		Payload:      payload,
		Status:       domain.StatusPending,
		Attempts:     0,
		MaxAttempts:  policy.MaxAttempts,
		NextRetryAt:  now,
		LastError:    lastError,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, s.db, job); err != nil {
		return 0, fmt.Errorf("insert retry job: %w", err)
	}

	s.log.Info("retry job enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("enrollment_id", enrollmentID.String()),
		zap.Time("next_retry_at", job.NextRetryAt),
	)
	return job.ID, nil
}

// RunBatch performs one worker pass: recover stuck claims, claim due
// jobs up to the batch size, and run each claimed job to completion,
// reschedule, or terminal failure.
func (s *Service) RunBatch(ctx context.Context) (*domain.BatchStats, error) {
	runID := ulid.Make().String()
	ctx = obscontext.WithWorkerRun(ctx, s.workerNodeID, runID)

	policy := s.policy.Get()
	qm := metrics.Queue()
	start := s.clock.Now()
	qm.IncBatchRun()
	defer func() {
		qm.ObserveBatchDuration(time.Since(start))
	}()

	log := s.log.With(zap.String("run_id", runID))
	stats := &domain.BatchStats{}
	var errs []error

	swept, err := s.repo.SweepStuck(ctx, s.db, start)
	if err != nil {
		errs = append(errs, fmt.Errorf("sweep stuck jobs: %w", err))
	} else if swept > 0 {
		stats.Swept = int(swept)
		qm.AddStuckRecovered(swept)
		log.Warn("recovered stuck jobs", zap.Int64("count", swept))
	}

	batchSize := policy.BatchSize
	if batchSize > 50 {
		batchSize = 50
	}
	due, err := s.repo.FetchDue(ctx, s.db, start, batchSize)
	if err != nil {
		errs = append(errs, fmt.Errorf("fetch due jobs: %w", err))
		return stats, errors.Join(errs...)
	}

	timeoutAt := start.Add(time.Duration(policy.ProcessingTimeoutMinutes) * time.Minute)
	for i := range due {
		job := due[i]
		claimed, err := s.repo.Claim(ctx, s.db, job.ID, s.workerNodeID, s.clock.Now(), timeoutAt)
		if err != nil {
			errs = append(errs, fmt.Errorf("claim job %s: %w", job.ID, err))
			continue
		}
		if !claimed {
			continue
		}
		stats.Claimed++

		if err := s.processJob(ctx, log, &job, policy, stats); err != nil {
			errs = append(errs, err)
		}
	}
	qm.AddJobsClaimed(stats.Claimed)

	if counts, err := s.repo.CountByStatus(ctx, s.db); err == nil {
		for _, status := range []string{domain.StatusPending, domain.StatusProcessing, domain.StatusCompleted, domain.StatusFailed} {
			qm.SetQueueDepth(status, counts[status])
		}
	}

	log.Info("retry batch finished",
		zap.Int("swept", stats.Swept),
		zap.Int("claimed", stats.Claimed),
		zap.Int("completed", stats.Completed),
		zap.Int("rescheduled", stats.Rescheduled),
		zap.Int("failed", stats.Failed),
	)
	return stats, errors.Join(errs...)
}

func (s *Service) processJob(ctx context.Context, log *zap.Logger, job *domain.RetryJob, policy config.RetryPolicy, stats *domain.BatchStats) error {
	qm := metrics.Queue()
	log = log.With(
		zap.String("job_id", job.ID.String()),
		zap.String("enrollment_id", job.EnrollmentID.String()),
		zap.Int("attempt", job.Attempts+1),
	)

	var req lmsdomain.SyncRequest
	if err := json.Unmarshal(job.Payload, &req); err != nil {
		// A payload that cannot be decoded will never succeed.
		return s.failJob(ctx, log, qm, job, stats, job.Attempts+1, fmt.Sprintf("decode payload: %v", err))
	}

	syncCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Frappe.TimeoutSeconds+5)*time.Second)
	result, err := s.lms.Sync(syncCtx, req)
	cancel()

	attempts := job.Attempts + 1
	if err == nil {
		done, markErr := s.repo.MarkCompleted(ctx, s.db, job.ID, s.workerNodeID, s.clock.Now())
		if markErr != nil {
			return fmt.Errorf("mark job %s completed: %w", job.ID, markErr)
		}
		if !done {
			log.Warn("completion lost to another worker")
			return nil
		}
		stats.Completed++
		qm.IncJobOutcome("completed")
		if setErr := s.enrollRepo.SetSyncCompleted(ctx, s.db, job.EnrollmentID, result.EnrollmentID, s.clock.Now()); setErr != nil {
			log.Warn("record enrollment sync completion failed", zap.Error(setErr))
		}
		log.Info("lms sync completed", zap.String("lms_enrollment_id", result.EnrollmentID))
		return nil
	}

	qm.IncJobError(err)
	if attempts >= job.MaxAttempts {
		return s.failJob(ctx, log, qm, job, stats, attempts, err.Error())
	}

	next := s.clock.Now().Add(domain.Backoff(time.Duration(policy.BackoffBaseMinutes)*time.Minute, attempts))
	done, resErr := s.repo.Reschedule(ctx, s.db, job.ID, s.workerNodeID, attempts, next, err.Error(), s.clock.Now())
	if resErr != nil {
		return fmt.Errorf("reschedule job %s: %w", job.ID, resErr)
	}
	if !done {
		log.Warn("reschedule lost to another worker")
		return nil
	}
	stats.Rescheduled++
	qm.IncJobOutcome("rescheduled")
	if setErr := s.enrollRepo.SetSyncRetrying(ctx, s.db, job.EnrollmentID, job.ID, err.Error(), attempts, s.clock.Now()); setErr != nil {
		log.Warn("record enrollment retry status failed", zap.Error(setErr))
	}
	log.Warn("lms sync failed, rescheduled",
		zap.Error(err),
		zap.Time("next_retry_at", next),
	)
	return nil
}

func (s *Service) failJob(ctx context.Context, log *zap.Logger, qm *metrics.QueueMetrics, job *domain.RetryJob, stats *domain.BatchStats, attempts int, lastError string) error {
	done, err := s.repo.MarkFailed(ctx, s.db, job.ID, s.workerNodeID, attempts, lastError, s.clock.Now())
	if err != nil {
		return fmt.Errorf("mark job %s failed: %w", job.ID, err)
	}
	if !done {
		log.Warn("failure mark lost to another worker")
		return nil
	}
	stats.Failed++
	qm.IncJobOutcome("failed")
	if setErr := s.enrollRepo.SetSyncFailed(ctx, s.db, job.EnrollmentID, lastError, s.clock.Now()); setErr != nil {
		log.Warn("record enrollment sync failure failed", zap.Error(setErr))
	}
	log.Error("lms sync permanently failed",
		zap.Int("attempts", attempts),
		zap.String("last_error", lastError),
	)
	return nil
}

// Health reports queue depths and the most recent terminal failures.
func (s *Service) Health(ctx context.Context) (*domain.Health, error) {
	counts, err := s.repo.CountByStatus(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	oldest, err := s.repo.OldestPending(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("oldest pending: %w", err)
	}
	failures, err := s.repo.RecentFailures(ctx, s.db, recentFailureLimit)
	if err != nil {
		return nil, fmt.Errorf("recent failures: %w", err)
	}

	health := &domain.Health{
		Counts:          counts,
		OldestPendingAt: oldest,
		RecentFailures:  make([]domain.JobSummary, 0, len(failures)),
	}
	for _, job := range failures {
		health.RecentFailures = append(health.RecentFailures, domain.JobSummary{
			ID:           job.ID,
			EnrollmentID: job.EnrollmentID,
			Attempts:     job.Attempts,
			LastError:    job.LastError,
			UpdatedAt:    job.UpdatedAt,
		})
	}
	return health, nil
}
