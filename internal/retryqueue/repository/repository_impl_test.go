package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/devhb1/FrappeLms-sub002/internal/retryqueue/domain"
	"github.com/devhb1/FrappeLms-sub002/internal/retryqueue/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	err = db.Exec(`CREATE TABLE retry_jobs (
		id BIGINT PRIMARY KEY,
		job_type TEXT NOT NULL,
		enrollment_id BIGINT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL,
		next_retry_at TIMESTAMP NOT NULL,
		last_error TEXT NOT NULL DEFAULT '',
		worker_node_id TEXT NOT NULL DEFAULT '',
		processing_started_at TIMESTAMP,
		processing_timeout TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`).Error
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func insertDueJob(t *testing.T, db *gorm.DB, id snowflake.ID, now time.Time) {
	t.Helper()
	err := repository.Provide().Insert(context.Background(), db, &domain.RetryJob{
		ID:           id,
		JobType:      domain.JobTypeLMSEnrollmentSync,
		EnrollmentID: id,
		Payload:      []byte(`{}`),
		Status:       domain.StatusPending,
		MaxAttempts:  5,
		NextRetryAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("insert job: %v", err)
	}
}

func TestClaimAdmitsExactlyOneWorker(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.Provide()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	timeoutAt := now.Add(5 * time.Minute)

	jobID := snowflake.ID(60001)
	insertDueJob(t, db, jobID, now)

	first, err := repo.Claim(ctx, db, jobID, "worker-a", now, timeoutAt)
	if err != nil {
		t.Fatalf("claim worker-a: %v", err)
	}
	second, err := repo.Claim(ctx, db, jobID, "worker-b", now, timeoutAt)
	if err != nil {
		t.Fatalf("claim worker-b: %v", err)
	}
	if !first || second {
		t.Fatalf("claims = %v %v, want exactly one winner", first, second)
	}

	job, err := repo.FindByID(ctx, db, jobID)
	if err != nil || job == nil {
		t.Fatalf("find job: %v %v", job, err)
	}
	if job.Status != domain.StatusProcessing || job.WorkerNodeID != "worker-a" {
		t.Fatalf("job = status %q worker %q", job.Status, job.WorkerNodeID)
	}
}

func TestStaleWorkerCannotFinishRecoveredJob(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.Provide()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	jobID := snowflake.ID(60002)
	insertDueJob(t, db, jobID, now.Add(-10*time.Minute))

	// worker-a claims the job, then hangs past its timeout.
	claimed, err := repo.Claim(ctx, db, jobID, "worker-a", now.Add(-10*time.Minute), now.Add(-5*time.Minute))
	if err != nil || !claimed {
		t.Fatalf("claim worker-a: %v %v", claimed, err)
	}

	swept, err := repo.SweepStuck(ctx, db, now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d", swept)
	}

	claimed, err = repo.Claim(ctx, db, jobID, "worker-b", now, now.Add(5*time.Minute))
	if err != nil || !claimed {
		t.Fatalf("claim worker-b: %v %v", claimed, err)
	}

	// worker-a wakes up and tries to finish work it no longer owns.
	done, err := repo.MarkCompleted(ctx, db, jobID, "worker-a", now)
	if err != nil {
		t.Fatalf("stale complete: %v", err)
	}
	if done {
		t.Fatalf("stale worker completed a job it no longer owns")
	}
	done, err = repo.Reschedule(ctx, db, jobID, "worker-a", 1, now.Add(2*time.Minute), "boom", now)
	if err != nil {
		t.Fatalf("stale reschedule: %v", err)
	}
	if done {
		t.Fatalf("stale worker rescheduled a job it no longer owns")
	}

	job, err := repo.FindByID(ctx, db, jobID)
	if err != nil || job == nil {
		t.Fatalf("find job: %v %v", job, err)
	}
	if job.Status != domain.StatusProcessing || job.WorkerNodeID != "worker-b" {
		t.Fatalf("job = status %q worker %q", job.Status, job.WorkerNodeID)
	}

	done, err = repo.MarkCompleted(ctx, db, jobID, "worker-b", now)
	if err != nil || !done {
		t.Fatalf("owner complete: %v %v", done, err)
	}
}
