package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/devhb1/FrappeLms-sub002/internal/retryqueue/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, job *domain.RetryJob) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO retry_jobs (
			id, job_type, enrollment_id, payload, status, attempts, max_attempts,
			next_retry_at, last_error, worker_node_id, processing_started_at,
			processing_timeout, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.JobType,
		job.EnrollmentID,
		job.Payload,
		job.Status,
		job.Attempts,
		job.MaxAttempts,
		job.NextRetryAt,
		job.LastError,
		job.WorkerNodeID,
		job.ProcessingStartedAt,
		job.ProcessingTimeout,
		job.CreatedAt,
		job.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.RetryJob, error) {
	var item domain.RetryJob
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM retry_jobs WHERE id = ? LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FetchDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.RetryJob, error) {
	var items []domain.RetryJob
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM retry_jobs
		 WHERE status = ? AND next_retry_at <= ?
		 ORDER BY next_retry_at ASC
		 LIMIT ?`,
		domain.StatusPending,
		now,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Claim(ctx context.Context, db *gorm.DB, id snowflake.ID, workerID string, now, timeoutAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE retry_jobs
		 SET status = ?,
			 worker_node_id = ?,
			 processing_started_at = ?,
			 processing_timeout = ?,
			 updated_at = ?
		 WHERE id = ? AND status = ? AND next_retry_at <= ?`,
		domain.StatusProcessing,
		workerID,
		now,
		timeoutAt,
		now,
		id,
		domain.StatusPending,
		now,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SweepStuck(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE retry_jobs
		 SET status = ?,
			 worker_node_id = '',
			 processing_started_at = NULL,
			 processing_timeout = NULL,
			 updated_at = ?
		 WHERE status = ? AND processing_timeout <= ?`,
		domain.StatusPending,
		now,
		domain.StatusProcessing,
		now,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, workerID string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE retry_jobs
		 SET status = ?, last_error = '', updated_at = ?
		 WHERE id = ? AND status = ? AND worker_node_id = ?`,
		domain.StatusCompleted,
		now,
		id,
		domain.StatusProcessing,
		workerID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Reschedule(ctx context.Context, db *gorm.DB, id snowflake.ID, workerID string, attempts int, nextRetryAt time.Time, lastError string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE retry_jobs
		 SET status = ?,
			 attempts = ?,
			 next_retry_at = ?,
			 last_error = ?,
			 worker_node_id = '',
			 processing_started_at = NULL,
			 processing_timeout = NULL,
			 updated_at = ?
		 WHERE id = ? AND status = ? AND worker_node_id = ?`,
		domain.StatusPending,
		attempts,
		nextRetryAt,
		lastError,
		now,
		id,
		domain.StatusProcessing,
		workerID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, workerID string, attempts int, lastError string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE retry_jobs
		 SET status = ?, attempts = ?, last_error = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND worker_node_id = ?`,
		domain.StatusFailed,
		attempts,
		lastError,
		now,
		id,
		domain.StatusProcessing,
		workerID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB) (map[string]int64, error) {
	var rows []struct {
		Status string `gorm:"column:status"`
		Total  int64  `gorm:"column:total"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS total FROM retry_jobs GROUP BY status`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *repo) OldestPending(ctx context.Context, db *gorm.DB) (*time.Time, error) {
	var row struct {
		Oldest *time.Time `gorm:"column:oldest"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT MIN(next_retry_at) AS oldest FROM retry_jobs WHERE status = ?`,
		domain.StatusPending,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.Oldest, nil
}

func (r *repo) RecentFailures(ctx context.Context, db *gorm.DB, limit int) ([]domain.RetryJob, error) {
	var items []domain.RetryJob
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM retry_jobs
		 WHERE status = ?
		 ORDER BY updated_at DESC
		 LIMIT ?`,
		domain.StatusFailed,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
