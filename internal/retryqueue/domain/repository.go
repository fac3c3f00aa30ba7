package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, job *RetryJob) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*RetryJob, error)

	// FetchDue lists pending jobs whose next_retry_at has passed,
	// oldest first. Claiming is a separate conditional update so two
	// workers reading the same candidate cannot both win.
	FetchDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]RetryJob, error)
	Claim(ctx context.Context, db *gorm.DB, id snowflake.ID, workerID string, now, timeoutAt time.Time) (bool, error)

	// SweepStuck returns claimed-but-expired rows to pending.
	SweepStuck(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)

	MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, workerID string, now time.Time) (bool, error)
	Reschedule(ctx context.Context, db *gorm.DB, id snowflake.ID, workerID string, attempts int, nextRetryAt time.Time, lastError string, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, workerID string, attempts int, lastError string, now time.Time) (bool, error)

	CountByStatus(ctx context.Context, db *gorm.DB) (map[string]int64, error)
	OldestPending(ctx context.Context, db *gorm.DB) (*time.Time, error)
	RecentFailures(ctx context.Context, db *gorm.DB, limit int) ([]RetryJob, error)
}
