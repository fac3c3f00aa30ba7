package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertEvent records a webhook delivery. It reports false when the
	// event id was already in the ledger.
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Enrollment, error)
	FindBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*Enrollment, error)

	// MarkPaid flips pending -> paid. It reports false when the row was
	// already paid, which is how concurrent confirmations lose cleanly.
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, sessionID, paymentIntentID string, amount int64, currency string, now time.Time) (bool, error)

	SetSyncSyncing(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	SetSyncCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, lmsEnrollmentID string, now time.Time) error
	SetSyncRetrying(ctx context.Context, db *gorm.DB, id snowflake.ID, jobID snowflake.ID, errMsg string, retryCount int, now time.Time) error
	SetSyncFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, errMsg string, now time.Time) error
}
