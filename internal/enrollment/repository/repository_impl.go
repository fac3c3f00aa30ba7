package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/devhb1/FrappeLms-sub002/internal/enrollment/domain"
	pkgdb "github.com/devhb1/FrappeLms-sub002/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.EventRecord) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO enrollment_events (
			id, event_id, event_type, enrollment_id, payload, received_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING`,
		event.ID,
		event.EventID,
		event.EventType,
		event.EnrollmentID,
		event.Payload,
		event.ReceivedAt,
		event.ProcessedAt,
	)
	if res.Error != nil {
		// Backends that raise instead of honoring the conflict clause
		// still mean "someone else claimed this event".
		if pkgdb.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE enrollment_events SET processed_at = ? WHERE id = ?`,
		at,
		id,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Enrollment, error) {
	var item domain.Enrollment
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM enrollments WHERE id = ? LIMIT 1`,
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

func (r *repo) FindBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*domain.Enrollment, error) {
	var item domain.Enrollment
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM enrollments WHERE session_id = ? LIMIT 1`,
		sessionID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, sessionID, paymentIntentID string, amount int64, currency string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE enrollments
		 SET status = ?,
			 payment_verified = ?,
			 session_id = CASE WHEN ? <> '' THEN ? ELSE session_id END,
			 payment_intent_id = CASE WHEN ? <> '' THEN ? ELSE payment_intent_id END,
			 amount = CASE WHEN ? > 0 THEN ? ELSE amount END,
			 currency = CASE WHEN ? <> '' THEN ? ELSE currency END,
			 updated_at = ?
		 WHERE id = ? AND status <> ?`,
		domain.StatusPaid,
		true,
		sessionID, sessionID,
		paymentIntentID, paymentIntentID,
		amount, amount,
		currency, currency,
		now,
		id,
		domain.StatusPaid,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SetSyncSyncing(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE enrollments
		 SET frappe_sync_status = ?, frappe_last_sync_attempt = ?, updated_at = ?
		 WHERE id = ?`,
		domain.SyncStatusSyncing,
		now,
		now,
		id,
	).Error
}

func (r *repo) SetSyncCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, lmsEnrollmentID string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE enrollments
		 SET frappe_synced = ?,
			 frappe_sync_status = ?,
			 frappe_enrollment_id = ?,
			 frappe_error_message = '',
			 frappe_retry_job_id = NULL,
			 frappe_last_sync_attempt = ?,
			 frappe_sync_completed_at = ?,
			 updated_at = ?
		 WHERE id = ?`,
		true,
		domain.SyncStatusCompleted,
		lmsEnrollmentID,
		now,
		now,
		now,
		id,
	).Error
}

func (r *repo) SetSyncRetrying(ctx context.Context, db *gorm.DB, id snowflake.ID, jobID snowflake.ID, errMsg string, retryCount int, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE enrollments
		 SET frappe_sync_status = ?,
			 frappe_error_message = ?,
			 frappe_retry_count = ?,
			 frappe_retry_job_id = ?,
			 frappe_last_sync_attempt = ?,
			 updated_at = ?
		 WHERE id = ?`,
		domain.SyncStatusRetrying,
		errMsg,
		retryCount,
		jobID,
		now,
		now,
		id,
	).Error
}

func (r *repo) SetSyncFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, errMsg string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE enrollments
		 SET frappe_sync_status = ?, frappe_error_message = ?, frappe_last_sync_attempt = ?, updated_at = ?
		 WHERE id = ?`,
		domain.SyncStatusFailed,
		errMsg,
		now,
		now,
		id,
	).Error
}
