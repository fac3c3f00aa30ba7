package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const JobTypeLMSEnrollmentSync = "lms_enrollment_sync"

// RetryJob is one durable unit of retryable work. The payload carries a
// full sync request so the job can run without touching the enrollment
// row first.
type RetryJob struct {
	ID           snowflake.ID   `gorm:"column:id;primaryKey"`
	JobType      string         `gorm:"column:job_type"`
	EnrollmentID snowflake.ID   `gorm:"column:enrollment_id"`
	Payload      datatypes.JSON `gorm:"column:payload"`
	Status       string         `gorm:"column:status"`
	Attempts     int            `gorm:"column:attempts"`
	MaxAttempts  int            `gorm:"column:max_attempts"`
	NextRetryAt  time.Time      `gorm:"column:next_retry_at"`
	LastError    string         `gorm:"column:last_error"`

	// Claim bookkeeping. A row with processing_timeout in the past is
	// fair game for the stuck sweep.
	WorkerNodeID        string     `gorm:"column:worker_node_id"`
	ProcessingStartedAt *time.Time `gorm:"column:processing_started_at"`
	ProcessingTimeout   *time.Time `gorm:"column:processing_timeout"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (RetryJob) TableName() string { return "retry_jobs" }

// BatchStats summarizes one worker pass.
type BatchStats struct {
	Swept       int `json:"swept"`
	Claimed     int `json:"claimed"`
	Completed   int `json:"completed"`
	Rescheduled int `json:"rescheduled"`
	Failed      int `json:"failed"`
}

// Health is the queue snapshot served by the worker status endpoint.
type Health struct {
	Counts          map[string]int64 `json:"counts"`
	OldestPendingAt *time.Time       `json:"oldest_pending_at,omitempty"`
	RecentFailures  []JobSummary     `json:"recent_failures"`
}

type JobSummary struct {
	ID           snowflake.ID `json:"id"`
	EnrollmentID snowflake.ID `json:"enrollment_id"`
	Attempts     int          `json:"attempts"`
	LastError    string       `json:"last_error"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
