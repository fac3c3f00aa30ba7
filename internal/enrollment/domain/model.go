package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
)

const (
	TypePurchase          = "purchase"
	TypeGrantCoupon       = "grant_coupon"
	TypeAffiliateReferral = "affiliate_referral"
)

// Frappe sync lifecycle. "retrying" means a durable retry job owns the
// sync from here on.
const (
	SyncStatusPending   = "pending"
	SyncStatusSyncing   = "syncing"
	SyncStatusRetrying  = "retrying"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// Enrollment is the durable order record. It is created at checkout time
// with status "pending" and flipped to "paid" exactly once when payment
// is confirmed.
type Enrollment struct {
	ID              snowflake.ID `gorm:"column:id;primaryKey"`
	CourseID        string       `gorm:"column:course_id"`
	CourseTitle     string       `gorm:"column:course_title"`
	UserEmail       string       `gorm:"column:user_email"`
	UserName        string       `gorm:"column:user_name"`
	Status          string       `gorm:"column:status"`
	EnrollmentType  string       `gorm:"column:enrollment_type"`
	Amount          int64        `gorm:"column:amount"`
	Currency        string       `gorm:"column:currency"`
	SessionID       string       `gorm:"column:session_id"`
	PaymentIntentID string       `gorm:"column:payment_intent_id"`
	// PaymentVerified records that payment was confirmed against the
	// gateway (signed event or direct session lookup), set in the same
	// update that flips the status to paid.
	PaymentVerified bool `gorm:"column:payment_verified"`

	Affiliate AffiliateInfo `gorm:"embedded;embeddedPrefix:affiliate_"`
	Grant     GrantInfo     `gorm:"embedded;embeddedPrefix:grant_"`
	Frappe    FrappeSync    `gorm:"embedded;embeddedPrefix:frappe_"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Enrollment) TableName() string { return "enrollments" }

// AffiliateInfo is stamped at checkout when the buyer arrived through a
// referral link. Commission fields are filled by the commission pass
// after payment.
type AffiliateInfo struct {
	Email                 string     `gorm:"column:email"`
	ReferralCode          string     `gorm:"column:referral_code"`
	CommissionEligible    bool       `gorm:"column:commission_eligible"`
	CommissionRate        float64    `gorm:"column:commission_rate"`
	CommissionAmount      int64      `gorm:"column:commission_amount"`
	CommissionProcessed   bool       `gorm:"column:commission_processed"`
	CommissionProcessedAt *time.Time `gorm:"column:commission_processed_at"`
	// CommissionPaidOut is flipped by the payout run, not this
	// pipeline. It splits pending_payout from lifetime_paid when
	// affiliate aggregates are recomputed.
	CommissionPaidOut bool   `gorm:"column:commission_paid_out"`
	CommissionError   string `gorm:"column:commission_error"`
}

type GrantInfo struct {
	ID                 snowflake.ID `gorm:"column:id"`
	CouponCode         string       `gorm:"column:coupon_code"`
	DiscountPercentage float64      `gorm:"column:discount_percentage"`
	OriginalPrice      int64        `gorm:"column:original_price"`
	FinalPrice         int64        `gorm:"column:final_price"`
	Verified           bool         `gorm:"column:verified"`
}

type FrappeSync struct {
	Synced          bool          `gorm:"column:synced"`
	SyncStatus      string        `gorm:"column:sync_status"`
	EnrollmentID    string        `gorm:"column:enrollment_id"`
	ErrorMessage    string        `gorm:"column:error_message"`
	RetryCount      int           `gorm:"column:retry_count"`
	LastSyncAttempt *time.Time    `gorm:"column:last_sync_attempt"`
	SyncCompletedAt *time.Time    `gorm:"column:sync_completed_at"`
	RetryJobID      *snowflake.ID `gorm:"column:retry_job_id"`
}

// EventRecord is the webhook idempotency ledger. The unique event id
// constraint is what makes redeliveries no-ops.
type EventRecord struct {
	ID           snowflake.ID   `gorm:"column:id;primaryKey"`
	EventID      string         `gorm:"column:event_id"`
	EventType    string         `gorm:"column:event_type"`
	EnrollmentID snowflake.ID   `gorm:"column:enrollment_id"`
	Payload      datatypes.JSON `gorm:"column:payload"`
	ReceivedAt   time.Time      `gorm:"column:received_at"`
	ProcessedAt  *time.Time     `gorm:"column:processed_at"`
}

func (EventRecord) TableName() string { return "enrollment_events" }

// Ack is what webhook deliveries and fallback confirmations get back.
type Ack struct {
	Received bool   `json:"received"`
	Status   string `json:"status,omitempty"`
}

const AckAlreadyProcessed = "already_processed"
