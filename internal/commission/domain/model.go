package domain

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	enrollmentdomain "github.com/devhb1/FrappeLms-sub002/internal/enrollment/domain"
	"gorm.io/gorm"
)

var ErrAffiliateNotFound = errors.New("affiliate_not_found")

// Affiliate aggregates are never incremented in place. They are
// recomputed from paid enrollments so webhook replays cannot drift them.
type Affiliate struct {
	ID             snowflake.ID `gorm:"column:id;primaryKey"`
	Email          string       `gorm:"column:email"`
	Name           string       `gorm:"column:name"`
	CommissionRate float64      `gorm:"column:commission_rate"`
	TotalReferrals int64        `gorm:"column:total_referrals"`
	PendingPayout  int64        `gorm:"column:pending_payout"`
	LifetimePaid   int64        `gorm:"column:lifetime_paid"`
	CreatedAt      time.Time    `gorm:"column:created_at"`
	UpdatedAt      time.Time    `gorm:"column:updated_at"`
}

func (Affiliate) TableName() string { return "affiliates" }

// CommissionFor computes the commission in cents from the amount the
// buyer actually paid, not the course list price.
func CommissionFor(amountPaid int64, rate float64) int64 {
	return int64(math.Round(float64(amountPaid) * rate / 100))
}

type Repository interface {
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Affiliate, error)
	// StampCommission writes commission fields on the enrollment. The
	// commission_processed gate makes replays no-ops.
	StampCommission(ctx context.Context, db *gorm.DB, enrollmentID snowflake.ID, rate float64, amount int64, now time.Time) (bool, error)
	RecordError(ctx context.Context, db *gorm.DB, enrollmentID snowflake.ID, message string, now time.Time) error
	RecomputeAggregates(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID, email string, now time.Time) error
}

type Service interface {
	Apply(ctx context.Context, enrollment *enrollmentdomain.Enrollment) error
}
