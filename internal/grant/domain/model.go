package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Grant is a sponsored-access coupon with a bounded number of uses.
type Grant struct {
	ID                 snowflake.ID `gorm:"column:id;primaryKey"`
	CouponCode         string       `gorm:"column:coupon_code"`
	DiscountPercentage float64      `gorm:"column:discount_percentage"`
	MaxUses            int          `gorm:"column:max_uses"`
	UsedCount          int          `gorm:"column:used_count"`
	Active             bool         `gorm:"column:active"`
	CreatedAt          time.Time    `gorm:"column:created_at"`
	UpdatedAt          time.Time    `gorm:"column:updated_at"`
}

func (Grant) TableName() string { return "grants" }

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Grant, error)
	// Consume increments used_count while the grant is active and
	// under its cap. It reports false when the grant could not absorb
	// another use.
	Consume(ctx context.Context, db *gorm.DB, id snowflake.ID, couponCode string, now time.Time) (bool, error)
}

type Service interface {
	Consume(ctx context.Context, grantID snowflake.ID, couponCode string) error
}
