package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/devhb1/FrappeLms-sub002/internal/commission/domain"
	enrollmentdomain "github.com/devhb1/FrappeLms-sub002/internal/enrollment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Affiliate, error) {
	var item domain.Affiliate
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM affiliates WHERE email = ? LIMIT 1`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) StampCommission(ctx context.Context, db *gorm.DB, enrollmentID snowflake.ID, rate float64, amount int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE enrollments
		 SET affiliate_commission_rate = ?,
			 affiliate_commission_amount = ?,
			 affiliate_commission_processed = ?,
			 affiliate_commission_processed_at = ?,
			 affiliate_commission_error = '',
			 updated_at = ?
		 WHERE id = ? AND affiliate_commission_processed = ?`,
		rate,
		amount,
		true,
		now,
		now,
		enrollmentID,
		false,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) RecordError(ctx context.Context, db *gorm.DB, enrollmentID snowflake.ID, message string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE enrollments
		 SET affiliate_commission_error = ?, updated_at = ?
		 WHERE id = ?`,
		message,
		now,
		enrollmentID,
	).Error
}

func (r *repo) RecomputeAggregates(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID, email string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE affiliates
		 SET total_referrals = (
				SELECT COUNT(*) FROM enrollments
				WHERE affiliate_email = ? AND status = ? AND affiliate_commission_processed = ?
			 ),
			 pending_payout = (
				SELECT COALESCE(SUM(affiliate_commission_amount), 0) FROM enrollments
				WHERE affiliate_email = ? AND status = ? AND affiliate_commission_processed = ?
					AND affiliate_commission_paid_out = ?
			 ),
			 lifetime_paid = (
				SELECT COALESCE(SUM(affiliate_commission_amount), 0) FROM enrollments
				WHERE affiliate_email = ? AND status = ? AND affiliate_commission_processed = ?
					AND affiliate_commission_paid_out = ?
			 ),
			 updated_at = ?
		 WHERE id = ?`,
		email,
		enrollmentdomain.StatusPaid,
		true,
		email,
		enrollmentdomain.StatusPaid,
		true,
		false,
		email,
		enrollmentdomain.StatusPaid,
		true,
		true,
		now,
		affiliateID,
	).Error
}
