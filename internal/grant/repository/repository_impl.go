package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/devhb1/FrappeLms-sub002/internal/grant/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Grant, error) {
	var item domain.Grant
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM grants WHERE id = ? LIMIT 1`,
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

func (r *repo) Consume(ctx context.Context, db *gorm.DB, id snowflake.ID, couponCode string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE grants
		 SET used_count = used_count + 1, updated_at = ?
		 WHERE id = ? AND coupon_code = ? AND active = ? AND used_count < max_uses`,
		now,
		id,
		couponCode,
		true,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
