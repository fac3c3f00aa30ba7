package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/devhb1/FrappeLms-sub002/internal/clock"
	"github.com/devhb1/FrappeLms-sub002/internal/grant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
}

func NewService(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("grant.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

// Consume burns one use of the grant behind a coupon enrollment. The
// payment has already settled when this runs, so an exhausted or
// deactivated grant is logged and the enrollment proceeds anyway.
func (s *Service) Consume(ctx context.Context, grantID snowflake.ID, couponCode string) error {
	if grantID == 0 {
		return nil
	}
	log := s.log.With(
		zap.String("grant_id", grantID.String()),
		zap.String("coupon_code", couponCode),
	)

	consumed, err := s.repo.Consume(ctx, s.db, grantID, couponCode, s.clock.Now())
	if err != nil {
		return fmt.Errorf("consume grant: %w", err)
	}
	if !consumed {
		log.Warn("grant could not absorb another use")
		return nil
	}

	log.Info("grant use consumed")
	return nil
}
