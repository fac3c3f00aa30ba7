package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/devhb1/FrappeLms-sub002/internal/clock"
	"github.com/devhb1/FrappeLms-sub002/internal/commission/domain"
	enrollmentdomain "github.com/devhb1/FrappeLms-sub002/internal/enrollment/domain"
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
		log:   p.Log.Named("commission.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

// Apply stamps commission on a paid referral enrollment and refreshes
// the affiliate's aggregates. Failures are recorded on the enrollment
// and swallowed so they never unwind the paid status.
func (s *Service) Apply(ctx context.Context, enrollment *enrollmentdomain.Enrollment) error {
	if enrollment == nil || !enrollment.Affiliate.CommissionEligible {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(enrollment.Affiliate.Email))
	if email == "" {
		return nil
	}
	now := s.clock.Now()
	log := s.log.With(
		zap.String("enrollment_id", enrollment.ID.String()),
		zap.String("affiliate_email", email),
	)

	affiliate, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return s.recordFailure(ctx, enrollment, log, fmt.Errorf("lookup affiliate: %w", err))
	}
	if affiliate == nil {
		return s.recordFailure(ctx, enrollment, log, domain.ErrAffiliateNotFound)
	}

	amount := domain.CommissionFor(enrollment.Amount, affiliate.CommissionRate)
	stamped, err := s.repo.StampCommission(ctx, s.db, enrollment.ID, affiliate.CommissionRate, amount, now)
	if err != nil {
		return s.recordFailure(ctx, enrollment, log, fmt.Errorf("stamp commission: %w", err))
	}
	if !stamped {
		log.Info("commission already processed")
		return nil
	}

	if err := s.repo.RecomputeAggregates(ctx, s.db, affiliate.ID, email, now); err != nil {
		log.Warn("recompute affiliate aggregates failed", zap.Error(err))
	}

	log.Info("commission applied",
		zap.Float64("rate", affiliate.CommissionRate),
		zap.Int64("commission_cents", amount),
	)
	return nil
}

func (s *Service) recordFailure(ctx context.Context, enrollment *enrollmentdomain.Enrollment, log *zap.Logger, cause error) error {
	log.Warn("commission not applied", zap.Error(cause))
	if err := s.repo.RecordError(ctx, s.db, enrollment.ID, cause.Error(), s.clock.Now()); err != nil {
		log.Warn("record commission error failed", zap.Error(err))
	}
	return nil
}
