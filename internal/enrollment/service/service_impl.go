package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/devhb1/FrappeLms-sub002/internal/clock"
	commissiondomain "github.com/devhb1/FrappeLms-sub002/internal/commission/domain"
	"github.com/devhb1/FrappeLms-sub002/internal/config"
	"github.com/devhb1/FrappeLms-sub002/internal/enrollment/domain"
	gatewaydomain "github.com/devhb1/FrappeLms-sub002/internal/gateway/domain"
	grantdomain "github.com/devhb1/FrappeLms-sub002/internal/grant/domain"
	lmsdomain "github.com/devhb1/FrappeLms-sub002/internal/lms/domain"
	"github.com/devhb1/FrappeLms-sub002/internal/observability/metrics"
	email "github.com/devhb1/FrappeLms-sub002/internal/providers/email"
	retrydomain "github.com/devhb1/FrappeLms-sub002/internal/retryqueue/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Config      config.Config
	Node        *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Gateway     gatewaydomain.Gateway
	LMS         lmsdomain.Client
	Queue       retrydomain.Service
	Grants      grantdomain.Service
	Commissions commissiondomain.Service
	Email       email.Provider
	Metrics     *metrics.Metrics
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         config.Config
	node        *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	gateway     gatewaydomain.Gateway
	lms         lmsdomain.Client
	queue       retrydomain.Service
	grants      grantdomain.Service
	commissions commissiondomain.Service
	email       email.Provider
	metrics     *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("enrollment.service"),
		cfg:         p.Config,
		node:        p.Node,
		clock:       p.Clock,
		repo:        p.Repo,
		gateway:     p.Gateway,
		lms:         p.LMS,
		queue:       p.Queue,
		grants:      p.Grants,
		commissions: p.Commissions,
		email:       p.Email,
		metrics:     p.Metrics,
	}
}

// HandleWebhook verifies and processes one payment-provider delivery.
// Redeliveries of an event id already in the ledger are acknowledged
// without reprocessing.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) (*domain.Ack, error) {
	if err := s.gateway.Verify(ctx, payload, headers); err != nil {
		s.metrics.RecordWebhookEvent(ctx, "unknown", "invalid_signature")
		return nil, err
	}

	event, err := s.gateway.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, gatewaydomain.ErrEventIgnored) {
			s.metrics.RecordWebhookEvent(ctx, "unknown", "ignored")
			return &domain.Ack{Received: true}, nil
		}
		s.metrics.RecordWebhookEvent(ctx, "unknown", "invalid_payload")
		return nil, err
	}

	ack, err := s.confirm(ctx, event.ID, event.Type, event.Session, event.RawPayload)
	if err != nil {
		s.metrics.RecordWebhookEvent(ctx, event.Type, "error")
		return nil, err
	}
	outcome := "processed"
	if ack.Status == domain.AckAlreadyProcessed {
		outcome = "duplicate"
	}
	s.metrics.RecordWebhookEvent(ctx, event.Type, outcome)
	return ack, nil
}

// CompleteEnrollment is the fallback for webhooks that never arrived.
// It reads the checkout session from the provider, requires paid
// status, and then runs the same confirmation pipeline under a
// synthetic ledger key so the two paths stay mutually idempotent.
func (s *Service) CompleteEnrollment(ctx context.Context, sessionID string) (*domain.Ack, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", domain.ErrInvalidRequest)
	}

	session, err := s.gateway.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Paid() {
		return nil, domain.ErrSessionNotPaid
	}

	payload, err := json.Marshal(map[string]any{
		"session_id":     session.ID,
		"payment_intent": session.PaymentIntentID,
		"payment_status": session.PaymentStatus,
		"amount_total":   session.AmountTotal,
		"currency":       session.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("encode session snapshot: %w", err)
	}

	ack, err := s.confirm(ctx, "session:"+session.ID, gatewaydomain.EventTypeCheckoutCompleted, *session, payload)
	if err != nil {
		s.metrics.RecordWebhookEvent(ctx, "manual.completion", "error")
		return nil, err
	}
	outcome := "processed"
	if ack.Status == domain.AckAlreadyProcessed {
		outcome = "duplicate"
	}
	s.metrics.RecordWebhookEvent(ctx, "manual.completion", outcome)
	return ack, nil
}

func (s *Service) confirm(ctx context.Context, eventID, eventType string, session gatewaydomain.CheckoutSession, payload []byte) (*domain.Ack, error) {
	enrollment, err := s.lookupEnrollment(ctx, session)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	record := &domain.EventRecord{
		ID:           s.node.Generate(),
		EventID:      eventID,
		EventType:    eventType,
		EnrollmentID: enrollment.ID,
		Payload:      datatypes.JSON(payload),
		ReceivedAt:   now,
	}
	inserted, err := s.repo.InsertEvent(ctx, s.db, record)
	if err != nil {
		return nil, fmt.Errorf("record event: %w", err)
	}
	if !inserted {
		s.log.Info("duplicate event delivery",
			zap.String("event_id", eventID),
			zap.String("enrollment_id", enrollment.ID.String()),
		)
		return &domain.Ack{Received: true, Status: domain.AckAlreadyProcessed}, nil
	}

	log := s.log.With(
		zap.String("event_id", eventID),
		zap.String("enrollment_id", enrollment.ID.String()),
		zap.String("session_id", session.ID),
	)

	flipped, err := s.repo.MarkPaid(ctx, s.db, enrollment.ID, session.ID, session.PaymentIntentID, session.AmountTotal, session.Currency, now)
	if err != nil {
		return nil, fmt.Errorf("mark paid: %w", err)
	}
	if !flipped {
		// The webhook and the manual fallback record distinct ledger
		// keys, so one of them can reach this point after the other
		// already confirmed payment.
		log.Info("enrollment already paid")
		if err := s.repo.MarkEventProcessed(ctx, s.db, record.ID, s.clock.Now()); err != nil {
			log.Warn("mark event processed failed", zap.Error(err))
		}
		return &domain.Ack{Received: true, Status: domain.AckAlreadyProcessed}, nil
	}

	enrollment, err = s.repo.FindByID(ctx, s.db, enrollment.ID)
	if err != nil || enrollment == nil {
		return nil, fmt.Errorf("reload enrollment: %w", err)
	}
	log.Info("enrollment confirmed",
		zap.String("enrollment_type", enrollment.EnrollmentType),
		zap.Int64("amount_cents", enrollment.Amount),
		zap.String("currency", enrollment.Currency),
	)

	// Side effects are independent of each other and of the paid flip.
	// Each one logs and records its own failure without unwinding the
	// confirmed payment.
	s.consumeGrant(ctx, log, enrollment)
	s.sendConfirmationEmail(ctx, log, enrollment)
	if err := s.commissions.Apply(ctx, enrollment); err != nil {
		log.Warn("commission pass failed", zap.Error(err))
	}
	s.syncToLMS(ctx, log, enrollment)

	if err := s.repo.MarkEventProcessed(ctx, s.db, record.ID, s.clock.Now()); err != nil {
		log.Warn("mark event processed failed", zap.Error(err))
	}
	return &domain.Ack{Received: true}, nil
}

// lookupEnrollment resolves the enrollment from session metadata, or by
// the stamped session ID when checkout creation wrote it before the
// metadata round-trip.
func (s *Service) lookupEnrollment(ctx context.Context, session gatewaydomain.CheckoutSession) (*domain.Enrollment, error) {
	raw := session.Metadata["enrollment_id"]
	if raw == "" {
		enrollment, err := s.repo.FindBySessionID(ctx, s.db, session.ID)
		if err != nil {
			return nil, fmt.Errorf("load enrollment by session: %w", err)
		}
		if enrollment == nil {
			return nil, domain.ErrMissingEnrollmentID
		}
		return enrollment, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: bad enrollment_id %q", domain.ErrInvalidRequest, raw)
	}
	enrollment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil {
		return nil, domain.ErrEnrollmentNotFound
	}
	return enrollment, nil
}

func (s *Service) consumeGrant(ctx context.Context, log *zap.Logger, enrollment *domain.Enrollment) {
	if enrollment.EnrollmentType != domain.TypeGrantCoupon || enrollment.Grant.ID == 0 {
		return
	}
	if err := s.grants.Consume(ctx, enrollment.Grant.ID, enrollment.Grant.CouponCode); err != nil {
		log.Warn("grant consumption failed", zap.Error(err))
	}
}

func (s *Service) sendConfirmationEmail(ctx context.Context, log *zap.Logger, enrollment *domain.Enrollment) {
	template := confirmationTemplate(enrollment.EnrollmentType)
	data := map[string]interface{}{
		"user_name":           enrollment.UserName,
		"course_title":        enrollment.CourseTitle,
		"amount":              fmt.Sprintf("%.2f", float64(enrollment.Amount)/100),
		"currency":            enrollment.Currency,
		"payment_id":          enrollment.PaymentIntentID,
		"coupon_code":         enrollment.Grant.CouponCode,
		"discount_percentage": enrollment.Grant.DiscountPercentage,
		"referral_code":       enrollment.Affiliate.ReferralCode,
	}
	if err := s.email.SendTemplate(ctx, []string{enrollment.UserEmail}, template, data); err != nil {
		log.Warn("confirmation email failed", zap.Error(err), zap.String("template", template))
		s.metrics.RecordEmailSent(ctx, template, "error")
		return
	}
	s.metrics.RecordEmailSent(ctx, template, "sent")
}

func confirmationTemplate(enrollmentType string) string {
	switch enrollmentType {
	case domain.TypeGrantCoupon:
		return "enrollment_grant"
	case domain.TypeAffiliateReferral:
		return "enrollment_referral"
	default:
		return "enrollment_purchase"
	}
}

// syncToLMS tries the LMS inline twice, then hands the request to the
// durable retry queue. An enrollment that already carries an LMS id is
// never re-pushed.
func (s *Service) syncToLMS(ctx context.Context, log *zap.Logger, enrollment *domain.Enrollment) {
	if enrollment.Frappe.Synced || enrollment.Frappe.EnrollmentID != "" {
		return
	}

	req := lmsdomain.SyncRequest{
		EnrollmentID:       enrollment.ID.String(),
		UserEmail:          enrollment.UserEmail,
		UserName:           enrollment.UserName,
		CourseID:           enrollment.CourseID,
		PaymentID:          enrollment.PaymentIntentID,
		AmountCents:        enrollment.Amount,
		Currency:           enrollment.Currency,
		ReferralCode:       enrollment.Affiliate.ReferralCode,
		DiscountPercentage: enrollment.Grant.DiscountPercentage,
	}
	if enrollment.Grant.ID != 0 {
		req.GrantID = enrollment.Grant.ID.String()
	}

	if err := s.repo.SetSyncSyncing(ctx, s.db, enrollment.ID, s.clock.Now()); err != nil {
		log.Warn("set sync status failed", zap.Error(err))
	}

	result, err := s.lms.Sync(ctx, req)
	if err == nil {
		s.finishSync(ctx, log, enrollment.ID, result.EnrollmentID)
		s.metrics.RecordLMSSyncAttempt(ctx, "inline", "success")
		return
	}
	log.Warn("lms sync failed, retrying inline", zap.Error(err))
	s.metrics.RecordLMSSyncAttempt(ctx, "inline", syncOutcome(err))

	if !s.waitInlineRetry(ctx) {
		s.enqueueSync(ctx, log, enrollment.ID, req, err)
		return
	}

	result, err = s.lms.Sync(ctx, req)
	if err == nil {
		s.finishSync(ctx, log, enrollment.ID, result.EnrollmentID)
		s.metrics.RecordLMSSyncAttempt(ctx, "inline_retry", "success")
		return
	}
	log.Warn("inline lms retry failed, queueing durable retry", zap.Error(err))
	s.metrics.RecordLMSSyncAttempt(ctx, "inline_retry", syncOutcome(err))
	s.enqueueSync(ctx, log, enrollment.ID, req, err)
}

func (s *Service) finishSync(ctx context.Context, log *zap.Logger, id snowflake.ID, lmsEnrollmentID string) {
	if err := s.repo.SetSyncCompleted(ctx, s.db, id, lmsEnrollmentID, s.clock.Now()); err != nil {
		log.Warn("record sync completion failed", zap.Error(err))
		return
	}
	log.Info("lms sync completed", zap.String("lms_enrollment_id", lmsEnrollmentID))
}

func (s *Service) enqueueSync(ctx context.Context, log *zap.Logger, id snowflake.ID, req lmsdomain.SyncRequest, cause error) {
	jobID, err := s.queue.Enqueue(ctx, id, req, cause.Error())
	if err != nil {
		log.Error("enqueue lms retry failed", zap.Error(err))
		if serr := s.repo.SetSyncFailed(ctx, s.db, id, cause.Error(), s.clock.Now()); serr != nil {
			log.Warn("record sync failure failed", zap.Error(serr))
		}
		return
	}
	if err := s.repo.SetSyncRetrying(ctx, s.db, id, jobID, cause.Error(), 0, s.clock.Now()); err != nil {
		log.Warn("record retrying status failed", zap.Error(err))
	}
	log.Info("lms sync queued for retry", zap.String("retry_job_id", jobID.String()))
}

// waitInlineRetry sleeps the configured inline delay. It reports false
// when the request context ended first, in which case the durable queue
// takes over immediately.
func (s *Service) waitInlineRetry(ctx context.Context) bool {
	delay := time.Duration(s.cfg.Worker.InlineRetryDelaySeconds) * time.Second
	if delay <= 0 {
		return true
	}
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

func syncOutcome(err error) string {
	switch {
	case errors.Is(err, lmsdomain.ErrSyncRejected):
		return "rejected"
	case errors.Is(err, lmsdomain.ErrSyncUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
