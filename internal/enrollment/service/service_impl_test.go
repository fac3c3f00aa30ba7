package service_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/devhb1/FrappeLms-sub002/internal/clock"
	commissionrepo "github.com/devhb1/FrappeLms-sub002/internal/commission/repository"
	commissionservice "github.com/devhb1/FrappeLms-sub002/internal/commission/service"
	"github.com/devhb1/FrappeLms-sub002/internal/config"
	"github.com/devhb1/FrappeLms-sub002/internal/enrollment/domain"
	"github.com/devhb1/FrappeLms-sub002/internal/enrollment/repository"
	"github.com/devhb1/FrappeLms-sub002/internal/enrollment/service"
	gatewaydomain "github.com/devhb1/FrappeLms-sub002/internal/gateway/domain"
	"github.com/devhb1/FrappeLms-sub002/internal/gateway/stripe"
	grantrepo "github.com/devhb1/FrappeLms-sub002/internal/grant/repository"
	grantservice "github.com/devhb1/FrappeLms-sub002/internal/grant/service"
	lmsdomain "github.com/devhb1/FrappeLms-sub002/internal/lms/domain"
	retrydomain "github.com/devhb1/FrappeLms-sub002/internal/retryqueue/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_pipeline_test"

type fakeLMS struct {
	calls    int
	failures int
	result   string
}

func (f *fakeLMS) Sync(ctx context.Context, req lmsdomain.SyncRequest) (*lmsdomain.SyncResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, fmt.Errorf("%w: connection refused", lmsdomain.ErrSyncUnavailable)
	}
	return &lmsdomain.SyncResult{EnrollmentID: f.result}, nil
}

type fakeQueue struct {
	jobID    snowflake.ID
	enqueued []snowflake.ID
}

func (f *fakeQueue) Enqueue(ctx context.Context, enrollmentID snowflake.ID, req lmsdomain.SyncRequest, lastError string) (snowflake.ID, error) {
	f.enqueued = append(f.enqueued, enrollmentID)
	return f.jobID, nil
}

func (f *fakeQueue) RunBatch(ctx context.Context) (*retrydomain.BatchStats, error) {
	return &retrydomain.BatchStats{}, nil
}

func (f *fakeQueue) Health(ctx context.Context) (*retrydomain.Health, error) {
	return &retrydomain.Health{}, nil
}

type fakeEmail struct {
	templates []string
}

func (f *fakeEmail) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}

func (f *fakeEmail) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	f.templates = append(f.templates, templateName)
	return nil
}

// fakeGateway serves the fallback path so tests never reach the real
// provider API. Webhook verification and parsing stay on the real
// adapter.
type fakeGateway struct {
	inner   gatewaydomain.Gateway
	session *gatewaydomain.CheckoutSession
}

func (g *fakeGateway) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	return g.inner.Verify(ctx, payload, headers)
}

func (g *fakeGateway) Parse(ctx context.Context, payload []byte) (*gatewaydomain.WebhookEvent, error) {
	return g.inner.Parse(ctx, payload)
}

func (g *fakeGateway) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*gatewaydomain.CheckoutSession, error) {
	if g.session == nil || g.session.ID != sessionID {
		return nil, gatewaydomain.ErrSessionNotFound
	}
	return g.session, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE enrollments (
			id BIGINT PRIMARY KEY,
			course_id TEXT NOT NULL DEFAULT '',
			course_title TEXT NOT NULL DEFAULT '',
			user_email TEXT NOT NULL DEFAULT '',
			user_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			enrollment_type TEXT NOT NULL DEFAULT 'purchase',
			amount BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT '',
			session_id TEXT NOT NULL DEFAULT '',
			payment_intent_id TEXT NOT NULL DEFAULT '',
			payment_verified BOOLEAN NOT NULL DEFAULT FALSE,
			affiliate_email TEXT NOT NULL DEFAULT '',
			affiliate_referral_code TEXT NOT NULL DEFAULT '',
			affiliate_commission_eligible BOOLEAN NOT NULL DEFAULT FALSE,
			affiliate_commission_rate REAL NOT NULL DEFAULT 0,
			affiliate_commission_amount BIGINT NOT NULL DEFAULT 0,
			affiliate_commission_processed BOOLEAN NOT NULL DEFAULT FALSE,
			affiliate_commission_processed_at TIMESTAMP,
			affiliate_commission_paid_out BOOLEAN NOT NULL DEFAULT FALSE,
			affiliate_commission_error TEXT NOT NULL DEFAULT '',
			grant_id BIGINT NOT NULL DEFAULT 0,
			grant_coupon_code TEXT NOT NULL DEFAULT '',
			grant_discount_percentage REAL NOT NULL DEFAULT 0,
			grant_original_price BIGINT NOT NULL DEFAULT 0,
			grant_final_price BIGINT NOT NULL DEFAULT 0,
			grant_verified BOOLEAN NOT NULL DEFAULT FALSE,
			frappe_synced BOOLEAN NOT NULL DEFAULT FALSE,
			frappe_sync_status TEXT NOT NULL DEFAULT 'pending',
			frappe_enrollment_id TEXT NOT NULL DEFAULT '',
			frappe_error_message TEXT NOT NULL DEFAULT '',
			frappe_retry_count INTEGER NOT NULL DEFAULT 0,
			frappe_last_sync_attempt TIMESTAMP,
			frappe_sync_completed_at TIMESTAMP,
			frappe_retry_job_id BIGINT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE enrollment_events (
			id BIGINT PRIMARY KEY,
			event_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			enrollment_id BIGINT NOT NULL,
			payload TEXT,
			received_at TIMESTAMP NOT NULL,
			processed_at TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX ux_enrollment_events_event_id ON enrollment_events(event_id)`,
		`CREATE TABLE grants (
			id BIGINT PRIMARY KEY,
			coupon_code TEXT NOT NULL,
			discount_percentage REAL NOT NULL DEFAULT 0,
			max_uses INTEGER NOT NULL,
			used_count INTEGER NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE affiliates (
			id BIGINT PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			commission_rate REAL NOT NULL DEFAULT 0,
			total_referrals BIGINT NOT NULL DEFAULT 0,
			pending_payout BIGINT NOT NULL DEFAULT 0,
			lifetime_paid BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_affiliates_email ON affiliates(email)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

type pipeline struct {
	svc     *service.Service
	db      *gorm.DB
	clk     *clock.FakeClock
	lms     *fakeLMS
	queue   *fakeQueue
	email   *fakeEmail
	gateway *fakeGateway
}

func newPipeline(t *testing.T, db *gorm.DB, lms *fakeLMS) *pipeline {
	t.Helper()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)
	node, err := snowflake.NewNode(12)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	cfg := config.Config{}
	cfg.Stripe.WebhookSecret = testWebhookSecret
	cfg.Stripe.ToleranceSeconds = 300
	cfg.Worker.InlineRetryDelaySeconds = 0

	gw := &fakeGateway{inner: stripe.NewAdapter(cfg, clk)}
	queue := &fakeQueue{jobID: node.Generate()}
	mail := &fakeEmail{}
	log := zap.NewNop()

	grants := grantservice.NewService(grantservice.Params{
		DB: db, Log: log, Repo: grantrepo.Provide(), Clock: clk,
	})
	commissions := commissionservice.NewService(commissionservice.Params{
		DB: db, Log: log, Repo: commissionrepo.Provide(), Clock: clk,
	})

	svc := service.NewService(service.Params{
		DB:          db,
		Log:         log,
		Config:      cfg,
		Node:        node,
		Clock:       clk,
		Repo:        repository.Provide(),
		Gateway:     gw,
		LMS:         lms,
		Queue:       queue,
		Grants:      grants,
		Commissions: commissions,
		Email:       mail,
		Metrics:     nil,
	})
	return &pipeline{svc: svc, db: db, clk: clk, lms: lms, queue: queue, email: mail, gateway: gw}
}

func (p *pipeline) signedWebhook(t *testing.T, eventID string, enrollmentID snowflake.ID, sessionID string) ([]byte, http.Header) {
	t.Helper()

	payload := []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": %q,
				"payment_intent": "pi_test_1",
				"payment_status": "paid",
				"amount_total": 4999,
				"currency": "usd",
				"metadata": {"enrollment_id": %q}
			}
		}
	}`, eventID, sessionID, enrollmentID.String()))

	signed := fmt.Sprintf("%d.%s", p.clk.Now().Unix(), string(payload))
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(signed))

	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", p.clk.Now().Unix(), hex.EncodeToString(mac.Sum(nil))))
	return payload, headers
}

func insertPendingEnrollment(t *testing.T, db *gorm.DB, id snowflake.ID, enrollmentType string, now time.Time) {
	t.Helper()
	err := db.Exec(
		`INSERT INTO enrollments (id, course_id, course_title, user_email, user_name, enrollment_type, amount, currency, created_at, updated_at)
		 VALUES (?, 'go-101', 'Practical Go', 'student@example.com', 'Sam Student', ?, 4999, 'usd', ?, ?)`,
		id, enrollmentType, now, now,
	).Error
	if err != nil {
		t.Fatalf("insert enrollment: %v", err)
	}
}

func TestWebhookConfirmsPurchaseEnrollment(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	p := newPipeline(t, db, &fakeLMS{result: "lms-enr-1"})

	enrollmentID := snowflake.ID(555001)
	insertPendingEnrollment(t, db, enrollmentID, domain.TypePurchase, p.clk.Now())
	payload, headers := p.signedWebhook(t, "evt_1", enrollmentID, "cs_1")

	ack, err := p.svc.HandleWebhook(ctx, payload, headers)
	if err != nil {
		t.Fatalf("handle webhook: %v", err)
	}
	if !ack.Received || ack.Status == domain.AckAlreadyProcessed {
		t.Fatalf("ack = %+v", ack)
	}

	enr, err := repository.Provide().FindByID(ctx, db, enrollmentID)
	if err != nil || enr == nil {
		t.Fatalf("find enrollment: %v %v", enr, err)
	}
	if enr.Status != domain.StatusPaid {
		t.Fatalf("status = %q", enr.Status)
	}
	if enr.SessionID != "cs_1" || enr.PaymentIntentID != "pi_test_1" {
		t.Fatalf("payment fields = %q %q", enr.SessionID, enr.PaymentIntentID)
	}
	if !enr.PaymentVerified {
		t.Fatalf("payment not marked verified")
	}
	if !enr.Frappe.Synced || enr.Frappe.EnrollmentID != "lms-enr-1" {
		t.Fatalf("frappe = %+v", enr.Frappe)
	}
	if len(p.email.templates) != 1 || p.email.templates[0] != "enrollment_purchase" {
		t.Fatalf("emails = %v", p.email.templates)
	}

	var processed int64
	if err := db.Raw(`SELECT COUNT(*) FROM enrollment_events WHERE event_id = 'evt_1' AND processed_at IS NOT NULL`).Scan(&processed).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed events = %d", processed)
	}
}

func TestWebhookRedeliveryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	p := newPipeline(t, db, &fakeLMS{result: "lms-enr-1"})

	enrollmentID := snowflake.ID(555002)
	insertPendingEnrollment(t, db, enrollmentID, domain.TypePurchase, p.clk.Now())
	payload, headers := p.signedWebhook(t, "evt_dup", enrollmentID, "cs_2")

	if _, err := p.svc.HandleWebhook(ctx, payload, headers); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	ack, err := p.svc.HandleWebhook(ctx, payload, headers)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if ack.Status != domain.AckAlreadyProcessed {
		t.Fatalf("ack = %+v", ack)
	}
	if p.lms.calls != 1 {
		t.Fatalf("lms called %d times", p.lms.calls)
	}
	if len(p.email.templates) != 1 {
		t.Fatalf("emails = %v", p.email.templates)
	}
}

func TestWebhookQueuesDurableRetryWhenLMSDown(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	p := newPipeline(t, db, &fakeLMS{failures: 100})

	enrollmentID := snowflake.ID(555003)
	insertPendingEnrollment(t, db, enrollmentID, domain.TypePurchase, p.clk.Now())
	payload, headers := p.signedWebhook(t, "evt_down", enrollmentID, "cs_3")

	ack, err := p.svc.HandleWebhook(ctx, payload, headers)
	if err != nil {
		t.Fatalf("handle webhook: %v", err)
	}
	if !ack.Received {
		t.Fatalf("ack = %+v", ack)
	}
	if p.lms.calls != 2 {
		t.Fatalf("inline attempts = %d, want 2", p.lms.calls)
	}
	if len(p.queue.enqueued) != 1 || p.queue.enqueued[0] != enrollmentID {
		t.Fatalf("enqueued = %v", p.queue.enqueued)
	}

	enr, err := repository.Provide().FindByID(ctx, db, enrollmentID)
	if err != nil || enr == nil {
		t.Fatalf("find enrollment: %v %v", enr, err)
	}
	if enr.Status != domain.StatusPaid {
		t.Fatalf("lms outage must not block payment, status = %q", enr.Status)
	}
	if enr.Frappe.SyncStatus != domain.SyncStatusRetrying {
		t.Fatalf("sync status = %q", enr.Frappe.SyncStatus)
	}
	if enr.Frappe.RetryJobID == nil || *enr.Frappe.RetryJobID != p.queue.jobID {
		t.Fatalf("retry job id = %v", enr.Frappe.RetryJobID)
	}
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	p := newPipeline(t, db, &fakeLMS{})

	payload := []byte(`{"id":"evt_other","type":"invoice.paid","data":{"object":{}}}`)
	signed := fmt.Sprintf("%d.%s", p.clk.Now().Unix(), string(payload))
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(signed))
	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", p.clk.Now().Unix(), hex.EncodeToString(mac.Sum(nil))))

	ack, err := p.svc.HandleWebhook(ctx, payload, headers)
	if err != nil {
		t.Fatalf("handle webhook: %v", err)
	}
	if !ack.Received {
		t.Fatalf("ack = %+v", ack)
	}
	if p.lms.calls != 0 {
		t.Fatalf("lms called for ignored event")
	}
}

func TestWebhookRejectsUnknownEnrollment(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	p := newPipeline(t, db, &fakeLMS{})

	payload, headers := p.signedWebhook(t, "evt_missing", snowflake.ID(999999), "cs_x")
	if _, err := p.svc.HandleWebhook(ctx, payload, headers); !errors.Is(err, domain.ErrEnrollmentNotFound) {
		t.Fatalf("expected enrollment not found, got %v", err)
	}
}

func TestWebhookRejectsUnsignedDelivery(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	p := newPipeline(t, db, &fakeLMS{})

	payload := []byte(`{"id":"evt_forged","type":"checkout.session.completed"}`)
	if _, err := p.svc.HandleWebhook(ctx, payload, http.Header{}); !errors.Is(err, gatewaydomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
}

func TestGrantEnrollmentConsumesCoupon(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	p := newPipeline(t, db, &fakeLMS{result: "lms-enr-2"})

	now := p.clk.Now()
	grantID := snowflake.ID(901)
	err := db.Exec(
		`INSERT INTO grants (id, coupon_code, discount_percentage, max_uses, used_count, active, created_at, updated_at)
		 VALUES (?, 'SCHOLAR50', 50, 5, 0, TRUE, ?, ?)`,
		grantID, now, now,
	).Error
	if err != nil {
		t.Fatalf("insert grant: %v", err)
	}

	enrollmentID := snowflake.ID(555004)
	insertPendingEnrollment(t, db, enrollmentID, domain.TypeGrantCoupon, now)
	err = db.Exec(
		`UPDATE enrollments SET grant_id = ?, grant_coupon_code = 'SCHOLAR50', grant_discount_percentage = 50 WHERE id = ?`,
		grantID, enrollmentID,
	).Error
	if err != nil {
		t.Fatalf("stamp grant fields: %v", err)
	}

	payload, headers := p.signedWebhook(t, "evt_grant", enrollmentID, "cs_4")
	if _, err := p.svc.HandleWebhook(ctx, payload, headers); err != nil {
		t.Fatalf("handle webhook: %v", err)
	}

	var usedCount int
	if err := db.Raw(`SELECT used_count FROM grants WHERE id = ?`, grantID).Scan(&usedCount).Error; err != nil {
		t.Fatalf("read grant: %v", err)
	}
	if usedCount != 1 {
		t.Fatalf("used_count = %d", usedCount)
	}
	if len(p.email.templates) != 1 || p.email.templates[0] != "enrollment_grant" {
		t.Fatalf("emails = %v", p.email.templates)
	}
}

func TestReferralEnrollmentStampsCommission(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	p := newPipeline(t, db, &fakeLMS{result: "lms-enr-3"})

	now := p.clk.Now()
	err := db.Exec(
		`INSERT INTO affiliates (id, email, name, commission_rate, created_at, updated_at)
		 VALUES (801, 'partner@example.com', 'Partner', 30, ?, ?)`,
		now, now,
	).Error
	if err != nil {
		t.Fatalf("insert affiliate: %v", err)
	}

	enrollmentID := snowflake.ID(555005)
	insertPendingEnrollment(t, db, enrollmentID, domain.TypeAffiliateReferral, now)
	err = db.Exec(
		`UPDATE enrollments
		 SET affiliate_email = 'partner@example.com', affiliate_referral_code = 'PARTNER30', affiliate_commission_eligible = TRUE
		 WHERE id = ?`,
		enrollmentID,
	).Error
	if err != nil {
		t.Fatalf("stamp affiliate fields: %v", err)
	}

	payload, headers := p.signedWebhook(t, "evt_ref", enrollmentID, "cs_5")
	if _, err := p.svc.HandleWebhook(ctx, payload, headers); err != nil {
		t.Fatalf("handle webhook: %v", err)
	}

	enr, err := repository.Provide().FindByID(ctx, db, enrollmentID)
	if err != nil || enr == nil {
		t.Fatalf("find enrollment: %v %v", enr, err)
	}
	if !enr.Affiliate.CommissionProcessed {
		t.Fatalf("commission not processed: %+v", enr.Affiliate)
	}
	if enr.Affiliate.CommissionAmount != 1500 {
		t.Fatalf("commission = %d, want 1500 (30%% of 4999)", enr.Affiliate.CommissionAmount)
	}

	var pendingPayout int64
	if err := db.Raw(`SELECT pending_payout FROM affiliates WHERE id = 801`).Scan(&pendingPayout).Error; err != nil {
		t.Fatalf("read affiliate: %v", err)
	}
	if pendingPayout != 1500 {
		t.Fatalf("pending_payout = %d", pendingPayout)
	}
}

func TestCompleteEnrollmentFallback(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	p := newPipeline(t, db, &fakeLMS{result: "lms-enr-4"})

	enrollmentID := snowflake.ID(555006)
	insertPendingEnrollment(t, db, enrollmentID, domain.TypePurchase, p.clk.Now())
	p.gateway.session = &gatewaydomain.CheckoutSession{
		ID:              "cs_fallback",
		PaymentIntentID: "pi_fb_1",
		PaymentStatus:   "paid",
		AmountTotal:     4999,
		Currency:        "usd",
		Metadata:        map[string]string{"enrollment_id": enrollmentID.String()},
	}

	ack, err := p.svc.CompleteEnrollment(ctx, "cs_fallback")
	if err != nil {
		t.Fatalf("complete enrollment: %v", err)
	}
	if !ack.Received || ack.Status == domain.AckAlreadyProcessed {
		t.Fatalf("ack = %+v", ack)
	}

	enr, err := repository.Provide().FindByID(ctx, db, enrollmentID)
	if err != nil || enr == nil {
		t.Fatalf("find enrollment: %v %v", enr, err)
	}
	if enr.Status != domain.StatusPaid {
		t.Fatalf("status = %q", enr.Status)
	}

	// The webhook arriving afterwards records its own ledger row but
	// loses the paid transition.
	payload, headers := p.signedWebhook(t, "evt_late", enrollmentID, "cs_fallback")
	ack, err = p.svc.HandleWebhook(ctx, payload, headers)
	if err != nil {
		t.Fatalf("late webhook: %v", err)
	}
	if ack.Status != domain.AckAlreadyProcessed {
		t.Fatalf("late ack = %+v", ack)
	}
	if p.lms.calls != 1 {
		t.Fatalf("lms called %d times", p.lms.calls)
	}
}

func TestCompleteEnrollmentRequiresPaidSession(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	p := newPipeline(t, db, &fakeLMS{})

	p.gateway.session = &gatewaydomain.CheckoutSession{
		ID:            "cs_unpaid",
		PaymentStatus: "unpaid",
	}

	if _, err := p.svc.CompleteEnrollment(ctx, "cs_unpaid"); !errors.Is(err, domain.ErrSessionNotPaid) {
		t.Fatalf("expected session not paid, got %v", err)
	}
	if _, err := p.svc.CompleteEnrollment(ctx, "cs_gone"); !errors.Is(err, gatewaydomain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
	if _, err := p.svc.CompleteEnrollment(ctx, ""); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}
