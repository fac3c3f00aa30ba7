package domain

import "time"

const Provider = "stripe"

// Event types the pipeline acts on. Everything else is acknowledged and
// dropped.
const (
	EventTypeCheckoutCompleted = "checkout.session.completed"
)

// CheckoutSession is the slice of Stripe's checkout session object the
// fulfillment pipeline needs.
type CheckoutSession struct {
	ID              string
	PaymentIntentID string
	PaymentStatus   string
	AmountTotal     int64
	Currency        string
	Metadata        map[string]string
}

func (s CheckoutSession) Paid() bool {
	return s.PaymentStatus == "paid"
}

// WebhookEvent is a verified, parsed webhook delivery.
type WebhookEvent struct {
	ID         string
	Type       string
	OccurredAt time.Time
	Session    CheckoutSession
	RawPayload []byte
}
