package domain

import (
	"context"
	"net/http"
)

// Gateway verifies and parses payment-provider webhooks and exposes the
// read API used by the fallback confirmation path.
type Gateway interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*WebhookEvent, error)
	RetrieveCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
}
