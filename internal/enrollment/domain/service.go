package domain

import (
	"context"
	"net/http"
)

// Service is the payment confirmation pipeline.
type Service interface {
	HandleWebhook(ctx context.Context, payload []byte, headers http.Header) (*Ack, error)
	CompleteEnrollment(ctx context.Context, sessionID string) (*Ack, error)
}
