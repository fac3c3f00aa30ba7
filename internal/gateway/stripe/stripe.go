package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/devhb1/FrappeLms-sub002/internal/clock"
	"github.com/devhb1/FrappeLms-sub002/internal/config"
	"github.com/devhb1/FrappeLms-sub002/internal/gateway/domain"
)

type Adapter struct {
	webhookSecret string
	tolerance     time.Duration
	clock         clock.Clock
	api           *apiClient
}

func NewAdapter(cfg config.Config, clk clock.Clock) *Adapter {
	return &Adapter{
		webhookSecret: strings.TrimSpace(cfg.Stripe.WebhookSecret),
		tolerance:     time.Duration(cfg.Stripe.ToleranceSeconds) * time.Second,
		clock:         clk,
		api:           newAPIClient(cfg.Stripe.SecretKey),
	}
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.webhookSecret == "" {
		return domain.ErrMissingConfig
	}
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return domain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	if a.tolerance > 0 {
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return domain.ErrInvalidSignature
		}
		age := a.clock.Now().Sub(time.Unix(ts, 0).UTC())
		if age > a.tolerance || age < -a.tolerance {
			return domain.ErrInvalidSignature
		}
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return domain.ErrInvalidSignature
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*domain.WebhookEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case domain.EventTypeCheckoutCompleted:
		return a.parseCheckoutSession(event, payload)
	default:
		return nil, domain.ErrEventIgnored
	}
}

func (a *Adapter) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	session, err := a.api.retrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	converted := convertSession(session)
	return &converted, nil
}

func (a *Adapter) parseCheckoutSession(event stripeEvent, payload []byte) (*domain.WebhookEvent, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	return &domain.WebhookEvent{
		ID:         event.ID,
		Type:       domain.EventTypeCheckoutCompleted,
		OccurredAt: timestamp(event.Created, a.clock.Now()),
		Session:    convertSession(session),
		RawPayload: payload,
	}, nil
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID            string         `json:"id"`
	PaymentIntent string         `json:"payment_intent"`
	PaymentStatus string         `json:"payment_status"`
	AmountTotal   int64          `json:"amount_total"`
	Currency      string         `json:"currency"`
	Metadata      map[string]any `json:"metadata"`
}

func convertSession(session stripeCheckoutSession) domain.CheckoutSession {
	metadata := make(map[string]string, len(session.Metadata))
	for key := range session.Metadata {
		if value := readMetadataValue(session.Metadata, key); value != "" {
			metadata[key] = value
		}
	}
	return domain.CheckoutSession{
		ID:              session.ID,
		PaymentIntentID: strings.TrimSpace(session.PaymentIntent),
		PaymentStatus:   strings.ToLower(strings.TrimSpace(session.PaymentStatus)),
		AmountTotal:     session.AmountTotal,
		Currency:        strings.ToLower(strings.TrimSpace(session.Currency)),
		Metadata:        metadata,
	}
}

func parseStripeSignature(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback time.Time) time.Time {
	if primary == 0 {
		return fallback
	}
	return time.Unix(primary, 0).UTC()
}

func readMetadataValue(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key]
	if !ok {
		return ""
	}
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		if cast == 0 {
			return ""
		}
		return strconv.FormatInt(int64(cast), 10)
	case json.Number:
		return cast.String()
	case int64:
		return strconv.FormatInt(cast, 10)
	case int:
		return strconv.Itoa(cast)
	}
	return ""
}
