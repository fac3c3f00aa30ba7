package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/devhb1/FrappeLms-sub002/internal/gateway/domain"
)

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type apiClient struct {
	apiKey string
	client *http.Client
}

func newAPIClient(apiKey string) *apiClient {
	return &apiClient{
		apiKey: strings.TrimSpace(apiKey),
		client: &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *apiClient) retrieveCheckoutSession(ctx context.Context, sessionID string) (stripeCheckoutSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return stripeCheckoutSession{}, domain.ErrSessionNotFound
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/checkout/sessions/"+sessionID)
}

func (c *apiClient) doRequest(ctx context.Context, method string, path string) (stripeCheckoutSession, error) {
	if c.apiKey == "" {
		return stripeCheckoutSession{}, domain.ErrMissingConfig
	}

	req, err := http.NewRequestWithContext(ctx, method, "https://api.stripe.com"+path, strings.NewReader(""))
	if err != nil {
		return stripeCheckoutSession{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return stripeCheckoutSession{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return stripeCheckoutSession{}, domain.ErrSessionNotFound
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return stripeCheckoutSession{}, errors.New("stripe_request_failed")
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			message = "stripe_request_failed"
		}
		return stripeCheckoutSession{}, errors.New(message)
	}

	var session stripeCheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return stripeCheckoutSession{}, err
	}
	return session, nil
}
