package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/devhb1/FrappeLms-sub002/internal/config"
	"github.com/devhb1/FrappeLms-sub002/internal/lms/domain"
	"go.uber.org/zap"
)

const syncMethodPath = "/api/method/lms_sync.api.enroll"

type FrappeClient struct {
	baseURL   string
	apiKey    string
	apiSecret string
	client    *http.Client
	log       *zap.Logger
}

func NewFrappeClient(cfg config.Config, log *zap.Logger) *FrappeClient {
	return &FrappeClient{
		baseURL:   strings.TrimRight(cfg.Frappe.BaseURL, "/"),
		apiKey:    cfg.Frappe.APIKey,
		apiSecret: cfg.Frappe.APISecret,
		client:    &http.Client{Timeout: time.Duration(cfg.Frappe.TimeoutSeconds) * time.Second},
		log:       log.Named("lms.frappe"),
	}
}

// Frappe wraps whitelisted method responses in a "message" envelope.
type frappeResponse struct {
	Message struct {
		Success      bool   `json:"success"`
		EnrollmentID string `json:"enrollment_id"`
		Error        string `json:"error"`
	} `json:"message"`
}

func (c *FrappeClient) Sync(ctx context.Context, req domain.SyncRequest) (*domain.SyncResult, error) {
	if c.baseURL == "" {
		return nil, domain.ErrMissingConfig
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode sync request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+syncMethodPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build sync request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "token "+c.apiKey+":"+c.apiSecret)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSyncUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", domain.ErrSyncUnavailable, resp.StatusCode)
	}

	var decoded frappeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrSyncUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !decoded.Message.Success {
		message := strings.TrimSpace(decoded.Message.Error)
		if message == "" {
			message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrSyncRejected, message)
	}

	if strings.TrimSpace(decoded.Message.EnrollmentID) == "" {
		return nil, fmt.Errorf("%w: missing enrollment id", domain.ErrSyncRejected)
	}

	return &domain.SyncResult{EnrollmentID: decoded.Message.EnrollmentID}, nil
}
