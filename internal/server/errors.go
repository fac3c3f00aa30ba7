package server

import (
	"errors"
	"net/http"

	enrollmentdomain "github.com/devhb1/FrappeLms-sub002/internal/enrollment/domain"
	gatewaydomain "github.com/devhb1/FrappeLms-sub002/internal/gateway/domain"
	"github.com/gin-gonic/gin"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrRateLimited = errors.New("rate_limited")

// ErrorHandlingMiddleware turns errors attached to the gin context into
// a JSON envelope. Handlers report errors with AbortWithError and never
// write error bodies themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// mapError keeps webhook rejections in the 4xx range so the payment
// provider stops redelivering events the pipeline can never act on.
func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, gatewaydomain.ErrInvalidSignature):
		return http.StatusBadRequest, errorPayload{Type: "invalid_signature", Message: "webhook signature verification failed"}
	case errors.Is(err, gatewaydomain.ErrInvalidPayload), errors.Is(err, gatewaydomain.ErrInvalidEvent):
		return http.StatusBadRequest, errorPayload{Type: "invalid_payload", Message: "webhook payload could not be parsed"}
	case errors.Is(err, gatewaydomain.ErrSessionNotFound):
		return http.StatusBadRequest, errorPayload{Type: "session_not_found", Message: "checkout session not found"}
	case errors.Is(err, gatewaydomain.ErrMissingConfig):
		return http.StatusServiceUnavailable, errorPayload{Type: "not_configured", Message: "payment gateway is not configured"}
	case errors.Is(err, enrollmentdomain.ErrMissingEnrollmentID):
		return http.StatusBadRequest, errorPayload{Type: "missing_enrollment_id", Message: "session metadata has no enrollment_id"}
	case errors.Is(err, enrollmentdomain.ErrEnrollmentNotFound):
		return http.StatusBadRequest, errorPayload{Type: "enrollment_not_found", Message: "no enrollment matches this session"}
	case errors.Is(err, enrollmentdomain.ErrSessionNotPaid):
		return http.StatusBadRequest, errorPayload{Type: "session_not_paid", Message: "checkout session is not paid"}
	case errors.Is(err, enrollmentdomain.ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: err.Error()}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{Type: "rate_limited", Message: "too many completion attempts, slow down"}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}

func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return "server_error", payload.Type
	}
	return "client_error", payload.Type
}
