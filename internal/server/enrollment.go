package server

import (
	"fmt"
	"net/http"

	enrollmentdomain "github.com/devhb1/FrappeLms-sub002/internal/enrollment/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleWebhook receives payment-provider deliveries. The raw body is
// read before any binding because signature verification covers the
// exact bytes on the wire.
func (s *Server) handleWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: unreadable body", enrollmentdomain.ErrInvalidRequest))
		return
	}

	ack, err := s.enrollmentSvc.HandleWebhook(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}

type completeEnrollmentRequest struct {
	SessionID string `json:"session_id"`
}

// handleCompleteEnrollment is the success-page fallback for the case
// where the webhook never arrived.
func (s *Server) handleCompleteEnrollment(c *gin.Context) {
	var req completeEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", enrollmentdomain.ErrInvalidRequest, err))
		return
	}

	ack, err := s.enrollmentSvc.CompleteEnrollment(c.Request.Context(), req.SessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}

func (s *Server) requireCompletionBudget() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.completionLimiter.Enabled() {
			c.Next()
			return
		}

		result, err := s.completionLimiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			// A broken limiter backend must not block payments.
			s.log.Warn("completion rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !result.Allowed {
			s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "complete-enrollment", "token_bucket")
			c.Header("Retry-After", fmt.Sprintf("%.0f", result.RetryAfter.Seconds()))
			AbortWithError(c, ErrRateLimited)
			return
		}
		s.obsMetrics.RecordRateLimitAllowed(c.Request.Context(), "complete-enrollment")
		c.Next()
	}
}
