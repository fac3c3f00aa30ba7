package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleRunRetryBatch triggers one worker pass on demand. Operators use
// it to drain the queue without waiting for the next tick.
func (s *Server) handleRunRetryBatch(c *gin.Context) {
	stats, err := s.queueSvc.RunBatch(c.Request.Context())
	if err != nil {
		// Partial batches still report their stats. A hard failure
		// with no stats at all becomes a 500.
		if stats == nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"stats": stats,
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (s *Server) handleRetryQueueHealth(c *gin.Context) {
	health, err := s.queueSvc.Health(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, health)
}
