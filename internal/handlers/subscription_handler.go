package handlers

import (
	"errors"
	"net/http"

	"analysis-console-api/internal/realtime"

	"github.com/gin-gonic/gin"
)

// SubscribeRequest represents the request payload for batch subscribe
type SubscribeRequest struct {
	SessionID string   `json:"sessionId" binding:"required"`
	Analyses  []string `json:"analyses" binding:"required"`
}

// UnsubscribeRequest represents the request payload for batch unsubscribe
type UnsubscribeRequest struct {
	SessionID string   `json:"sessionId" binding:"required"`
	Analyses  []string `json:"analyses" binding:"required"`
}

// Subscribe handles POST /api/subscribe
// Authorization is evaluated independently per analysis; partial success is
// the expected outcome and denials are reported as data, not errors.
func Subscribe(m *realtime.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
			return
		}

		var req SubscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId and analyses are required"})
			return
		}

		result, err := m.Subscribe(c.Request.Context(), req.SessionID, userID, req.Analyses)
		if err != nil {
			if errors.Is(err, realtime.ErrUnknownSession) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			} else if errors.Is(err, realtime.ErrInvalidTopic) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Analysis names must be non-empty"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to subscribe"})
			}
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// Unsubscribe handles POST /api/unsubscribe
// An unknown session succeeds with an empty list.
func Unsubscribe(m *realtime.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UnsubscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId and analyses are required"})
			return
		}

		c.JSON(http.StatusOK, m.Unsubscribe(req.SessionID, req.Analyses))
	}
}

// RefreshUser handles POST /api/refresh/:userid
// Re-fetches the target user's identity and pushes a fresh snapshot to each
// of their sessions, so role changes apply without reconnection.
func RefreshUser(m *realtime.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		targetUserID := c.Param("userid")
		if targetUserID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userid is required"})
			return
		}

		m.RefreshUser(c.Request.Context(), targetUserID)
		c.Status(http.StatusNoContent)
	}
}
