package handlers

import (
	"net/http"

	"analysis-console-api/internal/realtime"

	"github.com/gin-gonic/gin"
)

// UpdateStatus handles POST /api/status
// Merges a partial update into the process state and broadcasts the result
// to every connected session.
func UpdateStatus(m *realtime.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch realtime.StatePatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, m.UpdateState(patch))
	}
}

// LogLineRequest represents one line of analysis output
type LogLineRequest struct {
	Line string `json:"line" binding:"required"`
}

// IngestLog handles POST /api/analyses/:id/log
// Entry point for the analysis runner: broadcasts a log event to the
// analysis topic channel. No subscribers is a silent no-op.
func IngestLog(m *realtime.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		analysisID := c.Param("id")
		if analysisID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Analysis ID is required"})
			return
		}

		var req LogLineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "line is required"})
			return
		}

		m.Broadcast(analysisID, realtime.EventLog, map[string]any{
			"analysisId": analysisID,
			"line":       req.Line,
		})
		c.Status(http.StatusNoContent)
	}
}
