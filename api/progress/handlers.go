package progress

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meetscribe/scribe-api/api/types"
	"github.com/meetscribe/scribe-api/internal/models"
)

// Get reports the current progress of a session
// @Summary      Poll session progress
// @Description  Returns the latest progress snapshot for a session. Finished sessions are swept
// @Description  after their TTL, after which this endpoint responds 404.
// @Tags         progress
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} types.ProgressResponse
// @Failure      404 {object} types.ErrorResponse "Unknown or expired session"
// @Router       /api/v1/progress/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")

		if deps.ProgressTracker == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Progress tracker not available"})
			return
		}

		update, ok := deps.ProgressTracker.GetProgress(sessionID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown or expired session"})
			return
		}

		c.JSON(http.StatusOK, toResponse(update))
	}
}

// Stream pushes progress updates for a session over SSE
// @Summary      Stream session progress
// @Description  Server-sent event stream of progress updates. The current snapshot is replayed on
// @Description  connect; the stream closes once the session completes or fails.
// @Tags         progress
// @Produce      text/event-stream
// @Param        id path string true "Session ID"
// @Success      200 {object} types.ProgressResponse
// @Failure      404 {object} types.ErrorResponse "Unknown or expired session"
// @Router       /api/v1/progress/{id}/stream [get]
func Stream(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")

		if deps.ProgressTracker == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Progress tracker not available"})
			return
		}

		if _, ok := deps.ProgressTracker.GetProgress(sessionID); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown or expired session"})
			return
		}

		// Buffered so a slow client drops intermediate updates instead of
		// blocking the tracker's delivery goroutine.
		updates := make(chan models.ProgressUpdate, 16)
		subID := deps.ProgressTracker.Subscribe(sessionID, func(update models.ProgressUpdate) {
			select {
			case updates <- update:
			default:
			}
		})
		defer deps.ProgressTracker.Unsubscribe(sessionID, subID)

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		clientGone := c.Request.Context().Done()
		c.Stream(func(w io.Writer) bool {
			select {
			case <-clientGone:
				return false
			case update := <-updates:
				c.SSEvent("progress", toResponse(update))
				if update.Status == models.StatusCompleted || update.Status == models.StatusFailed {
					return false
				}
				return true
			}
		})
	}
}

func toResponse(update models.ProgressUpdate) types.ProgressResponse {
	return types.ProgressResponse{
		SessionID:                 update.SessionID,
		Status:                    string(update.Status),
		Progress:                  update.Progress,
		Message:                   update.Message,
		Error:                     update.Error,
		EstimatedSecondsRemaining: update.EstimatedSecondsRemaining,
		UpdatedAt:                 update.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
