package sessions

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/meetscribe/scribe-api/api/types"
	"github.com/meetscribe/scribe-api/internal/models"
	"github.com/meetscribe/scribe-api/internal/services/jobs"
	apperrors "github.com/meetscribe/scribe-api/pkg/errors"
)

// respondError renders a structured application error as JSON.
func respondError(c *gin.Context, err *apperrors.AppError) {
	c.JSON(err.GetHTTPCode(), gin.H{"error": err.Message})
}

// Create starts a new processing session
// @Summary      Start a transcription session
// @Description  Creates a session for the given audio file and queues a pipeline job that transcribes,
// @Description  diarizes, and aligns it. Processing is asynchronous; poll the progress endpoints or
// @Description  subscribe to the SSE stream to follow it.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        request body types.CreateSessionRequest true "Session parameters"
// @Success      202 {object} types.SessionResponse "Session created and job queued"
// @Failure      400 {object} types.ErrorResponse "Invalid request payload"
// @Failure      500 {object} types.ErrorResponse "Job queue unavailable"
// @Router       /api/v1/sessions [post]
func Create(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.CreateSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.MissingFieldError("audio_path"))
			return
		}
		if req.NumSpeakers < 0 {
			respondError(c, apperrors.ValidationError("num_speakers", "must not be negative"))
			return
		}

		if deps.JobService == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Job service not available"})
			return
		}

		sessionID := uuid.NewString()

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		payload := models.JobPayload{
			"session_id":   sessionID,
			"audio_path":   req.AudioPath,
			"num_speakers": req.NumSpeakers,
		}

		job, err := deps.JobService.EnqueueJob(ctx, models.JobTypePipelineRun, payload, jobs.WithPriority(req.Priority))
		if err != nil {
			log.Printf("[ERROR] Failed to enqueue pipeline job for session %s: %v", sessionID, err)
			respondError(c, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to queue processing job"))
			return
		}

		if deps.ProgressTracker != nil {
			deps.ProgressTracker.UpdateProgress(sessionID, models.StatusQueued, 0, "Session queued")
		}

		c.JSON(http.StatusAccepted, types.SessionResponse{
			SessionID: sessionID,
			JobID:     job.ID,
			Status:    string(job.Status),
			Progress:  job.Progress,
			Message:   "Session queued for processing",
		})
	}
}

// GetStatus reports the job status for a session
// @Summary      Get session status
// @Description  Reports the queue status and progress of the pipeline job behind a session.
// @Tags         sessions
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} types.SessionResponse
// @Failure      404 {object} types.ErrorResponse "Unknown session"
// @Router       /api/v1/sessions/{id} [get]
func GetStatus(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")

		if deps.JobService == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Job service not available"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		job, err := deps.JobService.GetJobForSession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, jobs.ErrJobNotFound) {
				respondError(c, apperrors.NotFound("session", sessionID))
				return
			}
			respondError(c, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "Failed to look up session"))
			return
		}

		resp := types.SessionResponse{
			SessionID: sessionID,
			JobID:     job.ID,
			Status:    string(job.Status),
			Progress:  job.Progress,
		}
		if job.Error != "" {
			resp.Message = job.Error
		}

		c.JSON(http.StatusOK, resp)
	}
}

// GetTranscript returns the finished transcript for a session
// @Summary      Get session transcript
// @Description  Returns the stored speaker-labeled transcript for a completed session. While the
// @Description  session is still processing the endpoint responds 404; check the status endpoint first.
// @Tags         sessions
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} types.TranscriptResponse
// @Failure      404 {object} types.ErrorResponse "No transcript for this session"
// @Router       /api/v1/sessions/{id}/transcript [get]
func GetTranscript(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")

		if deps.TranscriptService == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Transcript service not available"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		transcript, err := deps.TranscriptService.GetTranscript(ctx, sessionID)
		if err != nil {
			respondError(c, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "Failed to load transcript"))
			return
		}
		if transcript == nil {
			respondError(c, apperrors.NotFound("transcript", sessionID))
			return
		}

		segments := make([]types.SegmentResponse, 0, len(transcript.Segments))
		for _, seg := range transcript.Segments {
			segments = append(segments, types.SegmentResponse{
				Start:        seg.Start,
				End:          seg.End,
				Text:         seg.Text,
				Speaker:      seg.Speaker,
				OverlapRatio: seg.OverlapRatio,
				Interpolated: seg.Interpolated,
			})
		}

		c.JSON(http.StatusOK, types.TranscriptResponse{
			SessionID:           transcript.SessionID,
			FullText:            transcript.FullText,
			Language:            transcript.Language,
			Duration:            transcript.Duration,
			SpeakerCount:        transcript.SpeakerCount,
			DiarizationDegraded: transcript.DiarizationDegraded,
			Segments:            segments,
		})
	}
}
