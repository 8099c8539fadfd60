package workers

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/meetscribe/scribe-api/internal/models"
	"github.com/meetscribe/scribe-api/internal/services/jobs"
	"github.com/meetscribe/scribe-api/internal/services/pipeline"
	"github.com/meetscribe/scribe-api/internal/services/progress"
	"github.com/meetscribe/scribe-api/internal/services/transcripts"
)

// PipelineProcessor processes pipeline run jobs: it drives one session
// through transcription, diarization, and alignment, then persists the
// resulting transcript.
type PipelineProcessor struct {
	jobService        jobs.Service
	pipeline          *pipeline.Pipeline
	transcriptService transcripts.Service
	tracker           *progress.Tracker
}

// NewPipelineProcessor creates a new pipeline processor
func NewPipelineProcessor(
	jobService jobs.Service,
	pipe *pipeline.Pipeline,
	transcriptService transcripts.Service,
	tracker *progress.Tracker,
) *PipelineProcessor {
	return &PipelineProcessor{
		jobService:        jobService,
		pipeline:          pipe,
		transcriptService: transcriptService,
		tracker:           tracker,
	}
}

// CanProcess returns true if this processor can handle the job type
func (p *PipelineProcessor) CanProcess(jobType models.JobType) bool {
	return jobType == models.JobTypePipelineRun
}

// ProcessJob runs the pipeline for the session named in the job payload.
func (p *PipelineProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	sessionID, ok := job.SessionID()
	if !ok || sessionID == "" {
		return models.NewSystemJobError("INVALID_PAYLOAD", "job payload is missing session_id", "", nil)
	}

	audioPath, ok := job.GetPayloadValue("audio_path")
	audioPathStr, isString := audioPath.(string)
	if !ok || !isString || audioPathStr == "" {
		return models.NewSystemJobError("INVALID_PAYLOAD", "job payload is missing audio_path", "", nil)
	}

	numSpeakers := 0
	if raw, ok := job.GetPayloadValue("num_speakers"); ok {
		// JSON numbers round-trip through the payload column as float64.
		switch v := raw.(type) {
		case float64:
			numSpeakers = int(v)
		case int:
			numSpeakers = v
		}
	}

	log.Printf("[DEBUG] Processing pipeline job %d for session %s", job.ID, sessionID)

	// Mirror session progress into the job row so polling clients that
	// only know the job ID see the same numbers.
	subID := p.tracker.Subscribe(sessionID, func(update models.ProgressUpdate) {
		if err := p.jobService.UpdateProgress(context.Background(), job.ID, update.Progress); err != nil {
			log.Printf("[WARN] Failed to mirror progress for job %d: %v", job.ID, err)
		}
	})
	defer p.tracker.Unsubscribe(sessionID, subID)

	result, err := p.pipeline.Process(ctx, sessionID, audioPathStr, numSpeakers)
	if err != nil {
		return p.classifyPipelineError(sessionID, err)
	}

	transcript := &models.Transcript{
		SessionID:           sessionID,
		FullText:            result.FullText,
		Language:            result.Language,
		Duration:            result.DurationSeconds,
		SpeakerCount:        countSpeakers(result.AlignedSegments),
		DiarizationDegraded: result.DiarizationDegraded,
		Segments:            models.AlignedSegmentList(result.AlignedSegments),
	}

	if err := p.transcriptService.SaveTranscript(ctx, transcript); err != nil {
		p.tracker.UpdateProgress(sessionID, models.StatusFailed, 95, "Failed to save transcript",
			progress.WithError(err.Error()))
		return models.NewSystemJobError("SAVE_FAILED",
			fmt.Sprintf("failed to save transcript for session %s", sessionID), err.Error(), err)
	}

	jobResult := models.JobResult{
		"session_id":           sessionID,
		"segments":             len(result.AlignedSegments),
		"speaker_count":        transcript.SpeakerCount,
		"language":             result.Language,
		"diarization_degraded": result.DiarizationDegraded,
	}

	if err := p.jobService.CompleteJob(ctx, job.ID, jobResult); err != nil {
		return fmt.Errorf("completing job %d: %w", job.ID, err)
	}

	message := "Transcript ready"
	if result.DiarizationDegraded {
		message = "Transcript ready (speaker labels unavailable)"
	}
	p.tracker.UpdateProgress(sessionID, models.StatusCompleted, 100, message)

	return nil
}

// classifyPipelineError maps a pipeline failure onto a structured job
// error so the retry and reporting machinery can tell a remote service
// failure from a system one.
func (p *PipelineProcessor) classifyPipelineError(sessionID string, err error) error {
	var parallelErr *pipeline.ParallelProcessingError
	if errors.As(err, &parallelErr) {
		details := ""
		if parallelErr.DiarizationCause != nil {
			details = fmt.Sprintf("diarization also failed: %v", parallelErr.DiarizationCause)
		}
		return models.NewTranscriptionJobError("TRANSCRIPTION_FAILED",
			fmt.Sprintf("transcription failed for session %s: %v", sessionID, parallelErr.TranscriptionCause),
			details, err)
	}

	return models.NewSystemJobError("PIPELINE_FAILED",
		fmt.Sprintf("pipeline failed for session %s", sessionID), err.Error(), err)
}

// countSpeakers counts the distinct labeled speakers in a segment list.
func countSpeakers(segments []models.AlignedSegment) int {
	speakers := make(map[string]struct{})
	for _, seg := range segments {
		if seg.Speaker != models.SpeakerUnknown {
			speakers[seg.Speaker] = struct{}{}
		}
	}
	return len(speakers)
}
