// Package pipeline runs audio through the remote transcription and
// diarization services concurrently and fuses their outputs into a single
// speaker-labeled transcript.
package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/meetscribe/scribe-api/internal/models"
	"github.com/meetscribe/scribe-api/internal/services/alignment"
	"github.com/meetscribe/scribe-api/internal/services/diarization"
	"github.com/meetscribe/scribe-api/internal/services/progress"
	"github.com/meetscribe/scribe-api/internal/services/transcription"
)

// ProcessResult is the final output of one pipeline run.
type ProcessResult struct {
	SessionID           string
	AlignedSegments     []models.AlignedSegment
	FullText            string
	Language            string
	DurationSeconds     float64
	DiarizationDegraded bool
}

// Pipeline orchestrates one session end to end: the concurrent remote
// stage, speaker alignment, and progress reporting.
type Pipeline struct {
	coordinator *StageCoordinator
	transcriber transcription.Service
	diarizer    diarization.Service
	aligner     *alignment.Engine
	tracker     *progress.Tracker
	calculator  *progress.Calculator
}

// NewPipeline creates a pipeline. The tracker may be nil when no caller is
// interested in progress.
func NewPipeline(
	coordinator *StageCoordinator,
	transcriber transcription.Service,
	diarizer diarization.Service,
	aligner *alignment.Engine,
	tracker *progress.Tracker,
	calculator *progress.Calculator,
) *Pipeline {
	return &Pipeline{
		coordinator: coordinator,
		transcriber: transcriber,
		diarizer:    diarizer,
		aligner:     aligner,
		tracker:     tracker,
		calculator:  calculator,
	}
}

// Process runs the full pipeline for one session. Transcription failure is
// fatal and returns an error with no segments; diarization failure
// degrades the result to UNKNOWN speakers with the degraded flag set.
func (p *Pipeline) Process(ctx context.Context, sessionID, audioPath string, numSpeakers int) (*ProcessResult, error) {
	started := time.Now()

	log.Printf("[DEBUG] Starting pipeline for session %s (audio: %s, speakers: %d)", sessionID, audioPath, numSpeakers)

	p.report(sessionID, models.StatusProcessing, p.transition(sessionID, progress.StagePreprocessing, progress.StageTranscribing),
		"Transcribing and diarizing audio", started)

	outcome, err := p.coordinator.RunStage(ctx,
		func(ctx context.Context) (*transcription.Result, error) {
			return p.transcriber.Transcribe(ctx, audioPath)
		},
		func(ctx context.Context) ([]models.DiarizationTurn, error) {
			return p.diarizer.Diarize(ctx, audioPath, numSpeakers)
		},
	)
	if err != nil {
		// Failure keeps the session's last progress value so subscribers
		// never observe it moving backwards.
		p.report(sessionID, models.StatusFailed, p.currentProgress(sessionID), "Transcription failed", started, progress.WithError(err.Error()))
		return nil, err
	}

	p.report(sessionID, models.StatusProcessing, p.transition(sessionID, progress.StageDiarizing, progress.StageGeneratingNotes),
		"Aligning speakers", started)

	aligned := p.aligner.Align(outcome.Transcription.Segments, outcome.Turns)
	if !outcome.DiarizationDegraded {
		aligned = p.aligner.InterpolateUnknownSpeakers(aligned)
	}

	result := &ProcessResult{
		SessionID:           sessionID,
		AlignedSegments:     aligned,
		FullText:            outcome.Transcription.FullText,
		Language:            outcome.Transcription.Language,
		DurationSeconds:     outcome.Transcription.DurationSeconds,
		DiarizationDegraded: outcome.DiarizationDegraded,
	}

	opts := []progress.UpdateOption{}
	message := "Alignment complete"
	if outcome.DiarizationDegraded {
		message = "Alignment complete (diarization unavailable)"
		opts = append(opts, progress.WithError(outcome.DiarizationErr.Error()))
	}
	p.report(sessionID, models.StatusProcessing, p.transition(sessionID, progress.StageGeneratingNotes, progress.StageSaving),
		message, started, opts...)

	log.Printf("[DEBUG] Pipeline completed for session %s (%d segments, degraded: %v, took %v)",
		sessionID, len(aligned), outcome.DiarizationDegraded, time.Since(started).Round(time.Millisecond))

	return result, nil
}

// transition computes the progress value for entering a stage, never going
// below the session's current value.
func (p *Pipeline) transition(sessionID string, from, to progress.Stage) int {
	return p.calculator.HandleStageTransition(from, to, p.currentProgress(sessionID))
}

// currentProgress returns the session's last reported progress, or 0 when
// nothing has been reported yet.
func (p *Pipeline) currentProgress(sessionID string) int {
	if p.tracker != nil {
		if update, ok := p.tracker.GetProgress(sessionID); ok {
			return update.Progress
		}
	}
	return 0
}

// report publishes a progress update with a time-remaining estimate.
func (p *Pipeline) report(sessionID string, status models.ProcessingStatus, pct int, message string, started time.Time, opts ...progress.UpdateOption) {
	if p.tracker == nil {
		return
	}

	if eta := p.calculator.EstimateTimeRemaining(pct, time.Since(started).Seconds()); eta != nil {
		opts = append(opts, progress.WithETA(eta))
	}
	p.tracker.UpdateProgress(sessionID, status, pct, message, opts...)
}
