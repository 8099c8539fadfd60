package pipeline

import (
	"fmt"
)

// TranscriptionError reports a failed transcription stage. Transcription
// failure is always fatal to the pipeline.
type TranscriptionError struct {
	Retryable bool
	Cause     error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Cause)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Cause
}

// DiarizationError reports a failed diarization stage. When
// FallbackAvailable is true the pipeline continues with every segment
// labeled UNKNOWN instead of aborting.
type DiarizationError struct {
	FallbackAvailable bool
	Cause             error
}

func (e *DiarizationError) Error() string {
	return fmt.Sprintf("diarization failed: %v", e.Cause)
}

func (e *DiarizationError) Unwrap() error {
	return e.Cause
}

// ParallelProcessingError is the fatal outcome of the concurrent stage:
// transcription failed, and diarization may have failed alongside it. Both
// causes are carried so neither failure is lost.
type ParallelProcessingError struct {
	TranscriptionCause error
	DiarizationCause   error
}

func (e *ParallelProcessingError) Error() string {
	if e.DiarizationCause != nil {
		return fmt.Sprintf("parallel processing failed: transcription: %v; diarization: %v", e.TranscriptionCause, e.DiarizationCause)
	}
	return fmt.Sprintf("parallel processing failed: transcription: %v", e.TranscriptionCause)
}

func (e *ParallelProcessingError) Unwrap() error {
	return e.TranscriptionCause
}
