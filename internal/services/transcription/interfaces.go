package transcription

import (
	"context"

	"github.com/meetscribe/scribe-api/internal/models"
)

// Result is the output of one transcription call.
type Result struct {
	Segments        []models.TranscriptSegment
	FullText        string
	Language        string
	DurationSeconds float64
}

// Service defines the interface for the remote speech-to-text service
type Service interface {
	// Transcribe sends audio for transcription and returns timed segments
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}
