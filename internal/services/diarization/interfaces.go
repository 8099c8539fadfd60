package diarization

import (
	"context"

	"github.com/meetscribe/scribe-api/internal/models"
)

// Service defines the interface for the remote speaker diarization service
type Service interface {
	// Diarize partitions audio into speaker-attributed turns. numSpeakers
	// of 0 lets the service auto-detect the speaker count.
	Diarize(ctx context.Context, audioPath string, numSpeakers int) ([]models.DiarizationTurn, error)
}
