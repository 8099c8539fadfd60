package transcripts

import (
	"context"

	"github.com/meetscribe/scribe-api/internal/models"
)

// Service defines the business logic interface for stored transcripts
type Service interface {
	// GetTranscript retrieves a transcript by session ID
	GetTranscript(ctx context.Context, sessionID string) (*models.Transcript, error)

	// SaveTranscript saves a new transcript or updates an existing one
	SaveTranscript(ctx context.Context, transcript *models.Transcript) error

	// DeleteTranscript removes a transcript by session ID
	DeleteTranscript(ctx context.Context, sessionID string) error

	// ExistsTranscript checks if a transcript exists for a session
	ExistsTranscript(ctx context.Context, sessionID string) (bool, error)
}

// Repository defines the data access interface for transcripts
type Repository interface {
	Create(ctx context.Context, transcript *models.Transcript) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.Transcript, error)
	Update(ctx context.Context, transcript *models.Transcript) error
	Delete(ctx context.Context, sessionID string) error
	Exists(ctx context.Context, sessionID string) (bool, error)
}
