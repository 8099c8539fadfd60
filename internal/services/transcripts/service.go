package transcripts

import (
	"context"
	"errors"

	"github.com/meetscribe/scribe-api/internal/models"
	"gorm.io/gorm"
)

// service implements the Service interface
type service struct {
	repo Repository
}

// NewService creates a new transcript service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// GetTranscript retrieves a transcript by session ID
func (s *service) GetTranscript(ctx context.Context, sessionID string) (*models.Transcript, error) {
	return s.repo.GetBySessionID(ctx, sessionID)
}

// SaveTranscript saves a new transcript or updates an existing one
func (s *service) SaveTranscript(ctx context.Context, transcript *models.Transcript) error {
	if transcript == nil {
		return errors.New("transcript cannot be nil")
	}

	existing, err := s.repo.GetBySessionID(ctx, transcript.SessionID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if existing != nil {
		existing.FullText = transcript.FullText
		existing.Language = transcript.Language
		existing.Duration = transcript.Duration
		existing.SpeakerCount = transcript.SpeakerCount
		existing.DiarizationDegraded = transcript.DiarizationDegraded
		existing.Segments = transcript.Segments
		return s.repo.Update(ctx, existing)
	}

	return s.repo.Create(ctx, transcript)
}

// DeleteTranscript removes a transcript by session ID
func (s *service) DeleteTranscript(ctx context.Context, sessionID string) error {
	return s.repo.Delete(ctx, sessionID)
}

// ExistsTranscript checks if a transcript exists for a session
func (s *service) ExistsTranscript(ctx context.Context, sessionID string) (bool, error) {
	return s.repo.Exists(ctx, sessionID)
}
