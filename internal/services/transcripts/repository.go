package transcripts

import (
	"context"
	"errors"

	"github.com/meetscribe/scribe-api/internal/models"
	"gorm.io/gorm"
)

// repository implements the Repository interface using GORM
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new transcript repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create creates a new transcript
func (r *repository) Create(ctx context.Context, transcript *models.Transcript) error {
	if transcript == nil {
		return errors.New("transcript cannot be nil")
	}

	result := r.db.WithContext(ctx).Create(transcript)
	if result.Error != nil {
		return result.Error
	}

	return nil
}

// GetBySessionID retrieves a transcript by session ID
func (r *repository) GetBySessionID(ctx context.Context, sessionID string) (*models.Transcript, error) {
	var transcript models.Transcript

	result := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&transcript)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return &transcript, nil
}

// Update updates an existing transcript
func (r *repository) Update(ctx context.Context, transcript *models.Transcript) error {
	if transcript == nil {
		return errors.New("transcript cannot be nil")
	}

	result := r.db.WithContext(ctx).Save(transcript)
	if result.Error != nil {
		return result.Error
	}

	return nil
}

// Delete removes a transcript
func (r *repository) Delete(ctx context.Context, sessionID string) error {
	result := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.Transcript{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// Exists checks if a transcript exists for a session
func (r *repository) Exists(ctx context.Context, sessionID string) (bool, error) {
	var count int64

	result := r.db.WithContext(ctx).Model(&models.Transcript{}).Where("session_id = ?", sessionID).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}

	return count > 0, nil
}
