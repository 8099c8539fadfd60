package models

import (
	"time"

	"gorm.io/gorm"
)

// Transcript represents a completed, speaker-labeled transcript for one
// pipeline session.
type Transcript struct {
	ID                  uint               `gorm:"primarykey" json:"id"`
	SessionID           string             `gorm:"uniqueIndex" json:"session_id"`
	FullText            string             `gorm:"type:text" json:"full_text"`
	Language            string             `json:"language"`
	Duration            float64            `json:"duration"`
	SpeakerCount        int                `json:"speaker_count"`
	DiarizationDegraded bool               `json:"diarization_degraded"`
	Segments            AlignedSegmentList `gorm:"type:json" json:"segments"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
	DeletedAt           gorm.DeletedAt     `gorm:"index" json:"-"`
}

// TableName specifies the table name for Transcript
func (Transcript) TableName() string {
	return "transcripts"
}
