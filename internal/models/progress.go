package models

import "time"

// ProcessingStatus describes where a session is in its lifecycle.
type ProcessingStatus string

const (
	StatusQueued     ProcessingStatus = "queued"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// ProgressUpdate is the in-memory progress record for one pipeline session.
// It is created on the first update for a session and mutated in place
// afterwards; CreatedAt is preserved across updates.
type ProgressUpdate struct {
	SessionID                 string           `json:"session_id"`
	Status                    ProcessingStatus `json:"status"`
	Progress                  int              `json:"progress"` // 0-100
	Message                   string           `json:"message"`
	Error                     string           `json:"error,omitempty"`
	EstimatedSecondsRemaining *int             `json:"estimated_seconds_remaining,omitempty"`
	CreatedAt                 time.Time        `json:"created_at"`
	UpdatedAt                 time.Time        `json:"updated_at"`
}
