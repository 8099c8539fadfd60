package types

// ErrorResponse is the standard error payload
type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionResponse describes one created or queried processing session
type SessionResponse struct {
	SessionID string `json:"session_id"`
	JobID     uint   `json:"job_id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Message   string `json:"message,omitempty"`
}

// SegmentResponse is one speaker-labeled transcript segment
type SegmentResponse struct {
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	Speaker      string  `json:"speaker"`
	OverlapRatio float64 `json:"overlap_ratio"`
	Interpolated bool    `json:"interpolated,omitempty"`
}

// TranscriptResponse is the full stored transcript for a session
type TranscriptResponse struct {
	SessionID           string            `json:"session_id"`
	FullText            string            `json:"full_text"`
	Language            string            `json:"language,omitempty"`
	Duration            float64           `json:"duration"`
	SpeakerCount        int               `json:"speaker_count"`
	DiarizationDegraded bool              `json:"diarization_degraded"`
	Segments            []SegmentResponse `json:"segments"`
}

// ProgressResponse reports the live progress of one session
type ProgressResponse struct {
	SessionID                 string `json:"session_id"`
	Status                    string `json:"status"`
	Progress                  int    `json:"progress"`
	Message                   string `json:"message,omitempty"`
	Error                     string `json:"error,omitempty"`
	EstimatedSecondsRemaining *int   `json:"estimated_seconds_remaining,omitempty"`
	UpdatedAt                 string `json:"updated_at"`
}
