package types

// CreateSessionRequest is the payload for starting a new processing session
type CreateSessionRequest struct {
	AudioPath   string `json:"audio_path" binding:"required"`
	NumSpeakers int    `json:"num_speakers"`
	Priority    int    `json:"priority"`
}
