package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// SpeakerUnknown is the label assigned to segments that could not be
// attributed to a diarization turn.
const SpeakerUnknown = "UNKNOWN"

// TranscriptSegment is one timed span of transcribed text as returned by
// the transcription service. Segments are ordered and non-overlapping.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Duration returns the segment length in seconds.
func (s TranscriptSegment) Duration() float64 {
	return s.End - s.Start
}

// DiarizationTurn is one contiguous time range attributed to a single
// speaker. Turns for different speakers may interleave, but one speaker's
// turns never overlap each other.
type DiarizationTurn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// AlignedSegment is a transcript segment with a speaker attribution. The
// alignment engine produces exactly one AlignedSegment per input
// TranscriptSegment, preserving order, timing and text.
type AlignedSegment struct {
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	Speaker      string  `json:"speaker"`
	OverlapRatio float64 `json:"overlap_ratio"`
	Interpolated bool    `json:"interpolated,omitempty"`
}

// AlignedSegmentList is a JSON-encoded list of aligned segments, stored as
// a single column on the transcript row.
type AlignedSegmentList []AlignedSegment

// Value implements driver.Valuer interface for AlignedSegmentList
func (l AlignedSegmentList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner interface for AlignedSegmentList
func (l *AlignedSegmentList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, l)
}
