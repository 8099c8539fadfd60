// Package alignment merges transcript segments and diarization turns into
// speaker-labeled segments.
package alignment

import (
	"github.com/meetscribe/scribe-api/internal/models"
)

const (
	// DefaultOverlapThreshold is the minimum fraction of a segment that a
	// turn must cover for its speaker to be assigned.
	DefaultOverlapThreshold = 0.3

	// DefaultMaxGapSeconds caps how far the nearest-turn fallback will
	// reach when a segment overlaps no turn at all.
	DefaultMaxGapSeconds = 2.0
)

// Config holds configuration for the alignment engine
type Config struct {
	OverlapThreshold   float64 // Default: 0.3
	UseNearestFallback bool
	MaxGapSeconds      float64 // Default: 2.0
}

// Engine assigns a speaker to each transcript segment by matching it
// against diarization turns. The output always has exactly one aligned
// segment per input segment, in the same order, with timing and text
// preserved.
type Engine struct {
	config Config
}

// NewEngine creates an alignment engine
func NewEngine(cfg Config) *Engine {
	if cfg.OverlapThreshold <= 0 {
		cfg.OverlapThreshold = DefaultOverlapThreshold
	}
	if cfg.MaxGapSeconds <= 0 {
		cfg.MaxGapSeconds = DefaultMaxGapSeconds
	}
	return &Engine{config: cfg}
}

// Align labels each segment with the speaker of the turn that covers the
// largest share of it. Ties are broken by earliest turn start. Segments
// whose best overlap falls below the threshold are labeled UNKNOWN; when
// the nearest fallback is enabled, a segment with no overlapping turn at
// all may instead take the speaker of the closest turn within the gap cap.
func (e *Engine) Align(segments []models.TranscriptSegment, turns []models.DiarizationTurn) []models.AlignedSegment {
	aligned := make([]models.AlignedSegment, 0, len(segments))

	for _, seg := range segments {
		aligned = append(aligned, e.alignSegment(seg, turns))
	}

	return aligned
}

// alignSegment attributes a single segment.
func (e *Engine) alignSegment(seg models.TranscriptSegment, turns []models.DiarizationTurn) models.AlignedSegment {
	result := models.AlignedSegment{
		Start:   seg.Start,
		End:     seg.End,
		Text:    seg.Text,
		Speaker: models.SpeakerUnknown,
	}

	bestIdx := -1
	bestOverlap := 0.0

	for i, turn := range turns {
		overlap := overlapSeconds(seg, turn)
		if overlap <= 0 {
			continue
		}
		if overlap > bestOverlap || (overlap == bestOverlap && bestIdx >= 0 && turn.Start < turns[bestIdx].Start) {
			bestIdx = i
			bestOverlap = overlap
		}
	}

	if bestIdx >= 0 {
		duration := seg.Duration()
		if duration > 0 {
			ratio := bestOverlap / duration
			if ratio > 1 {
				ratio = 1
			}
			if ratio >= e.config.OverlapThreshold {
				result.Speaker = turns[bestIdx].Speaker
				result.OverlapRatio = ratio
			}
		}
		return result
	}

	// No turn overlaps this segment at all.
	if e.config.UseNearestFallback {
		if speaker, ok := e.nearestSpeaker(seg, turns); ok {
			result.Speaker = speaker
		}
	}

	return result
}

// nearestSpeaker finds the turn with the smallest time gap to the segment,
// if that gap is within the configured cap.
func (e *Engine) nearestSpeaker(seg models.TranscriptSegment, turns []models.DiarizationTurn) (string, bool) {
	bestIdx := -1
	bestGap := 0.0

	for i, turn := range turns {
		gap := gapSeconds(seg, turn)
		if bestIdx < 0 || gap < bestGap || (gap == bestGap && turn.Start < turns[bestIdx].Start) {
			bestIdx = i
			bestGap = gap
		}
	}

	if bestIdx < 0 || bestGap > e.config.MaxGapSeconds {
		return "", false
	}
	return turns[bestIdx].Speaker, true
}

// InterpolateUnknownSpeakers relabels interior runs of consecutive UNKNOWN
// segments when the known speakers on both sides of the run agree. Runs
// whose bounding speakers differ, and runs touching either end of the
// list, are left UNKNOWN: without agreement on both sides there is no
// deterministic attribution, so none is invented.
func (e *Engine) InterpolateUnknownSpeakers(segments []models.AlignedSegment) []models.AlignedSegment {
	i := 0
	for i < len(segments) {
		if segments[i].Speaker != models.SpeakerUnknown {
			i++
			continue
		}

		// Find the end of this UNKNOWN run.
		j := i
		for j < len(segments) && segments[j].Speaker == models.SpeakerUnknown {
			j++
		}

		// Interior run with matching bounds on both sides.
		if i > 0 && j < len(segments) && segments[i-1].Speaker == segments[j].Speaker {
			for k := i; k < j; k++ {
				segments[k].Speaker = segments[i-1].Speaker
				segments[k].Interpolated = true
			}
		}

		i = j
	}

	return segments
}

// overlapSeconds returns how many seconds of the segment the turn covers.
func overlapSeconds(seg models.TranscriptSegment, turn models.DiarizationTurn) float64 {
	start := seg.Start
	if turn.Start > start {
		start = turn.Start
	}
	end := seg.End
	if turn.End < end {
		end = turn.End
	}
	if end <= start {
		return 0
	}
	return end - start
}

// gapSeconds returns the time distance between a segment and a
// non-overlapping turn. Overlapping pairs have a gap of zero.
func gapSeconds(seg models.TranscriptSegment, turn models.DiarizationTurn) float64 {
	if turn.End < seg.Start {
		return seg.Start - turn.End
	}
	if turn.Start > seg.End {
		return turn.Start - seg.End
	}
	return 0
}
