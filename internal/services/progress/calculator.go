// Package progress maps pipeline stages onto a single 0-100 percentage and
// tracks per-session progress for subscribers.
package progress

import (
	"fmt"
)

// Stage identifies one phase of the processing pipeline.
type Stage string

const (
	StageUploading       Stage = "uploading"
	StagePreprocessing   Stage = "preprocessing"
	StageTranscribing    Stage = "transcribing"
	StageDiarizing       Stage = "diarizing"
	StageGeneratingNotes Stage = "generating_notes"
	StageSaving          Stage = "saving"
)

// StageBand is the percentage band one stage occupies in overall progress.
type StageBand struct {
	Stage Stage
	Start int
	End   int
}

// defaultBands reflects the measured time share of each stage. Bands must
// be contiguous and span exactly [0,100].
var defaultBands = []StageBand{
	{StageUploading, 0, 5},
	{StagePreprocessing, 5, 15},
	{StageTranscribing, 15, 55},
	{StageDiarizing, 55, 85},
	{StageGeneratingNotes, 85, 95},
	{StageSaving, 95, 100},
}

// minimumSignalProgress is the progress floor below which elapsed time is
// too noisy to extrapolate a time-remaining estimate.
const minimumSignalProgress = 10

// Calculator converts (stage, fraction-within-stage) pairs into overall
// percentages using fixed per-stage weight bands.
type Calculator struct {
	bands map[Stage]StageBand
}

// NewCalculator creates a calculator with the default stage bands
func NewCalculator() *Calculator {
	calc, err := NewCalculatorWithBands(defaultBands)
	if err != nil {
		// The default table is a compile-time constant; a violation here is
		// a programming error.
		panic(err)
	}
	return calc
}

// NewCalculatorWithBands creates a calculator with a custom band table.
// The bands must be contiguous and span exactly [0,100].
func NewCalculatorWithBands(bands []StageBand) (*Calculator, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("no stage bands configured")
	}
	if bands[0].Start != 0 {
		return nil, fmt.Errorf("stage bands must start at 0, got %d", bands[0].Start)
	}
	if bands[len(bands)-1].End != 100 {
		return nil, fmt.Errorf("stage bands must end at 100, got %d", bands[len(bands)-1].End)
	}

	byStage := make(map[Stage]StageBand, len(bands))
	for i, band := range bands {
		if band.End <= band.Start {
			return nil, fmt.Errorf("stage %s has empty band [%d,%d]", band.Stage, band.Start, band.End)
		}
		if i > 0 && band.Start != bands[i-1].End {
			return nil, fmt.Errorf("stage %s band starts at %d but previous stage ends at %d", band.Stage, band.Start, bands[i-1].End)
		}
		if _, exists := byStage[band.Stage]; exists {
			return nil, fmt.Errorf("duplicate stage band for %s", band.Stage)
		}
		byStage[band.Stage] = band
	}

	return &Calculator{bands: byStage}, nil
}

// CalculateProgress maps a fractional position within a stage to an overall
// percentage, truncated to an integer and clamped to [0,100].
func (c *Calculator) CalculateProgress(stage Stage, subProgress float64) (int, error) {
	band, ok := c.bands[stage]
	if !ok {
		return 0, fmt.Errorf("unknown pipeline stage: %s", stage)
	}
	if subProgress < 0 || subProgress > 1 {
		return 0, fmt.Errorf("sub-progress %v outside [0,1]", subProgress)
	}

	value := int(float64(band.Start) + float64(band.End-band.Start)*subProgress)
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	return value, nil
}

// EstimateTimeRemaining extrapolates seconds remaining from the progress
// rate so far. It returns nil when there is not enough signal (nothing
// elapsed, nothing done, or under the minimum progress floor) and 0 once
// progress reaches 100.
func (c *Calculator) EstimateTimeRemaining(currentProgress int, elapsedSeconds float64) *int {
	if elapsedSeconds <= 0 || currentProgress <= 0 || currentProgress < minimumSignalProgress {
		return nil
	}
	if currentProgress >= 100 {
		zero := 0
		return &zero
	}

	rate := float64(currentProgress) / elapsedSeconds
	remaining := int(float64(100-currentProgress) / rate)
	return &remaining
}

// HandleStageTransition returns the progress value to report when entering
// toStage. It never returns less than currentProgress, so observers see
// monotonically non-decreasing values even when stage-completion
// notifications arrive out of order.
func (c *Calculator) HandleStageTransition(fromStage, toStage Stage, currentProgress int) int {
	band, ok := c.bands[toStage]
	if !ok {
		return currentProgress
	}
	if band.Start > currentProgress {
		return band.Start
	}
	return currentProgress
}

// StageBand returns the configured band for a stage.
func (c *Calculator) StageBand(stage Stage) (StageBand, bool) {
	band, ok := c.bands[stage]
	return band, ok
}
