package types

import (
	"github.com/meetscribe/scribe-api/internal/database"
	"github.com/meetscribe/scribe-api/internal/services/jobs"
	"github.com/meetscribe/scribe-api/internal/services/progress"
	"github.com/meetscribe/scribe-api/internal/services/transcripts"
	"github.com/meetscribe/scribe-api/internal/services/workers"
)

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB                *database.DB
	JobService        jobs.Service
	TranscriptService transcripts.Service
	ProgressTracker   *progress.Tracker
	WorkerPool        *workers.WorkerPool
}
