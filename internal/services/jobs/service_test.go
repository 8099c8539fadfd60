package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/meetscribe/scribe-api/internal/models"
)

func setupTestService(t *testing.T) Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(&models.Job{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return NewService(NewRepository(db))
}

func pipelinePayload(sessionID string) models.JobPayload {
	return models.JobPayload{
		"session_id":   sessionID,
		"audio_path":   "/data/audio/" + sessionID + ".wav",
		"num_speakers": 2,
	}
}

func TestEnqueueJob(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	job, err := svc.EnqueueJob(ctx, models.JobTypePipelineRun, pipelinePayload("session-1"))
	require.NoError(t, err)
	assert.NotZero(t, job.ID)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, DefaultMaxRetries, job.MaxRetries)

	sessionID, ok := job.SessionID()
	require.True(t, ok)
	assert.Equal(t, "session-1", sessionID)
}

func TestEnqueueUniqueJob_DeduplicatesActiveJobs(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	first, err := svc.EnqueueUniqueJob(ctx, models.JobTypePipelineRun, pipelinePayload("session-1"), "session_id")
	require.NoError(t, err)

	second, err := svc.EnqueueUniqueJob(ctx, models.JobTypePipelineRun, pipelinePayload("session-1"), "session_id")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "active job for the same session must be reused")

	// A different session gets its own job.
	other, err := svc.EnqueueUniqueJob(ctx, models.JobTypePipelineRun, pipelinePayload("session-2"), "session_id")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestEnqueueUniqueJob_AllowsNewJobAfterTerminal(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	first, err := svc.EnqueueUniqueJob(ctx, models.JobTypePipelineRun, pipelinePayload("session-1"), "session_id")
	require.NoError(t, err)

	claimed, err := svc.ClaimNextJob(ctx, "worker-1", []models.JobType{models.JobTypePipelineRun})
	require.NoError(t, err)
	require.NoError(t, svc.CompleteJob(ctx, claimed.ID, models.JobResult{"segments": 3}))

	second, err := svc.EnqueueUniqueJob(ctx, models.JobTypePipelineRun, pipelinePayload("session-1"), "session_id")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID, "completed job must not block a re-run")
}

func TestClaimNextJob_PriorityOrder(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	_, err := svc.EnqueueJob(ctx, models.JobTypePipelineRun, pipelinePayload("session-low"))
	require.NoError(t, err)
	high, err := svc.EnqueueJob(ctx, models.JobTypePipelineRun, pipelinePayload("session-high"), WithPriority(10))
	require.NoError(t, err)

	claimed, err := svc.ClaimNextJob(ctx, "worker-1", []models.JobType{models.JobTypePipelineRun})
	require.NoError(t, err)
	assert.Equal(t, high.ID, claimed.ID)
	assert.Equal(t, models.JobStatusProcessing, claimed.Status)
	assert.Equal(t, "worker-1", claimed.WorkerID)
}

func TestClaimNextJob_NoJobsAvailable(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.ClaimNextJob(context.Background(), "worker-1", []models.JobType{models.JobTypePipelineRun})
	assert.True(t, errors.Is(err, ErrNoJobsAvailable))
}

func TestFailJob_RetriesUntilPermanent(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	job, err := svc.EnqueueJob(ctx, models.JobTypePipelineRun, pipelinePayload("session-1"), WithMaxRetries(2))
	require.NoError(t, err)

	_, err = svc.ClaimNextJob(ctx, "worker-1", nil)
	require.NoError(t, err)
	require.NoError(t, svc.FailJob(ctx, job.ID, errors.New("transcription failed")))

	status, err := svc.GetJobStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, status, "first failure leaves a retry")

	// The failed job is claimable again; the second failure exhausts retries.
	_, err = svc.ClaimNextJob(ctx, "worker-1", nil)
	require.NoError(t, err)
	require.NoError(t, svc.FailJob(ctx, job.ID, errors.New("transcription failed again")))

	status, err = svc.GetJobStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPermanentlyFailed, status)

	_, err = svc.ClaimNextJob(ctx, "worker-1", nil)
	assert.True(t, errors.Is(err, ErrNoJobsAvailable), "permanently failed jobs must not be claimed")
}

func TestFailJobWithDetails_RecordsErrorType(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	job, err := svc.EnqueueJob(ctx, models.JobTypePipelineRun, pipelinePayload("session-1"))
	require.NoError(t, err)
	_, err = svc.ClaimNextJob(ctx, "worker-1", nil)
	require.NoError(t, err)

	require.NoError(t, svc.FailJobWithDetails(ctx, job.ID, models.ErrorTypeTranscription,
		"SERVICE_UNAVAILABLE", "transcription service returned status 503", ""))

	failed, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.ErrorTypeTranscription), failed.ErrorType)
	assert.Equal(t, "SERVICE_UNAVAILABLE", failed.ErrorCode)
	assert.Empty(t, failed.WorkerID)
}

func TestGetJobForSession(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	enqueued, err := svc.EnqueueJob(ctx, models.JobTypePipelineRun, pipelinePayload("session-1"))
	require.NoError(t, err)

	found, err := svc.GetJobForSession(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, enqueued.ID, found.ID)

	_, err = svc.GetJobForSession(ctx, "no-such-session")
	assert.True(t, errors.Is(err, ErrJobNotFound))
}

func TestUpdateProgress_OnlyWhileProcessing(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	job, err := svc.EnqueueJob(ctx, models.JobTypePipelineRun, pipelinePayload("session-1"))
	require.NoError(t, err)

	err = svc.UpdateProgress(ctx, job.ID, 50)
	assert.True(t, errors.Is(err, ErrJobNotFound), "pending jobs do not accept progress")

	_, err = svc.ClaimNextJob(ctx, "worker-1", nil)
	require.NoError(t, err)
	require.NoError(t, svc.UpdateProgress(ctx, job.ID, 50))

	updated, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, updated.Progress)
}

func TestRetryFailedJob(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	job, err := svc.EnqueueJob(ctx, models.JobTypePipelineRun, pipelinePayload("session-1"), WithMaxRetries(1))
	require.NoError(t, err)

	// A pending job cannot be manually retried.
	_, err = svc.RetryFailedJob(ctx, job.ID)
	assert.Error(t, err)

	_, err = svc.ClaimNextJob(ctx, "worker-1", nil)
	require.NoError(t, err)
	require.NoError(t, svc.FailJob(ctx, job.ID, errors.New("boom")))

	retried, err := svc.RetryFailedJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, retried.Status)
	assert.Zero(t, retried.Progress)
}

func TestCleanupOldJobs_InvalidRetention(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.CleanupOldJobs(context.Background(), 0)
	assert.Error(t, err)
}
