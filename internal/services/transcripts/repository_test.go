package transcripts

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

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(&models.Transcript{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func testTranscript(sessionID string) *models.Transcript {
	return &models.Transcript{
		SessionID:    sessionID,
		FullText:     "Good morning everyone. Thanks for joining.",
		Language:     "en",
		Duration:     10,
		SpeakerCount: 2,
		Segments: models.AlignedSegmentList{
			{Start: 0, End: 5, Text: "Good morning everyone.", Speaker: "SPEAKER_00", OverlapRatio: 1.0},
			{Start: 5, End: 10, Text: "Thanks for joining.", Speaker: "SPEAKER_01", OverlapRatio: 1.0},
		},
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testTranscript("session-1")))

	got, err := repo.GetBySessionID(ctx, "session-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "session-1", got.SessionID)
	assert.Equal(t, "en", got.Language)
	require.Len(t, got.Segments, 2)
	assert.Equal(t, "SPEAKER_00", got.Segments[0].Speaker)
}

func TestRepository_GetMissingReturnsNil(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	got, err := repo.GetBySessionID(context.Background(), "no-such-session")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepository_CreateNilTranscript(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	err := repo.Create(context.Background(), nil)
	assert.Error(t, err)
}

func TestRepository_Delete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testTranscript("session-1")))
	require.NoError(t, repo.Delete(ctx, "session-1"))

	got, err := repo.GetBySessionID(ctx, "session-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepository_DeleteMissing(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	err := repo.Delete(context.Background(), "no-such-session")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepository_Exists(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	exists, err := repo.Exists(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Create(ctx, testTranscript("session-1")))

	exists, err = repo.Exists(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestService_SaveTranscript_CreatesThenUpdates(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(NewRepository(db))
	ctx := context.Background()

	first := testTranscript("session-1")
	require.NoError(t, svc.SaveTranscript(ctx, first))

	updated := testTranscript("session-1")
	updated.FullText = "Revised text."
	updated.DiarizationDegraded = true
	updated.Segments = models.AlignedSegmentList{
		{Start: 0, End: 10, Text: "Revised text.", Speaker: models.SpeakerUnknown},
	}
	require.NoError(t, svc.SaveTranscript(ctx, updated))

	got, err := svc.GetTranscript(ctx, "session-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Revised text.", got.FullText)
	assert.True(t, got.DiarizationDegraded)
	require.Len(t, got.Segments, 1)
	assert.Equal(t, models.SpeakerUnknown, got.Segments[0].Speaker)

	// Update must not create a second row.
	var count int64
	require.NoError(t, db.Model(&models.Transcript{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestService_SaveTranscript_Nil(t *testing.T) {
	svc := NewService(NewRepository(setupTestDB(t)))

	err := svc.SaveTranscript(context.Background(), nil)
	assert.Error(t, err)
}
