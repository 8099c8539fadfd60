package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/scribe-api/internal/models"
)

func TestTracker_UpdateAndGet(t *testing.T) {
	tracker := NewTracker(TrackerConfig{})

	_, ok := tracker.GetProgress("missing")
	assert.False(t, ok)

	tracker.UpdateProgress("session-1", models.StatusProcessing, 35, "Transcribing audio")

	update, ok := tracker.GetProgress("session-1")
	require.True(t, ok)
	assert.Equal(t, "session-1", update.SessionID)
	assert.Equal(t, models.StatusProcessing, update.Status)
	assert.Equal(t, 35, update.Progress)
	assert.Equal(t, "Transcribing audio", update.Message)
	assert.False(t, update.CreatedAt.IsZero())
}

func TestTracker_UpdatePreservesCreatedAt(t *testing.T) {
	tracker := NewTracker(TrackerConfig{})

	tracker.UpdateProgress("session-1", models.StatusQueued, 0, "Queued")
	first, ok := tracker.GetProgress("session-1")
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)
	tracker.UpdateProgress("session-1", models.StatusProcessing, 20, "Preprocessing")
	second, ok := tracker.GetProgress("session-1")
	require.True(t, ok)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt) || second.UpdatedAt.Equal(first.UpdatedAt))
	assert.Equal(t, 20, second.Progress)
}

func TestTracker_SubscribeReceivesUpdates(t *testing.T) {
	tracker := NewTracker(TrackerConfig{})

	var mu sync.Mutex
	var received []models.ProgressUpdate

	tracker.Subscribe("session-1", func(u models.ProgressUpdate) {
		mu.Lock()
		received = append(received, u)
		mu.Unlock()
	})

	tracker.UpdateProgress("session-1", models.StatusProcessing, 15, "Transcribing")
	tracker.UpdateProgress("session-1", models.StatusProcessing, 55, "Diarizing")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, 15, received[0].Progress)
	assert.Equal(t, 55, received[1].Progress)
}

func TestTracker_SubscribeReplaysCurrentValue(t *testing.T) {
	tracker := NewTracker(TrackerConfig{})

	tracker.UpdateProgress("session-1", models.StatusProcessing, 40, "Transcribing")

	var mu sync.Mutex
	var received []models.ProgressUpdate
	tracker.Subscribe("session-1", func(u models.ProgressUpdate) {
		mu.Lock()
		received = append(received, u)
		mu.Unlock()
	})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1, "existing value should be delivered on subscribe")
	assert.Equal(t, 40, received[0].Progress)
}

func TestTracker_Unsubscribe(t *testing.T) {
	tracker := NewTracker(TrackerConfig{})

	var mu sync.Mutex
	count := 0
	id := tracker.Subscribe("session-1", func(u models.ProgressUpdate) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	tracker.UpdateProgress("session-1", models.StatusProcessing, 10, "Uploading")
	tracker.Unsubscribe("session-1", id)
	tracker.UpdateProgress("session-1", models.StatusProcessing, 20, "Preprocessing")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestTracker_PanickingSubscriberIsRemoved(t *testing.T) {
	tracker := NewTracker(TrackerConfig{})

	var mu sync.Mutex
	healthyCalls := 0
	panicCalls := 0

	tracker.Subscribe("session-1", func(u models.ProgressUpdate) {
		mu.Lock()
		panicCalls++
		mu.Unlock()
		panic("subscriber bug")
	})
	tracker.Subscribe("session-1", func(u models.ProgressUpdate) {
		mu.Lock()
		healthyCalls++
		mu.Unlock()
	})

	tracker.UpdateProgress("session-1", models.StatusProcessing, 30, "Transcribing")
	tracker.UpdateProgress("session-1", models.StatusProcessing, 60, "Diarizing")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, panicCalls, "panicking subscriber should be dropped after first delivery")
	assert.Equal(t, 2, healthyCalls, "healthy subscriber should keep receiving updates")
}

func TestTracker_WithErrorAndETA(t *testing.T) {
	tracker := NewTracker(TrackerConfig{})

	eta := 90
	tracker.UpdateProgress("session-1", models.StatusFailed, 55, "Diarization unavailable",
		WithError("diarization: server_error"), WithETA(&eta))

	update, ok := tracker.GetProgress("session-1")
	require.True(t, ok)
	assert.Equal(t, "diarization: server_error", update.Error)
	require.NotNil(t, update.EstimatedSecondsRemaining)
	assert.Equal(t, 90, *update.EstimatedSecondsRemaining)
}

func TestTracker_Remove(t *testing.T) {
	tracker := NewTracker(TrackerConfig{})

	tracker.UpdateProgress("session-1", models.StatusCompleted, 100, "Done")
	tracker.Remove("session-1")

	_, ok := tracker.GetProgress("session-1")
	assert.False(t, ok)
}

func TestTracker_SweepExpiresIdleSessions(t *testing.T) {
	tracker := NewTracker(TrackerConfig{SessionTTL: 10 * time.Millisecond, SweepInterval: 5 * time.Millisecond})

	tracker.UpdateProgress("stale", models.StatusProcessing, 50, "Transcribing")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tracker.Start(ctx)
	defer tracker.Shutdown()

	require.Eventually(t, func() bool {
		_, ok := tracker.GetProgress("stale")
		return !ok
	}, time.Second, 5*time.Millisecond, "idle session should be swept after TTL")
}

func TestTracker_ConcurrentSessions(t *testing.T) {
	tracker := NewTracker(TrackerConfig{})

	var wg sync.WaitGroup
	sessions := []string{"a", "b", "c", "d"}
	for _, id := range sessions {
		wg.Add(1)
		go func(sessionID string) {
			defer wg.Done()
			for p := 0; p <= 100; p += 10 {
				tracker.UpdateProgress(sessionID, models.StatusProcessing, p, "working")
			}
		}(id)
	}
	wg.Wait()

	for _, id := range sessions {
		update, ok := tracker.GetProgress(id)
		require.True(t, ok)
		assert.Equal(t, 100, update.Progress)
	}
}

func TestTracker_SubscribeReplayNeverGoesBackwards(t *testing.T) {
	tracker := NewTracker(TrackerConfig{})
	tracker.UpdateProgress("session-1", models.StatusProcessing, 10, "starting")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := 11; p <= 100; p++ {
			tracker.UpdateProgress("session-1", models.StatusProcessing, p, "working")
		}
	}()

	// Subscribing while updates are in flight: the replay of the snapshot
	// read at subscribe time must never arrive after a newer update.
	var mu sync.Mutex
	var seen []int
	tracker.Subscribe("session-1", func(u models.ProgressUpdate) {
		mu.Lock()
		seen = append(seen, u.Progress)
		mu.Unlock()
	})

	<-done

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1], "delivery went backwards: %v", seen)
	}
}
