package progress

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/meetscribe/scribe-api/internal/models"
)

const (
	// DefaultSessionTTL is how long a session survives without updates
	// before the sweeper removes it.
	DefaultSessionTTL = time.Hour

	// DefaultSweepInterval is how often the sweeper checks for expired
	// sessions.
	DefaultSweepInterval = 5 * time.Minute
)

// Callback receives progress updates for a subscribed session. Callbacks
// run outside the session lock, deliveries to one callback are serialized
// and never go backwards, and a callback that panics is dropped from the
// subscriber set.
type Callback func(update models.ProgressUpdate)

// TrackerConfig holds configuration for the tracker
type TrackerConfig struct {
	SessionTTL    time.Duration // Default: 1h
	SweepInterval time.Duration // Default: 5m
}

// sessionEntry holds the state for one session. Each entry has its own
// lock so a busy session never contends with the others. seq increments
// with every stored update so deliveries can be ordered per subscriber.
type sessionEntry struct {
	mu          sync.Mutex
	update      models.ProgressUpdate
	hasUpdate   bool
	seq         uint64
	subscribers map[int64]*subscriber
}

// subscriber serializes deliveries to one callback. lastSeq records the
// newest update delivered so far; anything older is dropped, which keeps
// the observed sequence non-decreasing even when a Subscribe replay races
// a concurrent update.
type subscriber struct {
	cb      Callback
	mu      sync.Mutex
	lastSeq uint64
}

// Tracker is a concurrency-safe store of per-session progress with pub/sub
// delivery and TTL-based expiry.
type Tracker struct {
	config TrackerConfig

	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	subSeq int64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTracker creates a progress tracker
func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	return &Tracker{
		config:   cfg,
		sessions: make(map[string]*sessionEntry),
	}
}

// UpdateOption customizes a progress update
type UpdateOption func(*models.ProgressUpdate)

// WithError attaches an error message to the update
func WithError(message string) UpdateOption {
	return func(u *models.ProgressUpdate) {
		u.Error = message
	}
}

// WithETA attaches an estimated-seconds-remaining value to the update
func WithETA(seconds *int) UpdateOption {
	return func(u *models.ProgressUpdate) {
		u.EstimatedSecondsRemaining = seconds
	}
}

// UpdateProgress stores a new progress value for the session and notifies
// subscribers. CreatedAt is preserved across updates for the same session.
// Subscriber callbacks are invoked after the session lock is released, so a
// slow subscriber cannot block the update path.
func (t *Tracker) UpdateProgress(sessionID string, status models.ProcessingStatus, progress int, message string, opts ...UpdateOption) {
	entry := t.getOrCreateEntry(sessionID)

	now := time.Now().UTC()
	update := models.ProgressUpdate{
		SessionID: sessionID,
		Status:    status,
		Progress:  progress,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(&update)
	}

	entry.mu.Lock()
	if entry.hasUpdate {
		update.CreatedAt = entry.update.CreatedAt
	}
	entry.update = update
	entry.hasUpdate = true
	entry.seq++
	seq := entry.seq

	// Snapshot subscribers so delivery happens outside the lock.
	subs := make(map[int64]*subscriber, len(entry.subscribers))
	for id, sub := range entry.subscribers {
		subs[id] = sub
	}
	entry.mu.Unlock()

	for id, sub := range subs {
		t.deliver(entry, id, sub, update, seq)
	}
}

// deliver invokes one callback under the subscriber's lock, removing the
// subscriber from the set if it panics. Updates older than the newest one
// already delivered are dropped.
func (t *Tracker) deliver(entry *sessionEntry, id int64, sub *subscriber, update models.ProgressUpdate, seq uint64) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if seq <= sub.lastSeq {
		return
	}
	sub.lastSeq = seq

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WARN] Progress subscriber %d panicked, removing: %v", id, r)
			entry.mu.Lock()
			delete(entry.subscribers, id)
			entry.mu.Unlock()
		}
	}()
	sub.cb(update)
}

// Subscribe registers a callback for a session and returns a subscription
// ID for Unsubscribe. If the session already has a progress value, the
// callback is invoked immediately with it.
func (t *Tracker) Subscribe(sessionID string, cb Callback) int64 {
	entry := t.getOrCreateEntry(sessionID)

	t.mu.Lock()
	t.subSeq++
	id := t.subSeq
	t.mu.Unlock()

	sub := &subscriber{cb: cb}

	entry.mu.Lock()
	entry.subscribers[id] = sub
	current := entry.update
	seq := entry.seq
	replay := entry.hasUpdate
	entry.mu.Unlock()

	// The replay carries the sequence number it was read at, so a newer
	// update delivered concurrently supersedes it instead of being
	// overwritten by stale state.
	if replay {
		t.deliver(entry, id, sub, current, seq)
	}

	return id
}

// Unsubscribe removes a subscription from a session
func (t *Tracker) Unsubscribe(sessionID string, id int64) {
	t.mu.RLock()
	entry, ok := t.sessions[sessionID]
	t.mu.RUnlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	delete(entry.subscribers, id)
	entry.mu.Unlock()
}

// GetProgress returns the current progress for a session. The existence
// check is lock-free on the session entry so polling callers stay cheap.
func (t *Tracker) GetProgress(sessionID string) (models.ProgressUpdate, bool) {
	t.mu.RLock()
	entry, ok := t.sessions[sessionID]
	t.mu.RUnlock()
	if !ok {
		return models.ProgressUpdate{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.hasUpdate {
		return models.ProgressUpdate{}, false
	}
	return entry.update, true
}

// Remove deletes a session and its subscriber set
func (t *Tracker) Remove(sessionID string) {
	t.mu.Lock()
	delete(t.sessions, sessionID)
	t.mu.Unlock()
}

// Start begins the background sweep that expires idle sessions
func (t *Tracker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ticker := time.NewTicker(t.config.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.sweep()
			case <-ctx.Done():
				log.Println("[INFO] Progress tracker sweep stopped")
				return
			}
		}
	}()

	log.Printf("[INFO] Progress tracker started (sweep interval: %v, session TTL: %v)", t.config.SweepInterval, t.config.SessionTTL)
}

// Shutdown stops the background sweep
func (t *Tracker) Shutdown() {
	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()
}

// sweep removes sessions whose last update is older than the TTL.
func (t *Tracker) sweep() {
	cutoff := time.Now().UTC().Add(-t.config.SessionTTL)

	t.mu.Lock()
	defer t.mu.Unlock()

	for sessionID, entry := range t.sessions {
		entry.mu.Lock()
		expired := entry.hasUpdate && entry.update.UpdatedAt.Before(cutoff)
		entry.mu.Unlock()

		if expired {
			log.Printf("[DEBUG] Expiring idle progress session %s", sessionID)
			delete(t.sessions, sessionID)
		}
	}
}

// getOrCreateEntry returns the entry for a session, creating it if needed.
func (t *Tracker) getOrCreateEntry(sessionID string) *sessionEntry {
	t.mu.RLock()
	entry, ok := t.sessions[sessionID]
	t.mu.RUnlock()
	if ok {
		return entry
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.sessions[sessionID]; ok {
		return entry
	}
	entry = &sessionEntry{subscribers: make(map[int64]*subscriber)}
	t.sessions[sessionID] = entry
	return entry
}
