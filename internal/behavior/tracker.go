package behavior

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agenthub/tool-recommender/internal/storage"
)

const (
	// eventQueueSize is the buffer size for the event queue.
	// If full, events are dropped (non-blocking).
	eventQueueSize = 1000

	// batchFlushSize is the number of events that triggers an immediate
	// flush.
	batchFlushSize = 10

	// flushInterval is how often pending events are flushed to storage.
	flushInterval = 50 * time.Millisecond
)

// journalEvent pairs a feedback event with its owner for batching.
type journalEvent struct {
	userID string
	event  storage.FeedbackEvent
}

// Tracker journals feedback events in the background with non-blocking
// writes, so recording feedback never stalls a recommendation request.
type Tracker struct {
	journal    storage.Journal
	logger     *zap.Logger
	eventQueue chan journalEvent
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	enabled    bool
	mu         sync.RWMutex
}

// NewTracker creates a tracker with background processing. The journal is
// initialized here; if that fails, tracking is disabled and events are
// silently ignored.
func NewTracker(j storage.Journal, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Tracker{
		journal:    j,
		logger:     logger,
		eventQueue: make(chan journalEvent, eventQueueSize),
		stopChan:   make(chan struct{}),
		enabled:    true,
	}

	if err := t.journal.Init(); err != nil {
		logger.Warn("journal initialization failed, tracking disabled", zap.Error(err))
		t.enabled = false
	}

	t.wg.Add(1)
	go t.processEvents()

	return t
}

// Track queues a feedback event for journaling (non-blocking). If the
// queue is full, the event is dropped and a warning is logged.
func (t *Tracker) Track(userID string, ev storage.FeedbackEvent) {
	if !t.isEnabled() {
		return
	}

	select {
	case t.eventQueue <- journalEvent{userID: userID, event: ev}:
	default:
		t.logger.Warn("tracker queue full, dropping event", zap.String("tool", ev.ToolID))
	}
}

// Stop gracefully shuts down the tracker, flushing remaining events.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
		t.wg.Wait()
	})
}

// IsEnabled reports whether tracking is active.
func (t *Tracker) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// QueueDepth returns the number of events waiting to be flushed. Useful
// for monitoring queue health.
func (t *Tracker) QueueDepth() int {
	return len(t.eventQueue)
}

func (t *Tracker) isEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled && t.journal != nil
}

// processEvents runs in the background, batching and flushing events.
func (t *Tracker) processEvents() {
	defer t.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]journalEvent, 0, batchFlushSize)

	for {
		select {
		case ev := <-t.eventQueue:
			batch = append(batch, ev)
			if len(batch) >= batchFlushSize {
				t.flush(batch)
				batch = make([]journalEvent, 0, batchFlushSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				t.flush(batch)
				batch = make([]journalEvent, 0, batchFlushSize)
			}

		case <-t.stopChan:
			// Drain whatever is still queued, then flush and exit.
			for {
				select {
				case ev := <-t.eventQueue:
					batch = append(batch, ev)
					if len(batch) >= batchFlushSize {
						t.flush(batch)
						batch = make([]journalEvent, 0, batchFlushSize)
					}
				default:
					t.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes a batch of events to the journal.
func (t *Tracker) flush(batch []journalEvent) {
	for _, ev := range batch {
		if err := t.journal.RecordFeedback(ev.event); err != nil {
			t.logger.Warn("failed to journal feedback", zap.Error(err))
		}
	}
}
