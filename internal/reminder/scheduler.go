package reminder

import (
	"errors"
	"sync"
	"time"

	"github.com/okeeper/okeeper/internal/metrics"

	"go.uber.org/zap"
)

// minDelay is the floor applied to non-positive delays so every reminder
// fires asynchronously instead of immediately or never.
const minDelay = time.Second

const firedBuffer = 16

// Event is emitted on the fired channel when a reminder wakes up. The host
// draining the channel must re-check the record's followedUp state before
// presenting a follow-up prompt; a stale fire is a no-op.
type Event struct {
	RecordID     string
	ContactLabel string
	Payload      string
	FiredAt      time.Time
}

// Handle describes an armed reminder.
type Handle struct {
	RecordID string
	Payload  string
	FireAt   time.Time
}

// Scheduler keeps at most one pending wake-up per record. Re-arming a record
// replaces its timer; cancelling drops it. Fired reminders are delivered as
// events on a channel rather than through a registered callback.
type Scheduler struct {
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingReminder
	fired   chan Event
	stopped bool
}

type pendingReminder struct {
	timer  *time.Timer
	handle Handle
	label  string
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger:  logger,
		pending: make(map[string]*pendingReminder),
		fired:   make(chan Event, firedBuffer),
	}
}

// Arm schedules a single wake-up for the record after delay. A delay of
// zero or less is clamped to a minimum positive delay.
func (s *Scheduler) Arm(recordID, contactLabel string, delay time.Duration) error {
	if recordID == "" {
		return errors.New("record id is required")
	}

	if delay <= 0 {
		delay = minDelay
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return errors.New("scheduler is stopped")
	}

	if prior, ok := s.pending[recordID]; ok {
		prior.timer.Stop()
		s.logger.Debug("replacing pending reminder", zap.String("record_id", recordID))
	}

	handle := Handle{
		RecordID: recordID,
		Payload:  Payload(recordID),
		FireAt:   time.Now().Add(delay),
	}

	s.pending[recordID] = &pendingReminder{
		timer:  time.AfterFunc(delay, func() { s.fire(recordID) }),
		handle: handle,
		label:  contactLabel,
	}

	metrics.RemindersArmed.Inc()
	s.logger.Info("reminder armed",
		zap.String("record_id", recordID),
		zap.String("contact", contactLabel),
		zap.Duration("delay", delay),
	)

	return nil
}

// Cancel drops the pending reminder for the record, if any.
func (s *Scheduler) Cancel(recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, ok := s.pending[recordID]
	if !ok {
		return
	}

	prior.timer.Stop()
	delete(s.pending, recordID)

	metrics.RemindersCanceled.Inc()
	s.logger.Debug("reminder canceled", zap.String("record_id", recordID))
}

// Pending reports the handle of the record's armed reminder, if one exists.
func (s *Scheduler) Pending(recordID string) (Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[recordID]
	if !ok {
		return Handle{}, false
	}

	return p.handle, true
}

// Fired exposes the channel of woken reminders for the host to drain.
func (s *Scheduler) Fired() <-chan Event {
	return s.fired
}

// Stop cancels all pending reminders and closes the fired channel.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true

	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}

	close(s.fired)
}

func (s *Scheduler) fire(recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[recordID]
	if !ok || s.stopped {
		return
	}
	delete(s.pending, recordID)

	event := Event{
		RecordID:     recordID,
		ContactLabel: p.label,
		Payload:      p.handle.Payload,
		FiredAt:      time.Now(),
	}

	metrics.RemindersFired.Inc()

	// The send stays under the lock: Stop closes the channel under the same
	// lock, so a fire can never hit a closed channel. The send is
	// non-blocking, so holding the lock here cannot deadlock.
	select {
	case s.fired <- event:
	default:
		// Loss of a reminder degrades UX, not record correctness.
		s.logger.Warn("dropping fired reminder, channel full",
			zap.String("record_id", recordID),
		)
	}
}
