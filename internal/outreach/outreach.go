package outreach

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okeeper/okeeper/internal/store"

	"go.uber.org/zap"
)

// DefaultFollowUpDelay is how long after the initial message a follow-up
// reminder fires.
const DefaultFollowUpDelay = 7 * 24 * time.Hour

// Record is a logged outreach event. followUpAt is set iff followedUp is
// true; sentAt never changes after creation.
type Record = store.Record

// ErrNotFound is returned when an outreach record does not exist for the
// caller.
var ErrNotFound = store.ErrNotFound

// Contact identifies the party being contacted within the owner's record set.
type Contact struct {
	ID           string
	Name         string
	ReferenceURL string
}

// Scheduler arms and cancels follow-up reminders. Both operations are
// best-effort from the lifecycle's point of view.
type Scheduler interface {
	Arm(recordID, contactLabel string, delay time.Duration) error
	Cancel(recordID string)
}

// Lifecycle governs outreach records: creation, listing and the single
// Sent -> FollowedUp transition. All reads and writes go through the store.
type Lifecycle struct {
	store         store.Store
	scheduler     Scheduler
	logger        *zap.Logger
	followUpDelay time.Duration
	loc           *time.Location
}

type Option func(*Lifecycle)

// WithScheduler attaches a reminder scheduler. Without one, no reminders
// are armed.
func WithScheduler(s Scheduler) Option {
	return func(l *Lifecycle) { l.scheduler = s }
}

// WithFollowUpDelay overrides the reminder delay.
func WithFollowUpDelay(d time.Duration) Option {
	return func(l *Lifecycle) { l.followUpDelay = d }
}

// WithLocation sets the location whose midnights delimit calendar days.
func WithLocation(loc *time.Location) Option {
	return func(l *Lifecycle) { l.loc = loc }
}

func New(st store.Store, logger *zap.Logger, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		store:         st,
		logger:        logger,
		followUpDelay: DefaultFollowUpDelay,
		loc:           time.Local,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// RecordOutreach persists a new record for the contact and arms a follow-up
// reminder. The write must succeed before the reminder is armed; a reminder
// that cannot be armed is logged and does not fail the operation.
func (l *Lifecycle) RecordOutreach(ctx context.Context, ownerID string, contact Contact, message string) (string, error) {
	rec := &Record{
		ContactID:      contact.ID,
		ContactName:    contact.Name,
		InitialMessage: message,
		SentAt:         time.Now(),
		ReferenceURL:   contact.ReferenceURL,
	}

	id, err := l.store.Create(ctx, ownerID, rec)
	if err != nil {
		return "", fmt.Errorf("persisting outreach record: %w", err)
	}

	l.logger.Info("outreach recorded",
		zap.String("record_id", id),
		zap.String("contact", contact.Name),
	)

	if l.scheduler != nil {
		if err := l.scheduler.Arm(id, contact.Name, l.followUpDelay); err != nil {
			l.logger.Warn("arming follow-up reminder failed",
				zap.String("record_id", id),
				zap.Error(err),
			)
		}
	}

	return id, nil
}

// ListOutreach returns the owner's records ordered by sentAt descending.
// An owner with no records gets an empty list, not an error.
func (l *Lifecycle) ListOutreach(ctx context.Context, ownerID string) ([]*Record, error) {
	records, err := l.store.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing outreach records: %w", err)
	}

	return records, nil
}

// Get fetches a single record for the owner.
func (l *Lifecycle) Get(ctx context.Context, ownerID, id string) (*Record, error) {
	return l.store.Get(ctx, ownerID, id)
}

// RecordFollowUp marks the record followed up. A record that is already
// followed up is left untouched and the call succeeds, so retries and
// duplicate reminder taps cannot double-count. The check here is a fast
// path; the store applies the transition at most once, so concurrent calls
// cannot overwrite each other's follow-up fields.
func (l *Lifecycle) RecordFollowUp(ctx context.Context, ownerID, id, message string) error {
	rec, err := l.store.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if rec.FollowedUp {
		l.logger.Debug("follow-up already recorded", zap.String("record_id", id))
		return nil
	}

	followedUp := true
	now := time.Now()
	fields := store.Fields{
		FollowedUp:      &followedUp,
		FollowUpMessage: &message,
		FollowUpAt:      &now,
	}

	if err := l.store.Update(ctx, ownerID, id, fields); err != nil {
		return fmt.Errorf("persisting follow-up: %w", err)
	}

	l.logger.Info("follow-up recorded",
		zap.String("record_id", id),
		zap.String("contact", rec.ContactName),
	)

	if l.scheduler != nil {
		l.scheduler.Cancel(id)
	}

	return nil
}

// DaysSinceContact counts whole calendar days between the initial message
// and now. Days are delimited by midnights in the lifecycle's location, so
// a message sent at 23:59 counts one day at 00:01.
func (l *Lifecycle) DaysSinceContact(rec *Record, now time.Time) int {
	sent := midnightOf(rec.SentAt.In(l.loc))
	today := midnightOf(now.In(l.loc))

	return int(math.Round(today.Sub(sent).Hours() / 24))
}

// IsFollowUpEligible reports whether enough calendar days have passed and
// the record has not been followed up yet. minimumDays is supplied by the
// caller; display and send paths use independently configured values.
func (l *Lifecycle) IsFollowUpEligible(rec *Record, minimumDays int, now time.Time) bool {
	if rec.FollowedUp {
		return false
	}

	return l.DaysSinceContact(rec, now) >= minimumDays
}

func midnightOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
