package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist for the given owner.
var ErrNotFound = errors.New("record not found")

// Record is the persisted form of a single outreach event.
type Record struct {
	ID              string
	ContactID       string
	ContactName     string
	InitialMessage  string
	SentAt          time.Time
	FollowedUp      bool
	FollowUpMessage string
	FollowUpAt      *time.Time
	ReferenceURL    string
}

// Fields carries a partial update. Nil members are left untouched by Update.
type Fields struct {
	FollowedUp      *bool
	FollowUpMessage *string
	FollowUpAt      *time.Time
}

// Store persists outreach records. All operations are scoped to an owner;
// no implementation exposes records across owners. Create assigns the record
// ID and returns it directly.
//
// Update is guarded: a record that is already followed up is left untouched
// and the call reports success, so the Sent -> FollowedUp transition applies
// at most once even under concurrent or cross-process writers.
type Store interface {
	Create(ctx context.Context, ownerID string, rec *Record) (string, error)
	List(ctx context.Context, ownerID string) ([]*Record, error)
	Get(ctx context.Context, ownerID, id string) (*Record, error)
	Update(ctx context.Context, ownerID, id string, fields Fields) error
}
