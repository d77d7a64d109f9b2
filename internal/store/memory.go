package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is a mutex-guarded in-memory store. It is the default driver and
// the store used by tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string]map[string]*Record // ownerID -> id -> record
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]map[string]*Record),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Create(_ context.Context, ownerID string, rec *Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()

	owned := m.records[ownerID]
	if owned == nil {
		owned = make(map[string]*Record)
		m.records[ownerID] = owned
	}

	stored := *rec
	stored.ID = id
	owned[id] = &stored

	return id, nil
}

func (m *Memory) List(_ context.Context, ownerID string) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owned := m.records[ownerID]
	out := make([]*Record, 0, len(owned))
	for _, rec := range owned {
		clone := *rec
		out = append(out, &clone)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].SentAt.After(out[j].SentAt)
	})

	return out, nil
}

func (m *Memory) Get(_ context.Context, ownerID, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[ownerID][id]
	if !ok {
		return nil, ErrNotFound
	}

	clone := *rec
	return &clone, nil
}

func (m *Memory) Update(_ context.Context, ownerID, id string, fields Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[ownerID][id]
	if !ok {
		return ErrNotFound
	}

	// The transition already happened; later writes are no-ops.
	if rec.FollowedUp {
		return nil
	}

	if fields.FollowedUp != nil {
		rec.FollowedUp = *fields.FollowedUp
	}
	if fields.FollowUpMessage != nil {
		rec.FollowUpMessage = *fields.FollowUpMessage
	}
	if fields.FollowUpAt != nil {
		at := *fields.FollowUpAt
		rec.FollowUpAt = &at
	}

	return nil
}
