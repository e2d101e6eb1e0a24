package storage

import (
	"context"
	"sync"
	"time"
)

// Memory is a map-backed Store. Used in tests and for ephemeral runs where
// losing records on restart is acceptable (the startup pass re-creates roles
// for unknown events, so an ephemeral store means duplicate roles after a
// restart — prefer sqlite for real deployments).
type Memory struct {
	mu   sync.Mutex
	recs map[string]*EventRecord
}

func NewMemory() *Memory {
	return &Memory{recs: map[string]*EventRecord{}}
}

func (m *Memory) FindScheduledEvent(_ context.Context, eventID string) (*EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[eventID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *Memory) CreateScheduledEvent(_ context.Context, eventID, roleID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[eventID]; ok {
		return 0, nil
	}
	m.recs[eventID] = &EventRecord{EventID: eventID, RoleID: roleID, CreatedAt: time.Now()}
	return 1, nil
}

func (m *Memory) Close() error { return nil }
