package broadcast

import (
	"context"
	"sync"
)

// MemoryEphemeral is an in-process EphemeralStore for DEV_MODE and tests.
// Subscribers are notified synchronously.
type MemoryEphemeral struct {
	mu      sync.Mutex
	records map[string]Record
	subs    map[int]*memorySub
	nextID  int
}

type memorySub struct {
	onRecord func(Record)
	onDelete func(string)
}

// NewMemoryEphemeral creates an empty MemoryEphemeral.
func NewMemoryEphemeral() *MemoryEphemeral {
	return &MemoryEphemeral{
		records: make(map[string]Record),
		subs:    make(map[int]*memorySub),
	}
}

func (m *MemoryEphemeral) Put(ctx context.Context, rec Record) error {
	m.mu.Lock()
	m.records[rec.Key] = rec
	subs := m.subsLocked()
	m.mu.Unlock()

	for _, s := range subs {
		s.onRecord(rec)
	}
	return nil
}

func (m *MemoryEphemeral) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.records, key)
	subs := m.subsLocked()
	m.mu.Unlock()

	for _, s := range subs {
		s.onDelete(key)
	}
	return nil
}

func (m *MemoryEphemeral) Subscribe(ctx context.Context, onRecord func(Record), onDelete func(key string)) (func(), error) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = &memorySub{onRecord: onRecord, onDelete: onDelete}
	existing := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		existing = append(existing, rec)
	}
	m.mu.Unlock()

	for _, rec := range existing {
		onRecord(rec)
	}

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}, nil
}

// Records returns a copy of the current record set.
func (m *MemoryEphemeral) Records() map[string]Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Record, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out
}

func (m *MemoryEphemeral) subsLocked() []*memorySub {
	subs := make([]*memorySub, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	return subs
}
