package lock

import (
	"context"
	"sync"
	"time"

	"github.com/jun/gophboard/internal/model"
)

// MemoryStore implements Store using an in-memory map. DEV_MODE and tests
// use it in place of DynamoDB.
type MemoryStore struct {
	mu      sync.Mutex
	leases  map[string]*model.Lease
	timeout time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore with the default lease timeout.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leases:  make(map[string]*model.Lease),
		timeout: DefaultTimeout,
		now:     time.Now,
	}
}

func (s *MemoryStore) TryAcquire(ctx context.Context, objectID, userID string) (*model.Lease, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.leases[objectID]; ok {
		if !existing.Expired(now) && existing.UserID != userID {
			return nil, false, nil
		}
	}

	lease := &model.Lease{
		ObjectID:   objectID,
		UserID:     userID,
		AcquiredAt: now.UnixMilli(),
		TimeoutMs:  s.timeout.Milliseconds(),
	}
	s.leases[objectID] = lease
	return lease, true, nil
}

func (s *MemoryStore) Renew(ctx context.Context, objectID, userID string) (*model.Lease, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.leases[objectID]
	if !ok || existing.UserID != userID {
		return nil, false, nil
	}

	existing.AcquiredAt = s.now().UnixMilli()
	return existing, true, nil
}

func (s *MemoryStore) Release(ctx context.Context, objectID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.leases[objectID]
	if !ok || existing.UserID != userID {
		return nil // not ours: idempotent no-op
	}

	delete(s.leases, objectID)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, objectID string) (*model.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.leases[objectID]
	if !ok || existing.Expired(s.now()) {
		return nil, nil
	}
	return existing, nil
}
