package lock

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultSweepInterval is how often the Manager scans its held leases for
// ones it failed to renew in time.
const DefaultSweepInterval = 5 * time.Second

// Manager is the client-side view of the locks one user holds. It records
// when each lease was last renewed, proactively drops leases that went
// unrenewed past the timeout, and tells the UI (via the lost callback) when
// a lease it depended on is gone so the object can be deselected.
//
// The sweep is an optimization: correctness rests on the expiry predicate
// and the store's conditional writes, not on sweep cadence.
type Manager struct {
	store         Store
	userID        string
	leaseTimeout  time.Duration
	sweepInterval time.Duration
	onLeaseLost   func(objectID string)

	mu   sync.Mutex
	held map[string]time.Time // objectID -> last renewed
	now  func() time.Time
}

// NewManager creates a Manager for the given user. onLeaseLost may be nil.
func NewManager(store Store, userID string, onLeaseLost func(objectID string)) *Manager {
	return &Manager{
		store:         store,
		userID:        userID,
		leaseTimeout:  DefaultTimeout,
		sweepInterval: DefaultSweepInterval,
		onLeaseLost:   onLeaseLost,
		held:          make(map[string]time.Time),
		now:           time.Now,
	}
}

// TryAcquire attempts to lease the object. false with a nil error means
// another holder has it — the caller keeps the object unselected, no retry
// happens here. Store failure also reads as not-acquired: we fail toward
// "cannot edit", never toward bypassing the lock.
func (m *Manager) TryAcquire(ctx context.Context, objectID string) (bool, error) {
	_, ok, err := m.store.TryAcquire(ctx, objectID, m.userID)
	if err != nil {
		log.Printf("lock: acquire %s failed: %v", objectID, err)
		return false, err
	}
	if !ok {
		return false, nil
	}

	m.mu.Lock()
	m.held[objectID] = m.now()
	m.mu.Unlock()
	return true, nil
}

// Release clears a self-held lease and forgets it locally. Releasing an
// object we don't hold is a no-op.
func (m *Manager) Release(ctx context.Context, objectID string) error {
	m.mu.Lock()
	delete(m.held, objectID)
	m.mu.Unlock()
	return m.store.Release(ctx, objectID, m.userID)
}

// ReleaseAll releases every held lease, typically on teardown or gesture
// cancel.
func (m *Manager) ReleaseAll(ctx context.Context) {
	for _, id := range m.Held() {
		if err := m.Release(ctx, id); err != nil {
			log.Printf("lock: release %s failed: %v", id, err)
		}
	}
}

// Renew re-stamps the lease. If the store rejects the renewal (the object
// was reassigned after an unnoticed expiration) the object is dropped from
// the held set and reported through the lost callback.
func (m *Manager) Renew(ctx context.Context, objectID string) error {
	_, ok, err := m.store.Renew(ctx, objectID, m.userID)
	if err != nil {
		log.Printf("lock: renew %s failed: %v", objectID, err)
		m.lose(objectID)
		return err
	}
	if !ok {
		m.lose(objectID)
		return nil
	}

	m.mu.Lock()
	if _, tracked := m.held[objectID]; tracked {
		m.held[objectID] = m.now()
	}
	m.mu.Unlock()
	return nil
}

// Holds reports whether the manager is tracking a lease on the object.
func (m *Manager) Holds(objectID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[objectID]
	return ok
}

// Held returns the ids of all tracked leases.
func (m *Manager) Held() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.held))
	for id := range m.held {
		ids = append(ids, id)
	}
	return ids
}

// Sweep drops every tracked lease that went unrenewed past the lease
// timeout, releasing it in the store and reporting it lost.
func (m *Manager) Sweep(ctx context.Context) {
	now := m.now()

	m.mu.Lock()
	var expired []string
	for id, renewedAt := range m.held {
		if now.Sub(renewedAt) > m.leaseTimeout {
			expired = append(expired, id)
			delete(m.held, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		if err := m.store.Release(ctx, id, m.userID); err != nil {
			log.Printf("lock: sweep release %s failed: %v", id, err)
		}
		if m.onLeaseLost != nil {
			m.onLeaseLost(id)
		}
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

func (m *Manager) lose(objectID string) {
	m.mu.Lock()
	_, tracked := m.held[objectID]
	delete(m.held, objectID)
	m.mu.Unlock()

	if tracked && m.onLeaseLost != nil {
		m.onLeaseLost(objectID)
	}
}
