package broadcast

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jun/gophboard/internal/model"
)

// Publisher throttles a user's in-progress transform deltas into the
// ephemeral store. Callers only publish for objects they hold the lease on;
// that invariant is enforced by the selection layer, not here.
type Publisher struct {
	store    EphemeralStore
	userID   string
	interval time.Duration
	now      func() time.Time

	mu            sync.Mutex
	pendingSingle map[string]model.TransformUpdate // object id -> delta awaiting flush
	pendingGroup  map[string]model.TransformUpdate
	groupPending  bool
	ctx           context.Context
}

// NewPublisher creates a Publisher for one user.
func NewPublisher(store EphemeralStore, userID string) *Publisher {
	return &Publisher{
		store:         store,
		userID:        userID,
		interval:      ThrottleInterval,
		now:           time.Now,
		pendingSingle: make(map[string]model.TransformUpdate),
		pendingGroup:  make(map[string]model.TransformUpdate),
		ctx:           context.Background(),
	}
}

// BroadcastMove publishes a single-object delta, at most one write per
// object per throttle interval. While a flush is pending for the object,
// newer deltas are dropped — the delta that opened the interval is the one
// written. Latest-wins is not guaranteed and doesn't need to be; the final
// durable commit is authoritative.
func (p *Publisher) BroadcastMove(objectID string, u model.TransformUpdate) {
	p.mu.Lock()
	if _, waiting := p.pendingSingle[objectID]; waiting {
		p.mu.Unlock()
		return
	}
	u.ObjectID = objectID
	u.UserID = p.userID
	u.Timestamp = p.now().UnixMilli()
	p.pendingSingle[objectID] = u
	p.mu.Unlock()

	time.AfterFunc(p.interval, func() { p.flushSingle(objectID) })
}

// BroadcastGroupMove accumulates a delta into the holder's pending group.
// The whole group flushes as one combined write per interval, keyed by the
// holder rather than per object.
func (p *Publisher) BroadcastGroupMove(u model.TransformUpdate) {
	p.mu.Lock()
	u.UserID = p.userID
	u.Timestamp = p.now().UnixMilli()
	p.pendingGroup[u.ObjectID] = u
	schedule := !p.groupPending
	p.groupPending = true
	p.mu.Unlock()

	if schedule {
		time.AfterFunc(p.interval, p.flushGroup)
	}
}

// ClearObject removes the object's ephemeral record immediately (gesture
// end), dropping any pending flush.
func (p *Publisher) ClearObject(ctx context.Context, objectID string) {
	p.mu.Lock()
	delete(p.pendingSingle, objectID)
	p.mu.Unlock()

	if err := p.store.Delete(ctx, ObjectKey(objectID)); err != nil {
		log.Printf("broadcast: clear %s failed: %v", objectID, err)
	}
}

// ClearGroup removes the holder's group record immediately.
func (p *Publisher) ClearGroup(ctx context.Context) {
	p.mu.Lock()
	p.pendingGroup = make(map[string]model.TransformUpdate)
	p.mu.Unlock()

	if err := p.store.Delete(ctx, GroupKey(p.userID)); err != nil {
		log.Printf("broadcast: clear group failed: %v", err)
	}
}

func (p *Publisher) flushSingle(objectID string) {
	p.mu.Lock()
	u, ok := p.pendingSingle[objectID]
	delete(p.pendingSingle, objectID)
	p.mu.Unlock()
	if !ok {
		return // cleared mid-interval
	}

	rec := Record{
		Key:       ObjectKey(objectID),
		UserID:    p.userID,
		Update:    &u,
		Timestamp: p.now().UnixMilli(),
	}
	if err := p.store.Put(p.ctx, rec); err != nil {
		log.Printf("broadcast: publish %s failed: %v", objectID, err)
	}
}

func (p *Publisher) flushGroup() {
	p.mu.Lock()
	group := p.pendingGroup
	p.pendingGroup = make(map[string]model.TransformUpdate)
	p.groupPending = false
	p.mu.Unlock()
	if len(group) == 0 {
		return
	}

	rec := Record{
		Key:       GroupKey(p.userID),
		UserID:    p.userID,
		Group:     group,
		Timestamp: p.now().UnixMilli(),
	}
	if err := p.store.Put(p.ctx, rec); err != nil {
		log.Printf("broadcast: publish group failed: %v", err)
	}
}
