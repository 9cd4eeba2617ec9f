// Package sync is the bridge between local editing state and the durable
// store. Local state is always a projection of durable state — creates and
// deletes reflect locally only once the store's change feed delivers them.
// The one exception is Update: continuous edits apply optimistically to the
// local view and the durable write is debounced per object.
package sync

import (
	"context"
	"log"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/jun/gophboard/internal/model"
	"github.com/jun/gophboard/internal/store"
)

// DefaultDebounce is the per-object delay between a continuous-edit update
// and its durable write.
const DefaultDebounce = 300 * time.Millisecond

// Listener is a registered snapshot consumer. It must be removed on
// teardown.
type Listener struct {
	remove func()
}

// Remove unregisters the listener. Safe to call more than once.
func (l *Listener) Remove() {
	if l.remove != nil {
		l.remove()
		l.remove = nil
	}
}

// Syncer owns the mutable object set for one canvas. All durable mutation
// goes through Create/Update/Delete; consumers observe state through
// registered listeners or Objects().
type Syncer struct {
	store    store.ObjectStore
	canvasID string
	userID   string
	debounce time.Duration
	onError  func(error)
	now      func() time.Time

	mu           gosync.Mutex
	durable      []model.CanvasObject
	pending      map[string]pendingChange
	timers       map[string]*time.Timer
	listeners    map[int]func([]model.CanvasObject)
	nextListener int
	stopWatch    func()
	ctx          context.Context
}

// NewSyncer creates a Syncer for one canvas on behalf of one user. onError
// receives feed and write failures; it may be nil.
func NewSyncer(st store.ObjectStore, canvasID, userID string, onError func(error)) *Syncer {
	return &Syncer{
		store:     st,
		canvasID:  canvasID,
		userID:    userID,
		debounce:  DefaultDebounce,
		onError:   onError,
		now:       time.Now,
		pending:   make(map[string]pendingChange),
		timers:    make(map[string]*time.Timer),
		listeners: make(map[int]func([]model.CanvasObject)),
	}
}

// Start establishes the live read of the canvas. It must be called before
// mutations, and Close must be called on teardown.
func (s *Syncer) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.stopWatch = s.store.Watch(ctx, s.canvasID, s.applySnapshot, s.reportError)
}

// Close tears down the subscription and cancels pending debounce timers.
// Unflushed pending edits are abandoned; gesture-end commits flush
// explicitly before teardown.
func (s *Syncer) Close() {
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
}

// Listen registers a snapshot consumer and immediately delivers the current
// state to it.
func (s *Syncer) Listen(fn func([]model.CanvasObject)) *Listener {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	snapshot := Reconcile(s.durable, s.pending)
	s.mu.Unlock()

	fn(snapshot)
	return &Listener{remove: func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}}
}

// Objects returns the current reconciled object set.
func (s *Syncer) Objects() []model.CanvasObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Reconcile(s.durable, s.pending)
}

// Create writes a new object record. The local view picks it up from the
// change feed, never from here.
func (s *Syncer) Create(ctx context.Context, obj *model.CanvasObject) error {
	if obj.ID == "" {
		obj.ID = uuid.New().String()
	}
	obj.CanvasID = s.canvasID
	if obj.LockTimeoutMs == 0 {
		obj.LockTimeoutMs = model.DefaultLockTimeoutMs
	}
	obj.UpdatedBy = s.userID
	obj.UpdatedAt = s.now()
	return s.store.CreateObject(ctx, obj)
}

// Update applies the mutation optimistically to local state and schedules
// the durable write, debounced per object. Listeners see the new state
// immediately regardless of the debounce.
func (s *Syncer) Update(obj *model.CanvasObject) {
	s.mu.Lock()
	s.pending[obj.ID] = pendingChange{obj: *obj, at: s.now()}
	if t, ok := s.timers[obj.ID]; ok {
		t.Stop()
	}
	id := obj.ID
	s.timers[id] = time.AfterFunc(s.debounce, func() { s.flush(id) })
	snapshot := Reconcile(s.durable, s.pending)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

// Flush writes an object's pending mutation durably right now, bypassing
// the debounce. Gesture end (mouse-up commit) uses this.
func (s *Syncer) Flush(objectID string) {
	s.mu.Lock()
	if t, ok := s.timers[objectID]; ok {
		t.Stop()
		delete(s.timers, objectID)
	}
	s.mu.Unlock()
	s.flush(objectID)
}

// Delete removes the object durably. Local removal follows from the change
// feed; any pending mutation for the object is discarded.
func (s *Syncer) Delete(ctx context.Context, objectID string) error {
	s.mu.Lock()
	if t, ok := s.timers[objectID]; ok {
		t.Stop()
		delete(s.timers, objectID)
	}
	delete(s.pending, objectID)
	s.mu.Unlock()
	return s.store.DeleteObject(ctx, objectID)
}

// flush performs the durable write for one pending object.
func (s *Syncer) flush(objectID string) {
	s.mu.Lock()
	p, ok := s.pending[objectID]
	delete(s.timers, objectID)
	ctx := s.ctx
	s.mu.Unlock()
	if !ok {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	obj := p.obj
	obj.UpdatedBy = s.userID
	obj.UpdatedAt = s.now()
	if err := s.store.UpdateObject(ctx, &obj); err != nil {
		// No retry here; the caller layer owns retry policy.
		log.Printf("sync: update %s failed: %v", objectID, err)
		s.reportError(err)
	}
}

// applySnapshot replaces local durable state with a freshly decoded feed
// snapshot and notifies listeners with the reconciled view.
func (s *Syncer) applySnapshot(raw []model.CanvasObject) {
	decoded := make([]model.CanvasObject, 0, len(raw))
	for _, r := range raw {
		obj, ok := Decode(r)
		if !ok {
			log.Printf("sync: dropping record %s with unknown shape type %q", r.ID, r.Type)
			continue
		}
		decoded = append(decoded, obj)
	}

	s.mu.Lock()
	s.durable = decoded
	prunePending(s.durable, s.pending)
	snapshot := Reconcile(s.durable, s.pending)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func (s *Syncer) listenersLocked() []func([]model.CanvasObject) {
	fns := make([]func([]model.CanvasObject), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func (s *Syncer) reportError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}
