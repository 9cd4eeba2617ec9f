package store

import (
	"context"
	"sort"
	"sync"

	"github.com/jun/gophboard/internal/model"
)

// MemoryStore implements ObjectStore with an in-memory map. DEV_MODE and
// tests use it in place of DynamoDB; watchers are notified synchronously on
// every mutation, so tests don't poll.
type MemoryStore struct {
	mu       sync.RWMutex
	objects  map[string]*model.CanvasObject
	watchers map[int]*memoryWatcher
	nextID   int
}

type memoryWatcher struct {
	canvasID string
	onChange func([]model.CanvasObject)
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:  make(map[string]*model.CanvasObject),
		watchers: make(map[int]*memoryWatcher),
	}
}

func (s *MemoryStore) ListObjects(ctx context.Context, canvasID string) ([]model.CanvasObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(canvasID), nil
}

// snapshotLocked copies the canvas's objects sorted by id. Callers hold at
// least the read lock.
func (s *MemoryStore) snapshotLocked(canvasID string) []model.CanvasObject {
	objects := make([]model.CanvasObject, 0, len(s.objects))
	for _, obj := range s.objects {
		if obj.CanvasID == canvasID {
			objects = append(objects, *obj)
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].ID < objects[j].ID })
	return objects
}

func (s *MemoryStore) CreateObject(ctx context.Context, obj *model.CanvasObject) error {
	cp := *obj
	s.mu.Lock()
	s.objects[obj.ID] = &cp
	s.mu.Unlock()
	s.notify(obj.CanvasID)
	return nil
}

func (s *MemoryStore) UpdateObject(ctx context.Context, obj *model.CanvasObject) error {
	cp := *obj
	s.mu.Lock()
	s.objects[obj.ID] = &cp
	s.mu.Unlock()
	s.notify(obj.CanvasID)
	return nil
}

func (s *MemoryStore) DeleteObject(ctx context.Context, objectID string) error {
	s.mu.Lock()
	obj, ok := s.objects[objectID]
	var canvasID string
	if ok {
		canvasID = obj.CanvasID
		delete(s.objects, objectID)
	}
	s.mu.Unlock()
	if ok {
		s.notify(canvasID)
	}
	return nil
}

func (s *MemoryStore) Watch(ctx context.Context, canvasID string, onChange func([]model.CanvasObject), onError func(error)) (stop func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = &memoryWatcher{canvasID: canvasID, onChange: onChange}
	snapshot := s.snapshotLocked(canvasID)
	s.mu.Unlock()

	// Initial snapshot so subscribers start from current state.
	onChange(snapshot)

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

func (s *MemoryStore) notify(canvasID string) {
	s.mu.RLock()
	snapshot := s.snapshotLocked(canvasID)
	var targets []*memoryWatcher
	for _, w := range s.watchers {
		if w.canvasID == canvasID {
			targets = append(targets, w)
		}
	}
	s.mu.RUnlock()

	for _, w := range targets {
		w.onChange(snapshot)
	}
}
