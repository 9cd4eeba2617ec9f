package sync

import (
	"time"

	"github.com/jun/gophboard/internal/model"
)

// pendingChange is a local optimistic mutation that has not been confirmed
// by the durable feed yet.
type pendingChange struct {
	obj model.CanvasObject
	at  time.Time
}

// Reconcile merges the last known durable state with pending local
// mutations. Durable state is the base; a pending mutation overrides its
// object until the durable echo lands. An object deleted remotely is gone
// even if a local mutation is pending — last writer wins.
//
// Pure function: the syncer calls it on every durable update, tests call it
// directly.
func Reconcile(durable []model.CanvasObject, pending map[string]pendingChange) []model.CanvasObject {
	merged := make([]model.CanvasObject, 0, len(durable))
	for _, obj := range durable {
		if p, ok := pending[obj.ID]; ok {
			merged = append(merged, p.obj)
			continue
		}
		merged = append(merged, obj)
	}
	return merged
}

// prunePending drops pending entries the durable snapshot has caught up
// with: either the object was deleted remotely, or the durable record is at
// least as new as the local mutation.
func prunePending(durable []model.CanvasObject, pending map[string]pendingChange) {
	byID := make(map[string]model.CanvasObject, len(durable))
	for _, obj := range durable {
		byID[obj.ID] = obj
	}
	for id, p := range pending {
		obj, exists := byID[id]
		if !exists || !obj.UpdatedAt.Before(p.at) {
			delete(pending, id)
		}
	}
}
