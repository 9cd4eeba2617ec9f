package sync

import (
	"testing"
	"time"

	"github.com/jun/gophboard/internal/model"
)

func obj(id string, x float64, updatedAt time.Time) model.CanvasObject {
	return model.CanvasObject{
		ID:   id,
		Type: model.ShapeRectangle,
		X:    x, Width: 100, Height: 100,
		UpdatedAt: updatedAt,
	}
}

func TestReconcile_PendingOverridesDurable(t *testing.T) {
	now := time.Now()
	durable := []model.CanvasObject{obj("r1", 0, now), obj("r2", 0, now)}
	pending := map[string]pendingChange{
		"r1": {obj: obj("r1", 42, now), at: now},
	}

	merged := Reconcile(durable, pending)
	if len(merged) != 2 {
		t.Fatalf("merged %d objects, want 2", len(merged))
	}
	if merged[0].X != 42 {
		t.Errorf("r1.X = %v, want optimistic 42", merged[0].X)
	}
	if merged[1].X != 0 {
		t.Errorf("r2.X = %v, want durable 0", merged[1].X)
	}
}

func TestReconcile_RemoteDeleteWins(t *testing.T) {
	now := time.Now()
	durable := []model.CanvasObject{obj("r2", 0, now)}
	pending := map[string]pendingChange{
		"r1": {obj: obj("r1", 42, now), at: now}, // deleted remotely
	}

	merged := Reconcile(durable, pending)
	if len(merged) != 1 || merged[0].ID != "r2" {
		t.Errorf("merged = %+v, want only r2", merged)
	}
}

func TestPrunePending(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	pending := map[string]pendingChange{
		"confirmed": {obj: obj("confirmed", 1, base), at: base},
		"stale":     {obj: obj("stale", 2, base), at: base.Add(time.Second)},
		"deleted":   {obj: obj("deleted", 3, base), at: base},
	}
	durable := []model.CanvasObject{
		obj("confirmed", 1, base.Add(time.Second)), // echo landed
		obj("stale", 0, base),                      // still older than the local edit
	}

	prunePending(durable, pending)

	if _, ok := pending["confirmed"]; ok {
		t.Error("confirmed mutation should be pruned")
	}
	if _, ok := pending["stale"]; !ok {
		t.Error("unconfirmed mutation must survive the prune")
	}
	if _, ok := pending["deleted"]; ok {
		t.Error("mutation for a remotely deleted object should be pruned")
	}
}
