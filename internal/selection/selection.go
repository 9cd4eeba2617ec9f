// Package selection orchestrates marquee (drag-to-select) selection: it
// turns a drag gesture into a containment query over the live object set,
// filters out objects other users hold, and acquires leases for the rest.
package selection

import (
	"context"
	"sort"
	"time"

	"github.com/jun/gophboard/internal/geometry"
	"github.com/jun/gophboard/internal/lock"
	"github.com/jun/gophboard/internal/model"
)

// ObjectSource supplies the current reconciled object set. The sync layer's
// Syncer satisfies it.
type ObjectSource interface {
	Objects() []model.CanvasObject
}

// Locker is the slice of the lock manager the controller needs.
type Locker interface {
	TryAcquire(ctx context.Context, objectID string) (bool, error)
	Release(ctx context.Context, objectID string) error
}

// Controller runs the marquee lifecycle for one user. Every member of the
// selection set holds (or just acquired) a lease owned by this user.
type Controller struct {
	source ObjectSource
	locker Locker
	userID string
	now    func() time.Time

	dragStart *geometry.Point
	dragRect  geometry.Rect
	selected  map[string]struct{}
}

// NewController creates a Controller.
func NewController(source ObjectSource, locker Locker, userID string) *Controller {
	return &Controller{
		source:   source,
		locker:   locker,
		userID:   userID,
		now:      time.Now,
		selected: make(map[string]struct{}),
	}
}

// BeginDrag starts a marquee gesture at the given point.
func (c *Controller) BeginDrag(p geometry.Point) {
	c.dragStart = &p
	c.dragRect = geometry.Rect{X: p.X, Y: p.Y}
}

// UpdateDrag extends the gesture and returns the current marquee rectangle
// for painting.
func (c *Controller) UpdateDrag(p geometry.Point) geometry.Rect {
	if c.dragStart == nil {
		return geometry.Rect{}
	}
	c.dragRect = geometry.NormalizeDragRect(*c.dragStart, p)
	return c.dragRect
}

// EndDrag finishes the gesture: objects fully contained in the marquee and
// not locked by another user become selection candidates; each candidate
// not already selected must win its lease or it stays unselected. With
// additive false the new set replaces the old one and leases for dropped
// objects are released; with additive true (shift-drag) the sets union.
func (c *Controller) EndDrag(ctx context.Context, p geometry.Point, additive bool) []string {
	if c.dragStart == nil {
		return c.Selected()
	}
	rect := geometry.NormalizeDragRect(*c.dragStart, p)
	c.dragStart = nil
	c.dragRect = geometry.Rect{}

	now := c.now()
	var found []string
	for _, obj := range c.source.Objects() {
		if !geometry.Contains(rect, geometry.BoundsOf(&obj)) {
			continue
		}
		if lock.LockedByOther(&obj, c.userID, now) {
			continue
		}
		found = append(found, obj.ID)
	}

	next := Merge(c.selected, found, additive)

	// Acquire leases for newcomers; losers drop out silently.
	for id := range next {
		if _, held := c.selected[id]; held {
			continue
		}
		ok, err := c.locker.TryAcquire(ctx, id)
		if err != nil || !ok {
			delete(next, id)
		}
	}

	// Release leases for objects that fell out of the selection.
	for id := range c.selected {
		if _, keep := next[id]; !keep {
			c.locker.Release(ctx, id)
		}
	}

	c.selected = next
	return c.Selected()
}

// CancelDrag abandons an in-progress gesture without changing the
// selection.
func (c *Controller) CancelDrag() {
	c.dragStart = nil
	c.dragRect = geometry.Rect{}
}

// Selected returns the selection set, sorted for stable output.
func (c *Controller) Selected() []string {
	ids := make([]string, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsSelected reports membership.
func (c *Controller) IsSelected(objectID string) bool {
	_, ok := c.selected[objectID]
	return ok
}

// Deselect drops an object from the selection without touching its lease.
// The lock manager's lost-lease callback wires here: the lease is already
// gone, only the local set needs correcting.
func (c *Controller) Deselect(objectID string) {
	delete(c.selected, objectID)
}

// Clear releases every lease and empties the selection.
func (c *Controller) Clear(ctx context.Context) {
	for id := range c.selected {
		c.locker.Release(ctx, id)
	}
	c.selected = make(map[string]struct{})
}

// Merge combines an existing selection with freshly found ids. Additive
// unions without duplicates; non-additive replaces.
func Merge(existing map[string]struct{}, found []string, additive bool) map[string]struct{} {
	next := make(map[string]struct{}, len(found)+len(existing))
	if additive {
		for id := range existing {
			next[id] = struct{}{}
		}
	}
	for _, id := range found {
		next[id] = struct{}{}
	}
	return next
}
