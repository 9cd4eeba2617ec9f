// Package store defines the durable object store abstraction and its
// DynamoDB and in-memory implementations. All durable mutation of canvas
// objects goes through an ObjectStore; nothing else writes object records.
package store

import (
	"context"
	"errors"

	"github.com/jun/gophboard/internal/model"
)

var (
	// ErrNotFound is returned when a requested object does not exist.
	ErrNotFound = errors.New("object not found")
)

// ObjectStore persists canvas objects and exposes a change feed per canvas.
// Conflict policy is last-writer-wins: the store performs no merging or
// version checking, the lock system is the sole guard against concurrent
// writers.
type ObjectStore interface {
	// ListObjects returns the full current object set for a canvas.
	ListObjects(ctx context.Context, canvasID string) ([]model.CanvasObject, error)

	// CreateObject writes a new object record.
	CreateObject(ctx context.Context, obj *model.CanvasObject) error

	// UpdateObject upserts the full object record, including updated_by and
	// updated_at stamped by the caller.
	UpdateObject(ctx context.Context, obj *model.CanvasObject) error

	// DeleteObject removes the object record. Deleting a missing object is
	// not an error.
	DeleteObject(ctx context.Context, objectID string) error

	// Watch delivers the full current object set for a canvas to onChange
	// whenever it changes, and feed failures to onError. The returned stop
	// function tears the watch down; it must be called on teardown.
	Watch(ctx context.Context, canvasID string, onChange func([]model.CanvasObject), onError func(error)) (stop func())
}
