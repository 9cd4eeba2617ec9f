// Package broadcast is the ephemeral transform channel: while a user drags,
// resizes, or rotates, other clients render a live preview from throttled
// deltas published here. The channel is strictly advisory — it never writes
// durable state, and losing any individual broadcast only costs visual
// freshness until the next tick or the final commit.
package broadcast

import (
	"context"
	"time"

	"github.com/jun/gophboard/internal/model"
)

const (
	// ThrottleInterval bounds the ephemeral write rate: one write per
	// object (single-select) or per holder (group) per interval.
	ThrottleInterval = 50 * time.Millisecond

	// Staleness is the consumer-side cutoff. Records older than this are
	// discarded even if their owner never cleared them, which covers the
	// crash and network-partition cases.
	Staleness = 5 * time.Second
)

// ObjectKey is the ephemeral key for a single-object transform.
func ObjectKey(objectID string) string { return "object:" + objectID }

// GroupKey is the ephemeral key for a holder's combined group transform.
// Keying by holder means one user's group flush overwrites their previous
// one, so the write rate is independent of selection size.
func GroupKey(userID string) string { return "group:" + userID }

// Record is one ephemeral entry: either a single transform update or a
// holder's combined group of them.
type Record struct {
	Key       string                           `json:"key"`
	UserID    string                           `json:"user_id"`
	Update    *model.TransformUpdate           `json:"update,omitempty"`
	Group     map[string]model.TransformUpdate `json:"group,omitempty"`
	Timestamp int64                            `json:"timestamp"` // unix millis
}

// Stale reports whether the record is older than Staleness at now.
func (r *Record) Stale(now time.Time) bool {
	return now.UnixMilli()-r.Timestamp > Staleness.Milliseconds()
}

// EphemeralStore is a key-value broadcast medium with live subscription and
// no durability guarantee. Implementations: the websocket relay in
// production, an in-memory fan-out in DEV_MODE and tests.
type EphemeralStore interface {
	Put(ctx context.Context, rec Record) error
	Delete(ctx context.Context, key string) error

	// Subscribe streams puts and deletes until ctx is cancelled or stop is
	// called. Delivery is best effort; ordering follows the medium.
	Subscribe(ctx context.Context, onRecord func(Record), onDelete func(key string)) (stop func(), err error)
}
