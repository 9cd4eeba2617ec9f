// Package lock implements lease-based object locking: a Store holding the
// lock triple on each object record with compare-and-set semantics, and a
// client-side Manager that tracks held leases, renews them, and sweeps for
// expiry.
package lock

import (
	"context"
	"time"

	"github.com/jun/gophboard/internal/model"
)

// Store persists leases with conditional-write semantics. At most one
// non-expired lease exists per object; the conditional write is the only
// transactional primitive in the system.
type Store interface {
	// TryAcquire attempts to claim the object for userID. It succeeds if the
	// object is unlocked, the existing lease has expired, or userID already
	// holds it (refresh). Contention is reported as ok == false, not an
	// error.
	TryAcquire(ctx context.Context, objectID, userID string) (*model.Lease, bool, error)

	// Renew re-stamps the lease's acquisition time if userID still holds it.
	// ok == false means the lease was reassigned or released underneath us.
	Renew(ctx context.Context, objectID, userID string) (*model.Lease, bool, error)

	// Release clears the lease if and only if userID holds it. Releasing a
	// lease held by someone else (or nobody) is a no-op.
	Release(ctx context.Context, objectID, userID string) error

	// Get returns the active lease on the object, or nil if the object is
	// unlocked or the lease has expired.
	Get(ctx context.Context, objectID string) (*model.Lease, error)
}

// LockedByOther reports whether the object's lock triple denotes an active
// lease held by someone other than selfID. A nil holder, a self-held lease,
// or an expired lease all read as unlocked.
//
// Every reader evaluates this locally against the wall clock; there is no
// round trip, so readers may see a lock as held for up to the lease timeout
// after the holder vanishes. That staleness is the accepted trade-off.
func LockedByOther(obj *model.CanvasObject, selfID string, now time.Time) bool {
	if obj.LockedBy == nil || *obj.LockedBy == selfID {
		return false
	}
	if obj.LockedAt == nil {
		return false
	}
	timeout := obj.LockTimeoutMs
	if timeout <= 0 {
		timeout = model.DefaultLockTimeoutMs
	}
	return now.UnixMilli()-*obj.LockedAt <= timeout
}
