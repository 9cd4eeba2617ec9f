package lock

import (
	"context"
	"math/rand"
	"testing"
	"time"
)

// fakeClock is a controllable time source for lease-timing tests, so a 31
// second scenario doesn't sleep for 31 seconds.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryStore_AcquireAndRelease(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	lease, ok, err := s.TryAcquire(ctx, "r1", "alice")
	if err != nil {
		t.Fatalf("TryAcquire failed: %v", err)
	}
	if !ok {
		t.Fatal("expected acquire to succeed on unlocked object")
	}
	if lease.ObjectID != "r1" || lease.UserID != "alice" {
		t.Errorf("lease mismatch: got %+v", lease)
	}

	if err := s.Release(ctx, "r1", "alice"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	got, _ := s.Get(ctx, "r1")
	if got != nil {
		t.Errorf("expected nil lease after release, got %+v", got)
	}
}

func TestMemoryStore_ReacquireSameUser(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, ok, _ := s.TryAcquire(ctx, "r1", "alice"); !ok {
		t.Fatal("first acquire failed")
	}
	if _, ok, _ := s.TryAcquire(ctx, "r1", "alice"); !ok {
		t.Error("same user should be able to re-acquire")
	}
}

func TestMemoryStore_ContentionIsNotAnError(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, ok, _ := s.TryAcquire(ctx, "r1", "alice"); !ok {
		t.Fatal("first acquire failed")
	}

	lease, ok, err := s.TryAcquire(ctx, "r1", "bob")
	if err != nil {
		t.Errorf("contention must not surface as an error, got %v", err)
	}
	if ok || lease != nil {
		t.Error("expected acquire to fail while alice holds the lease")
	}
}

func TestMemoryStore_ExpiryLiveness(t *testing.T) {
	// Scenario from the locking protocol: alice acquires with a 30s
	// timeout; bob fails at t+1s and succeeds at t+31s with no renewals in
	// between.
	clock := newFakeClock()
	s := NewMemoryStore()
	s.now = clock.now
	ctx := context.Background()

	if _, ok, _ := s.TryAcquire(ctx, "r1", "alice"); !ok {
		t.Fatal("alice failed to acquire")
	}

	clock.advance(1 * time.Second)
	if _, ok, _ := s.TryAcquire(ctx, "r1", "bob"); ok {
		t.Fatal("bob acquired while alice's lease was active")
	}

	clock.advance(30 * time.Second) // t+31s, lease timed out at t+30s
	lease, ok, err := s.TryAcquire(ctx, "r1", "bob")
	if err != nil {
		t.Fatalf("TryAcquire failed: %v", err)
	}
	if !ok {
		t.Fatal("bob should acquire an expired lease")
	}
	if lease.UserID != "bob" {
		t.Errorf("lease holder = %q, want bob", lease.UserID)
	}
}

func TestMemoryStore_IdempotentRelease(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.TryAcquire(ctx, "r1", "alice")

	// Releasing someone else's lease is a no-op and must never clear it.
	if err := s.Release(ctx, "r1", "bob"); err != nil {
		t.Errorf("foreign release should be a no-op, got error %v", err)
	}
	lease, _ := s.Get(ctx, "r1")
	if lease == nil || lease.UserID != "alice" {
		t.Errorf("alice's lease was clobbered: %+v", lease)
	}

	// Releasing a nonexistent lease is also a no-op.
	if err := s.Release(ctx, "ghost", "bob"); err != nil {
		t.Errorf("release of unheld object errored: %v", err)
	}

	// Double release by the owner.
	if err := s.Release(ctx, "r1", "alice"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := s.Release(ctx, "r1", "alice"); err != nil {
		t.Errorf("second release errored: %v", err)
	}
}

func TestMemoryStore_RenewExtendsLease(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore()
	s.now = clock.now
	ctx := context.Background()

	s.TryAcquire(ctx, "r1", "alice")

	clock.advance(20 * time.Second)
	if _, ok, _ := s.Renew(ctx, "r1", "alice"); !ok {
		t.Fatal("renew of self-held lease failed")
	}

	// 25s after the renewal: without it the lease would be 45s old.
	clock.advance(25 * time.Second)
	if _, ok, _ := s.TryAcquire(ctx, "r1", "bob"); ok {
		t.Error("bob acquired a renewed, still-active lease")
	}
}

func TestMemoryStore_RenewRejectedForNonHolder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.TryAcquire(ctx, "r1", "alice")

	_, ok, err := s.Renew(ctx, "r1", "bob")
	if err != nil {
		t.Errorf("non-holder renew must not error, got %v", err)
	}
	if ok {
		t.Error("non-holder renew must be rejected")
	}
}

func TestMemoryStore_GetHidesExpiredLease(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore()
	s.now = clock.now
	ctx := context.Background()

	s.TryAcquire(ctx, "r1", "alice")
	clock.advance(31 * time.Second)

	lease, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if lease != nil {
		t.Errorf("expired lease must read as nil, got %+v", lease)
	}
}

// TestMemoryStore_MutualExclusion runs randomized acquire/renew/release
// sequences for several holders against one object and checks that two
// distinct holders never believe they both hold an active lease.
func TestMemoryStore_MutualExclusion(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore()
	s.now = clock.now
	ctx := context.Background()

	rng := rand.New(rand.NewSource(42))
	users := []string{"alice", "bob", "carol"}
	holding := make(map[string]bool)

	for i := 0; i < 2000; i++ {
		u := users[rng.Intn(len(users))]
		switch rng.Intn(4) {
		case 0:
			if _, ok, _ := s.TryAcquire(ctx, "r1", u); ok {
				holding[u] = true
			}
		case 1:
			if _, ok, _ := s.Renew(ctx, "r1", u); !ok {
				delete(holding, u)
			}
		case 2:
			s.Release(ctx, "r1", u)
			delete(holding, u)
		case 3:
			clock.advance(time.Duration(rng.Intn(10000)) * time.Millisecond)
		}

		// Anyone whose lease expired no longer holds.
		lease, _ := s.Get(ctx, "r1")
		for u := range holding {
			if lease == nil || lease.UserID != u {
				delete(holding, u)
			}
		}
		if len(holding) > 1 {
			t.Fatalf("step %d: multiple active holders: %v", i, holding)
		}
	}
}
