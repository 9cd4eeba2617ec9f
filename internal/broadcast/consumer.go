package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/jun/gophboard/internal/model"
)

// Consumer tracks the live transform previews published by other users.
// Each client filters staleness independently, so a crashed holder's record
// disappears from every view within Staleness even though nobody cleared it.
type Consumer struct {
	store  EphemeralStore
	selfID string
	now    func() time.Time

	mu      sync.Mutex
	records map[string]Record
	stop    func()
}

// NewConsumer creates a Consumer that ignores the given user's own records.
func NewConsumer(store EphemeralStore, selfID string) *Consumer {
	return &Consumer{
		store:   store,
		selfID:  selfID,
		now:     time.Now,
		records: make(map[string]Record),
	}
}

// Start subscribes to the ephemeral store.
func (c *Consumer) Start(ctx context.Context) error {
	stop, err := c.store.Subscribe(ctx, c.onRecord, c.onDelete)
	if err != nil {
		return err
	}
	c.stop = stop
	return nil
}

// Close tears down the subscription.
func (c *Consumer) Close() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

// Overlays returns the active previews as object id -> transform, group
// records flattened, stale records dropped.
func (c *Consumer) Overlays() map[string]model.TransformUpdate {
	now := c.now()
	out := make(map[string]model.TransformUpdate)

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, rec := range c.records {
		if rec.Stale(now) {
			delete(c.records, key)
			continue
		}
		if rec.Update != nil {
			out[rec.Update.ObjectID] = *rec.Update
		}
		for id, u := range rec.Group {
			out[id] = u
		}
	}
	return out
}

func (c *Consumer) onRecord(rec Record) {
	if rec.UserID == c.selfID {
		return
	}
	c.mu.Lock()
	c.records[rec.Key] = rec
	c.mu.Unlock()
}

func (c *Consumer) onDelete(key string) {
	c.mu.Lock()
	delete(c.records, key)
	c.mu.Unlock()
}
