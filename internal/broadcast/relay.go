package broadcast

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Message is the wire envelope between relay clients and the relay hub.
type Message struct {
	Op     string  `json:"op"`
	Record *Record `json:"record,omitempty"`
	Key    string  `json:"key,omitempty"`
}

// Message ops.
const (
	OpPut    = "put"
	OpDelete = "delete"
)

// RelayStore implements EphemeralStore over a websocket connection to the
// relay hub. The hub fans every put/delete out to all connected clients;
// nothing is durable, which is exactly what this channel wants.
type RelayStore struct {
	conn    *websocket.Conn
	writeMu sync.Mutex // gorilla allows one concurrent writer
}

// DialRelay connects to the relay hub at the given websocket URL.
func DialRelay(ctx context.Context, url string) (*RelayStore, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relay %s: %w", url, err)
	}
	return &RelayStore{conn: conn}, nil
}

func (r *RelayStore) Put(ctx context.Context, rec Record) error {
	return r.writeJSON(Message{Op: OpPut, Record: &rec})
}

func (r *RelayStore) Delete(ctx context.Context, key string) error {
	return r.writeJSON(Message{Op: OpDelete, Key: key})
}

// Subscribe reads hub messages until the connection closes or stop is
// called. stop closes the connection, which also ends any writes.
func (r *RelayStore) Subscribe(ctx context.Context, onRecord func(Record), onDelete func(key string)) (func(), error) {
	go func() {
		for {
			var msg Message
			if err := r.conn.ReadJSON(&msg); err != nil {
				if ctx.Err() == nil {
					log.Printf("relay: read loop ended: %v", err)
				}
				return
			}
			switch msg.Op {
			case OpPut:
				if msg.Record != nil {
					onRecord(*msg.Record)
				}
			case OpDelete:
				onDelete(msg.Key)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		r.conn.Close()
	}()

	return func() { r.conn.Close() }, nil
}

// Close closes the underlying connection.
func (r *RelayStore) Close() error {
	return r.conn.Close()
}

func (r *RelayStore) writeJSON(msg Message) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := r.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to relay: %w", err)
	}
	return nil
}
