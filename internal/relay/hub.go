// Package relay implements the websocket fan-out hub behind the ephemeral
// transform channel. The hub keeps only the latest record per key, replays
// that state to newly connected clients, and drops a client's records when
// its connection dies — the server-side half of crash cleanup (clients also
// apply their own staleness cutoff).
package relay

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jun/gophboard/internal/broadcast"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans ephemeral messages out to every connected client.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool
	records map[string]broadcast.Record
	owners  map[string]*client // key -> publishing connection
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) send(msg broadcast.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		records: make(map[string]broadcast.Record),
		owners:  make(map[string]*client),
	}
}

// ServeWS upgrades the request and runs the connection's read loop until it
// disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("relay: upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn}
	h.register(c)
	defer h.unregister(c)

	for {
		var msg broadcast.Message
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("relay: client disconnected: %v", err)
			return
		}

		switch msg.Op {
		case broadcast.OpPut:
			if msg.Record == nil {
				continue
			}
			h.mu.Lock()
			h.records[msg.Record.Key] = *msg.Record
			h.owners[msg.Record.Key] = c
			h.mu.Unlock()
			h.fanOut(msg)
		case broadcast.OpDelete:
			h.mu.Lock()
			delete(h.records, msg.Key)
			delete(h.owners, msg.Key)
			h.mu.Unlock()
			h.fanOut(msg)
		}
	}
}

// register adds the client and replays current state to it, so a client
// joining mid-gesture sees the in-progress previews.
func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	replay := make([]broadcast.Record, 0, len(h.records))
	for _, rec := range h.records {
		replay = append(replay, rec)
	}
	h.mu.Unlock()

	for i := range replay {
		if err := c.send(broadcast.Message{Op: broadcast.OpPut, Record: &replay[i]}); err != nil {
			return
		}
	}
}

// unregister removes the client and deletes every record it published,
// broadcasting the deletions so other clients drop its previews without
// waiting out the staleness window.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	var orphaned []string
	for key, owner := range h.owners {
		if owner == c {
			orphaned = append(orphaned, key)
			delete(h.records, key)
			delete(h.owners, key)
		}
	}
	h.mu.Unlock()

	c.conn.Close()
	for _, key := range orphaned {
		h.fanOut(broadcast.Message{Op: broadcast.OpDelete, Key: key})
	}
}

// fanOut sends the message to every connected client, including the sender;
// consumers filter their own records by user id.
func (h *Hub) fanOut(msg broadcast.Message) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.send(msg); err != nil {
			log.Printf("relay: write failed, dropping client: %v", err)
		}
	}
}
