package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jun/gophboard/internal/broadcast"
	"github.com/jun/gophboard/internal/model"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *broadcast.RelayStore {
	t.Helper()
	rs, err := broadcast.DialRelay(context.Background(), url)
	if err != nil {
		t.Fatalf("DialRelay failed: %v", err)
	}
	t.Cleanup(func() { rs.Close() })
	return rs
}

func testRecord(objectID, userID string) broadcast.Record {
	now := time.Now().UnixMilli()
	return broadcast.Record{
		Key:       broadcast.ObjectKey(objectID),
		UserID:    userID,
		Update:    &model.TransformUpdate{ObjectID: objectID, UserID: userID, X: 42, Timestamp: now},
		Timestamp: now,
	}
}

func waitRecord(t *testing.T, ch <-chan broadcast.Record) broadcast.Record {
	t.Helper()
	select {
	case rec := <-ch:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for record")
		return broadcast.Record{}
	}
}

func TestHub_FanOutBetweenClients(t *testing.T) {
	_, url := startHub(t)
	publisher := dial(t, url)
	subscriber := dial(t, url)

	records := make(chan broadcast.Record, 10)
	stop, err := subscriber.Subscribe(context.Background(), func(r broadcast.Record) { records <- r }, func(string) {})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer stop()

	if err := publisher.Put(context.Background(), testRecord("r1", "alice")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rec := waitRecord(t, records)
	if rec.Key != broadcast.ObjectKey("r1") || rec.Update == nil || rec.Update.X != 42 {
		t.Errorf("received %+v, want r1 at X=42", rec)
	}
}

func TestHub_ReplaysStateToLateJoiner(t *testing.T) {
	hub, url := startHub(t)
	publisher := dial(t, url)

	if err := publisher.Put(context.Background(), testRecord("r1", "alice")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Wait for the hub to take the record before the second client joins.
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.Lock()
		_, ok := hub.records[broadcast.ObjectKey("r1")]
		hub.mu.Unlock()
		if ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("hub never recorded the put")
		}
		time.Sleep(5 * time.Millisecond)
	}

	late := dial(t, url)
	records := make(chan broadcast.Record, 10)
	stop, err := late.Subscribe(context.Background(), func(r broadcast.Record) { records <- r }, func(string) {})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer stop()

	rec := waitRecord(t, records)
	if rec.Key != broadcast.ObjectKey("r1") {
		t.Errorf("late joiner got %+v, want replayed r1", rec)
	}
}

func TestHub_DisconnectDeletesClientRecords(t *testing.T) {
	_, url := startHub(t)
	publisher := dial(t, url)
	subscriber := dial(t, url)

	deletes := make(chan string, 10)
	stop, err := subscriber.Subscribe(context.Background(), func(broadcast.Record) {}, func(key string) { deletes <- key })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer stop()

	if err := publisher.Put(context.Background(), testRecord("r1", "alice")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	publisher.Close()

	select {
	case key := <-deletes:
		if key != broadcast.ObjectKey("r1") {
			t.Errorf("delete key = %q, want %q", key, broadcast.ObjectKey("r1"))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub never broadcast the disconnect cleanup")
	}
}
