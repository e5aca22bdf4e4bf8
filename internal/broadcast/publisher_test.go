package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestPublishPreservesEnqueueOrder(t *testing.T) {
	rdb := newTestRedis(t)
	topic := TopicSession("s1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub := rdb.Subscribe(ctx, topic)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	ch := sub.Channel()

	pub := NewRedisPublisher(rdb)
	const n = 50
	for i := 1; i <= n; i++ {
		pub.Enqueue(topic, &Message{Kind: KindMove, SessionID: "s1", Seq: uint64(i), At: time.Now()})
	}
	pub.Close()

	for i := 1; i <= n; i++ {
		select {
		case raw := <-ch:
			var m Message
			if err := json.Unmarshal([]byte(raw.Payload), &m); err != nil {
				t.Fatalf("decode message %d: %v", i, err)
			}
			if m.Seq != uint64(i) {
				t.Fatalf("out of order: got seq %d at position %d", m.Seq, i)
			}
			if m.Kind != KindMove || m.SessionID != "s1" {
				t.Fatalf("mangled envelope: %+v", m)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}

func TestTopicsIsolatePrivateMessages(t *testing.T) {
	rdb := newTestRedis(t)
	session := TopicSession("s1")
	private := TopicParticipant("s1", "u1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub := rdb.Subscribe(ctx, session)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	ch := sub.Channel()

	pub := NewRedisPublisher(rdb)
	pub.Enqueue(private, &Message{Kind: KindError, SessionID: "s1"})
	pub.Enqueue(session, &Message{Kind: KindGameOver, SessionID: "s1", Seq: 7})
	pub.Close()

	select {
	case raw := <-ch:
		var m Message
		if err := json.Unmarshal([]byte(raw.Payload), &m); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if m.Kind != KindGameOver {
			t.Fatalf("private message leaked to session topic: %+v", m)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for session message")
	}
}

func TestEnqueueAfterCloseDropped(t *testing.T) {
	rdb := newTestRedis(t)
	pub := NewRedisPublisher(rdb)
	pub.Close()
	// Must not panic or block.
	pub.Enqueue(TopicSession("s1"), &Message{Kind: KindMove, SessionID: "s1"})
	pub.Close()
}
