package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/obslog"
)

// Publisher accepts messages for delivery. Enqueue never blocks and never
// fails from the caller's point of view: it is called inside the session
// mutation boundary, so a slow subscriber or a slow Redis must not stall a
// player's move.
type Publisher interface {
	Enqueue(topic string, msg *Message)
}

// RedisPublisher drains a FIFO queue into Redis PUBLISH on a single
// goroutine. One drainer means enqueue order is delivery order, which is
// what gives each session its total broadcast order: enqueues happen under
// the session lock, and Redis pub/sub preserves per-connection publish
// order to every subscriber.
type RedisPublisher struct {
	rdb *redis.Client

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []outbound
	closed bool
	done   chan struct{}
}

type outbound struct {
	topic string
	msg   *Message
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	p := &RedisPublisher{rdb: rdb, done: make(chan struct{})}
	p.cond = sync.NewCond(&p.mu)
	go p.drain()
	return p
}

func (p *RedisPublisher) Enqueue(topic string, msg *Message) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.queue = append(p.queue, outbound{topic: topic, msg: msg})
	p.mu.Unlock()
	p.cond.Signal()
}

// Close stops accepting messages, flushes what is queued, and waits for the
// drainer to exit.
func (p *RedisPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.cond.Signal()
	<-p.done
}

func (p *RedisPublisher) drain() {
	defer close(p.done)
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.closed {
			p.mu.Unlock()
			return
		}
		next := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.publish(next)
	}
}

func (p *RedisPublisher) publish(out outbound) {
	raw, err := json.Marshal(out.msg)
	if err != nil {
		obslog.L().Error("broadcast_encode_error",
			zap.String("topic", out.topic),
			zap.String("kind", string(out.msg.Kind)),
			zap.Error(err),
		)
		return
	}
	if err := p.rdb.Publish(context.Background(), out.topic, raw).Err(); err != nil {
		obslog.L().Error("broadcast_publish_error",
			zap.String("topic", out.topic),
			zap.String("kind", string(out.msg.Kind)),
			zap.String("session_id", out.msg.SessionID),
			zap.Error(err),
		)
	}
}
