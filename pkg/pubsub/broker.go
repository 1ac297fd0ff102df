package pubsub

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// DefaultBuffer is the per-subscriber channel buffer.
const DefaultBuffer = 16

// Broker is an in-memory topic broker. Publishing never blocks: a
// subscriber whose buffer is full misses the value.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[string]chan interface{}
	closed bool
	buffer int
}

// New creates a broker with the default subscriber buffer.
func New() *Broker {
	return NewWithBuffer(DefaultBuffer)
}

// NewWithBuffer creates a broker with a custom per-subscriber buffer.
func NewWithBuffer(buffer int) *Broker {
	if buffer < 1 {
		buffer = 1
	}
	return &Broker{
		topics: make(map[string]map[string]chan interface{}),
		buffer: buffer,
	}
}

// Subscribe returns a channel delivering every value published to topic
// after this call. The subscription ends, and the channel is closed, when
// ctx is cancelled or the broker is closed.
func (b *Broker) Subscribe(ctx context.Context, topic string) <-chan interface{} {
	ch := make(chan interface{}, b.buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch
	}
	id := uuid.NewString()
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[string]chan interface{})
		b.topics[topic] = subs
	}
	subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.unsubscribe(topic, id)
	}()

	return ch
}

func (b *Broker) unsubscribe(topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		return
	}
	ch, ok := subs[id]
	if !ok {
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
	close(ch)
}

// Publish delivers v to every current subscriber of topic and returns the
// number of subscribers that received it.
func (b *Broker) Publish(topic string, v interface{}) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0
	}

	delivered := 0
	for _, ch := range b.topics[topic] {
		select {
		case ch <- v:
			delivered++
		default:
			// Subscriber is not keeping up; drop rather than block.
		}
	}
	return delivered
}

// SubscriberCount returns the number of subscribers on a topic.
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Close shuts the broker down and closes every subscriber channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for topic, subs := range b.topics {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.topics, topic)
	}
}
