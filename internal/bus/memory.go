package bus

import (
	"context"
	"sync"

	"chatmesh/internal/protocol"
)

const memorySubscriberBuffer = 256

// Memory is an in-process Bus. Every subscriber receives every published
// event in publish order, which makes it a faithful stand-in for the Redis
// fabric in tests and single-instance runs.
type Memory struct {
	mu   sync.Mutex
	subs []chan protocol.Event
}

// NewMemory initializes a bus with no subscribers.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish fans the event out to every current subscriber.
func (b *Memory) Publish(_ context.Context, ev protocol.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		sub <- ev
	}
	return nil
}

// Subscribe registers a new subscriber channel for the life of the context.
func (b *Memory) Subscribe(ctx context.Context) (<-chan protocol.Event, error) {
	ch := make(chan protocol.Event, memorySubscriberBuffer)

	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		for i, sub := range b.subs {
			if sub == ch {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}
