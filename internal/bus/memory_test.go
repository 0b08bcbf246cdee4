package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatmesh/internal/protocol"
)

func collect(t *testing.T, ch <-chan protocol.Event, n int) []protocol.Event {
	t.Helper()
	events := make([]protocol.Event, 0, n)
	deadline := time.After(2 * time.Second)
	for len(events) < n {
		select {
		case ev := <-ch:
			events = append(events, ev)
		case <-deadline:
			t.Fatalf("timed out after %d of %d events", len(events), n)
		}
	}
	return events
}

func TestMemory_EverySubscriberSeesEveryEventInOrder(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewMemory()
	first, err := b.Subscribe(ctx)
	req.NoError(err)
	second, err := b.Subscribe(ctx)
	req.NoError(err)

	published := []protocol.Event{
		protocol.NewRoomMessage("lobby", "a", "a: one\n", true),
		protocol.NewDirectMessage("b", "[Sub] a: one\n"),
		protocol.NewRoomMessage("dev", "b", "b: two\n", false),
	}
	for _, ev := range published {
		req.NoError(b.Publish(ctx, ev))
	}

	req.Equal(published, collect(t, first, len(published)))
	req.Equal(published, collect(t, second, len(published)))
}

func TestMemory_SubscriptionEndsWithContext(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())

	b := NewMemory()
	ch, err := b.Subscribe(ctx)
	req.NoError(err)

	cancel()

	req.Eventually(func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond, "channel must close after cancel")

	// Publishing after the subscriber is gone must not block or deliver.
	done := make(chan struct{})
	go func() {
		_ = b.Publish(context.Background(), protocol.NewDirectMessage("b", "late\n"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a dead subscriber")
	}
}
