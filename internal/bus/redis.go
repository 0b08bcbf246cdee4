package bus

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"chatmesh/internal/protocol"
)

// Redis implements Bus over one Redis pub/sub channel shared by every
// server instance.
type Redis struct {
	client  *redis.Client
	channel string
}

// NewRedis wraps an existing client with the configured channel name.
func NewRedis(client *redis.Client, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

// Publish marshals the event and publishes it to the shared channel.
func (b *Redis) Publish(ctx context.Context, ev protocol.Event) error {
	data, err := ev.Encode()
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Subscribe drains the shared channel for the life of the context. The
// returned channel never closes on transient transport errors; go-redis
// re-establishes the subscription underneath it. Malformed payloads are
// dropped here so listeners only ever see well-formed events.
func (b *Redis) Subscribe(ctx context.Context) (<-chan protocol.Event, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan protocol.Event, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				ev, err := protocol.DecodeEvent([]byte(msg.Payload))
				if err != nil {
					log.Printf("bus: drop event channel=%s err=%v", b.channel, err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
