// Package bus carries routing events between server instances over a single
// logical publish/subscribe channel.
package bus

import (
	"context"

	"chatmesh/internal/protocol"
)

// Bus is the cross-process event fabric. Subscribe returns a channel that
// yields events in the order the underlying transport delivers them to this
// subscriber; no ordering holds across publishers.
type Bus interface {
	Publish(ctx context.Context, ev protocol.Event) error
	Subscribe(ctx context.Context) (<-chan protocol.Event, error)
}
