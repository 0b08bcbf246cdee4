// Package directory exposes the cluster-wide authoritative record of rooms,
// sessions, and subscriptions. Every server instance reads and writes the
// same directory; process-local connection state is only ever a cache of it.
package directory

import "context"

// RoomCount pairs a room name with its current member cardinality.
type RoomCount struct {
	Name    string
	Members int
}

// Directory is the authoritative shared state store. Implementations must
// make each operation individually atomic; no cross-operation transactions
// are assumed by callers.
type Directory interface {
	// CurrentRoom returns the recorded room for a user, or "" when absent.
	CurrentRoom(ctx context.Context, username string) (string, error)
	// AddToRoom records room membership and sets the user's current room.
	AddToRoom(ctx context.Context, username, room string) error
	// MoveUser removes the user from one room's member set, adds it to
	// another, and repoints the user's current room.
	MoveUser(ctx context.Context, username, fromRoom, toRoom string) error
	// RemoveUser drops the user's membership record and current-room entry.
	RemoveUser(ctx context.Context, username, room string) error
	// ListRooms enumerates every known room with its member count.
	ListRooms(ctx context.Context) ([]RoomCount, error)

	// AddSubscriber records (subscriber, publisher); adding twice is a no-op.
	AddSubscriber(ctx context.Context, publisher, subscriber string) error
	// RemoveSubscriber drops the relation, reporting whether it existed.
	RemoveSubscriber(ctx context.Context, publisher, subscriber string) (bool, error)
	// Subscribers lists the users subscribed to a publisher.
	Subscribers(ctx context.Context, publisher string) ([]string, error)

	// Session returns the stored session record for a user, if any.
	Session(ctx context.Context, username string) (string, bool, error)
	// PutSession records a user's live session.
	PutSession(ctx context.Context, username, record string) error
	// DeleteSession clears a user's session record.
	DeleteSession(ctx context.Context, username string) error
}
