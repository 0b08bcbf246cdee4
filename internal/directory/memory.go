package directory

import (
	"context"
	"sync"
)

// Memory is an in-process Directory with the same semantics as the Redis
// implementation. It backs tests and single-instance deployments.
type Memory struct {
	mu       sync.Mutex
	rooms    map[string]map[string]struct{}
	userRoom map[string]string
	subs     map[string]map[string]struct{}
	sessions map[string]string
}

// NewMemory initializes an empty in-process directory.
func NewMemory() *Memory {
	return &Memory{
		rooms:    make(map[string]map[string]struct{}),
		userRoom: make(map[string]string),
		subs:     make(map[string]map[string]struct{}),
		sessions: make(map[string]string),
	}
}

// CurrentRoom returns the recorded room for a user, or "" when absent.
func (d *Memory) CurrentRoom(_ context.Context, username string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.userRoom[username], nil
}

// AddToRoom records room membership and sets the user's current room.
func (d *Memory) AddToRoom(_ context.Context, username, room string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addLocked(username, room)
	return nil
}

// MoveUser shifts membership between rooms and repoints the current room.
func (d *Memory) MoveUser(_ context.Context, username, fromRoom, toRoom string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if members, ok := d.rooms[fromRoom]; ok {
		delete(members, username)
	}
	d.addLocked(username, toRoom)
	return nil
}

// RemoveUser drops the user's membership record and current-room entry.
func (d *Memory) RemoveUser(_ context.Context, username, room string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if members, ok := d.rooms[room]; ok {
		delete(members, username)
	}
	delete(d.userRoom, username)
	return nil
}

// ListRooms enumerates every known room with its member count.
func (d *Memory) ListRooms(_ context.Context) ([]RoomCount, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rooms := make([]RoomCount, 0, len(d.rooms))
	for name, members := range d.rooms {
		rooms = append(rooms, RoomCount{Name: name, Members: len(members)})
	}
	return rooms, nil
}

// AddSubscriber records (subscriber, publisher); adding twice is a no-op.
func (d *Memory) AddSubscriber(_ context.Context, publisher, subscriber string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subs[publisher]; !ok {
		d.subs[publisher] = make(map[string]struct{})
	}
	d.subs[publisher][subscriber] = struct{}{}
	return nil
}

// RemoveSubscriber drops the relation, reporting whether it existed.
func (d *Memory) RemoveSubscriber(_ context.Context, publisher, subscriber string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subscribers, ok := d.subs[publisher]
	if !ok {
		return false, nil
	}
	if _, ok := subscribers[subscriber]; !ok {
		return false, nil
	}
	delete(subscribers, subscriber)
	return true, nil
}

// Subscribers lists the users subscribed to a publisher.
func (d *Memory) Subscribers(_ context.Context, publisher string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subscribers := make([]string, 0, len(d.subs[publisher]))
	for subscriber := range d.subs[publisher] {
		subscribers = append(subscribers, subscriber)
	}
	return subscribers, nil
}

// Session returns the stored session record for a user, if any.
func (d *Memory) Session(_ context.Context, username string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	record, ok := d.sessions[username]
	return record, ok, nil
}

// PutSession records a user's live session.
func (d *Memory) PutSession(_ context.Context, username, record string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[username] = record
	return nil
}

// DeleteSession clears a user's session record.
func (d *Memory) DeleteSession(_ context.Context, username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sessions, username)
	return nil
}

func (d *Memory) addLocked(username, room string) {
	if _, ok := d.rooms[room]; !ok {
		d.rooms[room] = make(map[string]struct{})
	}
	d.rooms[room][username] = struct{}{}
	d.userRoom[username] = room
}
