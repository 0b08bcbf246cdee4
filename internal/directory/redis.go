package directory

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	roomKeyPrefix = "room:"
	subsKeyPrefix = "subs:"
	userRoomKey   = "user:room"
	sessionsKey   = "sessions"
)

// Redis implements Directory on top of a shared Redis instance. All writes
// rely on Redis's own per-command atomicity; multi-key updates are pipelined
// but intentionally not transactional.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func roomKey(room string) string {
	return roomKeyPrefix + room
}

func subsKey(publisher string) string {
	return subsKeyPrefix + publisher
}

// CurrentRoom returns the recorded room for a user, or "" when absent.
func (d *Redis) CurrentRoom(ctx context.Context, username string) (string, error) {
	room, err := d.client.HGet(ctx, userRoomKey, username).Result()
	if err == redis.Nil {
		return "", nil
	}
	return room, err
}

// AddToRoom records room membership and sets the user's current room.
func (d *Redis) AddToRoom(ctx context.Context, username, room string) error {
	pipe := d.client.Pipeline()
	pipe.SAdd(ctx, roomKey(room), username)
	pipe.HSet(ctx, userRoomKey, username, room)
	_, err := pipe.Exec(ctx)
	return err
}

// MoveUser shifts membership between rooms and repoints the current room.
func (d *Redis) MoveUser(ctx context.Context, username, fromRoom, toRoom string) error {
	pipe := d.client.Pipeline()
	pipe.SRem(ctx, roomKey(fromRoom), username)
	pipe.SAdd(ctx, roomKey(toRoom), username)
	pipe.HSet(ctx, userRoomKey, username, toRoom)
	_, err := pipe.Exec(ctx)
	return err
}

// RemoveUser drops the user's membership record and current-room entry.
func (d *Redis) RemoveUser(ctx context.Context, username, room string) error {
	pipe := d.client.Pipeline()
	pipe.SRem(ctx, roomKey(room), username)
	pipe.HDel(ctx, userRoomKey, username)
	_, err := pipe.Exec(ctx)
	return err
}

// ListRooms enumerates every room key with its member count.
func (d *Redis) ListRooms(ctx context.Context) ([]RoomCount, error) {
	keys, err := d.client.Keys(ctx, roomKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}
	rooms := make([]RoomCount, 0, len(keys))
	for _, key := range keys {
		count, err := d.client.SCard(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, RoomCount{
			Name:    strings.TrimPrefix(key, roomKeyPrefix),
			Members: int(count),
		})
	}
	return rooms, nil
}

// AddSubscriber records (subscriber, publisher); SAdd makes re-adding a no-op.
func (d *Redis) AddSubscriber(ctx context.Context, publisher, subscriber string) error {
	return d.client.SAdd(ctx, subsKey(publisher), subscriber).Err()
}

// RemoveSubscriber drops the relation, reporting whether it existed.
func (d *Redis) RemoveSubscriber(ctx context.Context, publisher, subscriber string) (bool, error) {
	removed, err := d.client.SRem(ctx, subsKey(publisher), subscriber).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

// Subscribers lists the users subscribed to a publisher.
func (d *Redis) Subscribers(ctx context.Context, publisher string) ([]string, error) {
	return d.client.SMembers(ctx, subsKey(publisher)).Result()
}

// Session returns the stored session record for a user, if any.
func (d *Redis) Session(ctx context.Context, username string) (string, bool, error) {
	record, err := d.client.HGet(ctx, sessionsKey, username).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return record, true, nil
}

// PutSession records a user's live session.
func (d *Redis) PutSession(ctx context.Context, username, record string) error {
	return d.client.HSet(ctx, sessionsKey, username, record).Err()
}

// DeleteSession clears a user's session record.
func (d *Redis) DeleteSession(ctx context.Context, username string) error {
	return d.client.HDel(ctx, sessionsKey, username).Err()
}
