package server

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"chatmesh/internal/protocol"
)

// handleLine interprets one trimmed line from an authenticated connection.
// The caller's current room is resolved once, up front, and threaded through
// so a command acts on a single consistent view of it. Any returned error is
// fatal to the connection; replies for user mistakes go over the wire and
// return nil.
func (a *App) handleLine(ctx context.Context, sess *clientSession, username, line string) error {
	room, err := a.dir.CurrentRoom(ctx, username)
	if err != nil {
		return fmt.Errorf("resolve room: %w", err)
	}
	if room == "" {
		room = a.cfg.DefaultRoom
	}

	switch {
	case line == "/join" || strings.HasPrefix(line, "/join "):
		return a.handleJoin(ctx, sess, username, room, argOf(line, "/join"))
	case line == "/leave":
		return a.handleLeave(ctx, sess, username, room)
	case line == "/rooms":
		return a.handleRooms(ctx, sess)
	case line == "/subscribe" || strings.HasPrefix(line, "/subscribe "):
		return a.handleSubscribe(ctx, sess, username, argOf(line, "/subscribe"))
	case line == "/unsubscribe" || strings.HasPrefix(line, "/unsubscribe "):
		return a.handleUnsubscribe(ctx, sess, username, argOf(line, "/unsubscribe"))
	default:
		// Anything else, slash-prefixed or not, is chat. Unknown commands
		// broadcasting verbatim is documented behavior.
		return a.broadcastChat(ctx, username, room, line)
	}
}

func argOf(line, command string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, command))
}

func (a *App) handleJoin(ctx context.Context, sess *clientSession, username, current, newRoom string) error {
	if newRoom == "" {
		return sess.send(ctx, "Usage: /join <room>\n")
	}
	return a.moveRooms(ctx, sess, username, current, newRoom,
		fmt.Sprintf("🟢 You joined %s\n", newRoom))
}

func (a *App) handleLeave(ctx context.Context, sess *clientSession, username, current string) error {
	return a.moveRooms(ctx, sess, username, current, a.cfg.DefaultRoom,
		fmt.Sprintf("🟢 You returned to %s\n", a.cfg.DefaultRoom))
}

// moveRooms is the shared join/leave shape: shared directory first, then the
// local registry, then the acting user's confirmation, then the departure
// and arrival announcements. The announcements exclude the sender so the
// acting connection only sees its direct confirmation.
func (a *App) moveRooms(ctx context.Context, sess *clientSession, username, current, target, confirmation string) error {
	if err := a.dir.MoveUser(ctx, username, current, target); err != nil {
		return fmt.Errorf("move user: %w", err)
	}
	a.registry.MoveLocal(sess, current, target)

	if err := sess.send(ctx, confirmation); err != nil {
		return err
	}
	if err := a.bus.Publish(ctx, protocol.NewRoomMessage(current, username,
		fmt.Sprintf("🔴 %s left %s\n", username, current), true)); err != nil {
		return fmt.Errorf("publish departure: %w", err)
	}
	if err := a.bus.Publish(ctx, protocol.NewRoomMessage(target, username,
		fmt.Sprintf("🟢 %s joined %s\n", username, target), true)); err != nil {
		return fmt.Errorf("publish arrival: %w", err)
	}
	return nil
}

func (a *App) handleRooms(ctx context.Context, sess *clientSession) error {
	rooms, err := a.dir.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })

	entries := make([]string, 0, len(rooms))
	for _, room := range rooms {
		entries = append(entries, fmt.Sprintf("%s(%d)", room.Name, room.Members))
	}
	return sess.send(ctx, fmt.Sprintf("Rooms: %s\n", strings.Join(entries, ", ")))
}

func (a *App) handleSubscribe(ctx context.Context, sess *clientSession, username, target string) error {
	if target == "" {
		return sess.send(ctx, "Usage: /subscribe <username>\n")
	}
	exists, err := a.store.UserExists(ctx, target)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	switch {
	case !exists:
		return sess.send(ctx, fmt.Sprintf("🔴 User %s does not exist\n", target))
	case target == username:
		return sess.send(ctx, "🔴 Cannot subscribe to self\n")
	default:
		if err := a.dir.AddSubscriber(ctx, target, username); err != nil {
			return fmt.Errorf("add subscriber: %w", err)
		}
		return sess.send(ctx, fmt.Sprintf("🟢 Subscribed to %s\n", target))
	}
}

func (a *App) handleUnsubscribe(ctx context.Context, sess *clientSession, username, target string) error {
	if target == "" {
		return sess.send(ctx, "Usage: /unsubscribe <username>\n")
	}
	removed, err := a.dir.RemoveSubscriber(ctx, target, username)
	if err != nil {
		return fmt.Errorf("remove subscriber: %w", err)
	}
	if removed {
		return sess.send(ctx, fmt.Sprintf("🟢 Unsubscribed from %s\n", target))
	}
	return sess.send(ctx, fmt.Sprintf("🟡 Not subscribed to %s\n", target))
}

// broadcastChat publishes one room event for the caller's current room and
// one individually addressed event per subscriber of the caller.
func (a *App) broadcastChat(ctx context.Context, username, room, line string) error {
	event := protocol.NewRoomMessage(room, username, fmt.Sprintf("%s: %s\n", username, line), true)
	if err := a.bus.Publish(ctx, event); err != nil {
		return fmt.Errorf("publish chat: %w", err)
	}

	subscribers, err := a.dir.Subscribers(ctx, username)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}
	for _, subscriber := range subscribers {
		direct := protocol.NewDirectMessage(subscriber, fmt.Sprintf("[Sub] %s: %s\n", username, line))
		if err := a.bus.Publish(ctx, direct); err != nil {
			return fmt.Errorf("publish to subscriber: %w", err)
		}
	}
	return nil
}
