// Package protocol defines the routing events carried on the event bus and
// the line-oriented wire exchanges between client and server.
package protocol

import (
	"encoding/json"
	"fmt"
)

// EventType discriminates the routing event variants.
type EventType string

const (
	// EventRoomMessage fans content out to every local member of a room.
	EventRoomMessage EventType = "room_msg"
	// EventDirectMessage targets a single user wherever it is connected.
	EventDirectMessage EventType = "direct_msg"
)

// Event is the unit of cross-process routing, carried verbatim on the bus.
// Exactly one variant is populated, selected by Type.
type Event struct {
	Type          EventType `json:"type"`
	Room          string    `json:"room,omitempty"`
	Sender        string    `json:"sender,omitempty"`
	TargetUser    string    `json:"target_user,omitempty"`
	Content       string    `json:"content"`
	ExcludeSender bool      `json:"exclude_sender,omitempty"`
}

// NewRoomMessage builds a room broadcast event. When excludeSender is set,
// listeners skip connections registered to sender.
func NewRoomMessage(room, sender, content string, excludeSender bool) Event {
	return Event{
		Type:          EventRoomMessage,
		Room:          room,
		Sender:        sender,
		Content:       content,
		ExcludeSender: excludeSender,
	}
}

// NewDirectMessage builds an event addressed to a single user.
func NewDirectMessage(targetUser, content string) Event {
	return Event{
		Type:       EventDirectMessage,
		TargetUser: targetUser,
		Content:    content,
	}
}

// Encode serializes the event for the bus.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses a bus payload, rejecting unknown variants so they are
// dropped once at the listener boundary.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, err
	}
	switch ev.Type {
	case EventRoomMessage, EventDirectMessage:
		return ev, nil
	default:
		return ev, fmt.Errorf("unknown event type %q", ev.Type)
	}
}
