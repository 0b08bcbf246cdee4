package server

import (
	"log"

	"chatmesh/internal/protocol"
)

// runBusListener drains the event bus for the life of the process and fans
// each event out to matching local sessions. It is the delivery backbone:
// per-target failures are swallowed, and the loop only ends when the bus
// channel closes with the process context.
func (a *App) runBusListener(events <-chan protocol.Event) {
	for ev := range events {
		a.dispatchEvent(ev)
	}
	log.Printf("bus listener stopped instance=%s", a.instanceID)
}

func (a *App) dispatchEvent(ev protocol.Event) {
	switch ev.Type {
	case protocol.EventRoomMessage:
		for _, member := range a.registry.LocalMembers(ev.Room) {
			if ev.ExcludeSender && ev.Sender != "" && member.Username == ev.Sender {
				continue
			}
			if !member.Session.enqueue(ev.Content) {
				log.Printf("deliver: dropped room=%s user=%s remote=%s", ev.Room, member.Username, member.Session.remoteAddr())
			}
		}
	case protocol.EventDirectMessage:
		sess, ok := a.registry.LookupByUsername(ev.TargetUser)
		if !ok {
			return
		}
		if !sess.enqueue(ev.Content) {
			log.Printf("deliver: dropped direct user=%s remote=%s", ev.TargetUser, sess.remoteAddr())
		}
	}
}
