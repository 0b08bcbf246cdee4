package server

import (
	"context"
	"io"
	"net"
	"sync"
	"time"
)

const sessionSendBuffer = 64

// clientSession owns one live connection's outbound side. Inbound reading
// stays with the connection goroutine; deliveries from the bus listener are
// queued here so no socket write ever happens under the registry lock.
type clientSession struct {
	conn      net.Conn
	sendCh    chan string
	done      chan struct{}
	closeOnce sync.Once
}

func newClientSession(conn net.Conn) *clientSession {
	return &clientSession{
		conn:   conn,
		sendCh: make(chan string, sessionSendBuffer),
		done:   make(chan struct{}),
	}
}

// enqueue queues a line for delivery without blocking. A full buffer or a
// closed session drops the line; the owning read loop notices dead sockets
// and runs cleanup on its own.
func (s *clientSession) enqueue(line string) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.sendCh <- line:
		return true
	default:
		return false
	}
}

// send queues a line for delivery, waiting for buffer space. Used for the
// direct replies a command owes its own connection.
func (s *clientSession) send(ctx context.Context, line string) error {
	select {
	case s.sendCh <- line:
		return nil
	case <-s.done:
		return io.ErrClosedPipe
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *clientSession) writeLoop(ctx context.Context, writeTimeout time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case line := <-s.sendCh:
			if writeTimeout > 0 {
				if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
					s.close()
					return err
				}
			}
			if _, err := io.WriteString(s.conn, line); err != nil {
				s.close()
				return err
			}
		}
	}
}

func (s *clientSession) remoteAddr() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (s *clientSession) close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
