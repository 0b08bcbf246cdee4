package client

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"chatmesh/internal/config"
)

// Session manages the client side of the line-oriented chat connection.
type Session struct {
	cfg   config.ClientConfig
	conn  net.Conn
	lines chan string
}

// NewSession initializes a session with configuration.
func NewSession(cfg config.ClientConfig) *Session {
	return &Session{cfg: cfg, lines: make(chan string, 64)}
}

// Connect dials the server and starts draining inbound lines.
func (s *Session) Connect(ctx context.Context) error {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", s.cfg.ServerAddr)
	if err != nil {
		return err
	}
	s.conn = conn
	go s.readLoop()
	return nil
}

// Close terminates the session.
func (s *Session) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// SendLine writes one newline-terminated line to the server.
func (s *Session) SendLine(line string) error {
	_, err := fmt.Fprintf(s.conn, "%s\n", line)
	return err
}

// Lines yields server lines in arrival order; the channel closes when the
// connection drops.
func (s *Session) Lines() <-chan string {
	return s.lines
}

func (s *Session) readLoop() {
	defer close(s.lines)
	scanner := bufio.NewScanner(s.conn)
	for scanner.Scan() {
		s.lines <- scanner.Text()
	}
}
