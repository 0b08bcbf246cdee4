package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"chatmesh/internal/auth"
	"chatmesh/internal/protocol"
	"chatmesh/internal/storage"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errDuplicateSession   = errors.New("duplicate session")
)

// handshake runs the one-shot login exchange on a fresh connection. Every
// rejection writes its reason and returns an error without touching shared
// state; success records the session in the shared directory and returns
// the authenticated username.
func (a *App) handshake(ctx context.Context, conn net.Conn, scanner *bufio.Scanner) (string, error) {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", errors.New("connection closed before login")
	}

	username, password, err := protocol.ParseLogin(scanner.Text())
	if err != nil {
		a.writeLine(conn, "Invalid protocol")
		return "", err
	}

	user, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			a.writeLine(conn, "Invalid credentials")
			return "", errInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if err := auth.ComparePassword(user.Password, password); err != nil {
		a.writeLine(conn, "Invalid credentials")
		return "", errInvalidCredentials
	}

	if record, active, err := a.dir.Session(ctx, username); err != nil {
		return "", fmt.Errorf("session check: %w", err)
	} else if active {
		if claims, parseErr := auth.ParseSessionToken(a.cfg.Auth, record); parseErr == nil {
			log.Printf("duplicate login rejected user=%s active_instance=%s since=%s remote=%s",
				username, claims.Instance, claims.IssuedAt, conn.RemoteAddr())
		} else {
			log.Printf("duplicate login rejected user=%s remote=%s", username, conn.RemoteAddr())
		}
		a.writeLine(conn, "User already logged in (Duplicate)")
		return "", errDuplicateSession
	}

	// Session check and write are two directory round-trips; two logins
	// racing through the gap can both pass. Accepted limitation.
	token, err := auth.NewSessionToken(a.cfg.Auth, username, a.instanceID)
	if err != nil {
		return "", fmt.Errorf("mint session token: %w", err)
	}
	if err := a.dir.PutSession(ctx, username, token); err != nil {
		return "", fmt.Errorf("record session: %w", err)
	}

	a.writeLine(conn, fmt.Sprintf("Login successful. Welcome %s!", username))
	return username, nil
}

// writeLine is for the handshake phase only, before the session write loop
// exists; it appends the newline itself.
func (a *App) writeLine(conn net.Conn, line string) {
	if a.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(a.cfg.WriteTimeout))
	}
	if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
		log.Printf("handshake write: %v", err)
	}
}
