// Package storage defines the credential store backing the login handshake.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a missing record.
var ErrNotFound = errors.New("record not found")

// User represents a persisted account record. Password holds a bcrypt hash.
type User struct {
	ID        string
	Username  string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store defines persistence operations used by the server and userctl.
type Store interface {
	Close() error
	Migrate(ctx context.Context) error

	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	UserExists(ctx context.Context, username string) (bool, error)
}
