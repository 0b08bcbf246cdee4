package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatmesh/internal/auth"
	"chatmesh/internal/bus"
	"chatmesh/internal/config"
	"chatmesh/internal/directory"
	"chatmesh/internal/storage"
)

const testPassword = "1"

// fakeStore is an in-memory credential store for server tests.
type fakeStore struct {
	mu    sync.Mutex
	users map[string]*storage.User
}

func newFakeStore(t *testing.T, usernames ...string) *fakeStore {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)

	users := make(map[string]*storage.User, len(usernames))
	for _, username := range usernames {
		users[username] = &storage.User{ID: username, Username: username, Password: hash}
	}
	return &fakeStore{users: users}
}

func (s *fakeStore) Close() error                  { return nil }
func (s *fakeStore) Migrate(context.Context) error { return nil }

func (s *fakeStore) CreateUser(_ context.Context, user *storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
	return nil
}

func (s *fakeStore) GetUserByUsername(_ context.Context, username string) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

func (s *fakeStore) UserExists(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[username]
	return ok, nil
}

func testConfig() config.ServerConfig {
	return config.ServerConfig{
		Auth:         config.AuthConfig{Secret: "test-secret", Issuer: "chatmesh-test"},
		DefaultRoom:  "lobby",
		WriteTimeout: 5 * time.Second,
		MaxLineBytes: 64 << 10,
	}
}

// newTestApp wires an App to the shared fixtures and starts its bus
// listener, standing in for one running server instance.
func newTestApp(t *testing.T, ctx context.Context, store storage.Store, dir directory.Directory, eventBus bus.Bus) *App {
	t.Helper()
	app := NewApp(testConfig(), store, dir, eventBus)
	events, err := eventBus.Subscribe(ctx)
	require.NoError(t, err)
	go app.runBusListener(events)
	return app
}

// testClient drives one side of an in-process connection to an App.
type testClient struct {
	conn  net.Conn
	lines chan string
}

func dialTestClient(ctx context.Context, app *App) *testClient {
	serverSide, clientSide := net.Pipe()
	go app.handleConnection(ctx, serverSide)

	client := &testClient{conn: clientSide, lines: make(chan string, 64)}
	go func() {
		defer close(client.lines)
		scanner := bufio.NewScanner(clientSide)
		for scanner.Scan() {
			client.lines <- scanner.Text()
		}
	}()
	return client
}

func (c *testClient) sendLine(t *testing.T, line string) {
	t.Helper()
	_, err := fmt.Fprintf(c.conn, "%s\n", line)
	require.NoError(t, err)
}

func (c *testClient) expectLine(t *testing.T) string {
	t.Helper()
	select {
	case line, ok := <-c.lines:
		require.True(t, ok, "connection closed while waiting for a line")
		return line
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a line")
		return ""
	}
}

// expectNoLine asserts silence on the connection for a short window.
func (c *testClient) expectNoLine(t *testing.T) {
	t.Helper()
	select {
	case line, ok := <-c.lines:
		if ok {
			t.Fatalf("unexpected line: %q", line)
		}
	case <-time.After(150 * time.Millisecond):
	}
}

func (c *testClient) expectClosed(t *testing.T) {
	t.Helper()
	select {
	case line, ok := <-c.lines:
		if ok {
			t.Fatalf("expected close, got line: %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for close")
	}
}

func (c *testClient) close() {
	_ = c.conn.Close()
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	return hash
}

func seedUser(store *fakeStore, username, hash string) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.users[username] = &storage.User{ID: username, Username: username, Password: hash}
}

// login performs the handshake and consumes the welcome lines.
func (c *testClient) login(t *testing.T, username string) {
	t.Helper()
	c.sendLine(t, fmt.Sprintf("LOGIN %s %s", username, testPassword))
	require.Contains(t, c.expectLine(t), "Login successful")
	require.Contains(t, c.expectLine(t), "You joined lobby")
}
