package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatmesh/internal/bus"
	"chatmesh/internal/directory"
)

func TestHandshake_Success(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := directory.NewMemory()
	app := newTestApp(t, ctx, newFakeStore(t, "a"), dir, bus.NewMemory())

	client := dialTestClient(ctx, app)
	defer client.close()
	client.login(t, "a")

	_, active, err := dir.Session(ctx, "a")
	req.NoError(err)
	req.True(active)

	room, err := dir.CurrentRoom(ctx, "a")
	req.NoError(err)
	req.Equal("lobby", room)

	_, ok := app.registry.LookupByUsername("a")
	req.True(ok)
}

func TestHandshake_RejectsMalformedLine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := newTestApp(t, ctx, newFakeStore(t, "a"), directory.NewMemory(), bus.NewMemory())
	client := dialTestClient(ctx, app)
	defer client.close()

	client.sendLine(t, "HELLO a 1")
	require.Equal(t, "Invalid protocol", client.expectLine(t))
	client.expectClosed(t)
}

func TestHandshake_RejectsUnknownUserAndBadPassword(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := directory.NewMemory()
	app := newTestApp(t, ctx, newFakeStore(t, "a"), dir, bus.NewMemory())

	client := dialTestClient(ctx, app)
	client.sendLine(t, "LOGIN ghost 1")
	require.Equal(t, "Invalid credentials", client.expectLine(t))
	client.expectClosed(t)
	client.close()

	client = dialTestClient(ctx, app)
	defer client.close()
	client.sendLine(t, "LOGIN a wrong")
	require.Equal(t, "Invalid credentials", client.expectLine(t))
	client.expectClosed(t)

	_, active, err := dir.Session(ctx, "a")
	require.NoError(t, err)
	require.False(t, active, "rejected handshakes must not record sessions")
}

func TestHandshake_RejectsDuplicateLogin(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := directory.NewMemory()
	app := newTestApp(t, ctx, newFakeStore(t, "a"), dir, bus.NewMemory())

	first := dialTestClient(ctx, app)
	defer first.close()
	first.login(t, "a")

	second := dialTestClient(ctx, app)
	defer second.close()
	second.sendLine(t, "LOGIN a 1")
	req.Equal("User already logged in (Duplicate)", second.expectLine(t))
	second.expectClosed(t)

	// The original session survives the rejection.
	_, active, err := dir.Session(ctx, "a")
	req.NoError(err)
	req.True(active)
}

func TestHandshake_PasswordMayContainSpaces(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newFakeStore(t)
	seedUser(store, "spacey", mustHash(t, "open sesame"))

	app := newTestApp(t, ctx, store, directory.NewMemory(), bus.NewMemory())
	client := dialTestClient(ctx, app)
	defer client.close()

	client.sendLine(t, "LOGIN spacey open sesame")
	req.Contains(client.expectLine(t), "Login successful")
}

func TestDisconnect_PurgesSharedAndLocalState(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := directory.NewMemory()
	app := newTestApp(t, ctx, newFakeStore(t, "a", "b"), dir, bus.NewMemory())

	alice := dialTestClient(ctx, app)
	alice.login(t, "a")
	bob := dialTestClient(ctx, app)
	defer bob.close()
	bob.login(t, "b")

	// Alice shares the lobby with Bob, so she sees his arrival.
	req.Contains(alice.expectLine(t), "b joined lobby")

	alice.close()

	req.Eventually(func() bool {
		_, active, err := dir.Session(ctx, "a")
		if err != nil || active {
			return false
		}
		room, err := dir.CurrentRoom(ctx, "a")
		if err != nil || room != "" {
			return false
		}
		_, ok := app.registry.LookupByUsername("a")
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "disconnect must purge session, membership, and registry")

	// The departure announcement reaches the remaining lobby member.
	req.Contains(bob.expectLine(t), "🔴 a left")
}
