package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"chatmesh/internal/bus"
	"chatmesh/internal/directory"
)

// Two Apps sharing one directory and one bus model two server instances of
// the same cluster.
func TestRouting_AcrossInstances(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := directory.NewMemory()
	eventBus := bus.NewMemory()
	store := newFakeStore(t, "a", "b")
	one := newTestApp(t, ctx, store, dir, eventBus)
	two := newTestApp(t, ctx, store, dir, eventBus)

	alice := dialTestClient(ctx, one)
	defer alice.close()
	alice.login(t, "a")

	bob := dialTestClient(ctx, two)
	defer bob.close()
	bob.login(t, "b")

	// Bob's arrival crosses the bus to Alice's instance.
	req.Contains(alice.expectLine(t), "b joined lobby")

	alice.sendLine(t, "hi")
	req.Equal("a: hi", bob.expectLine(t))

	// The sender never sees its own broadcast, even on its own instance.
	alice.expectNoLine(t)
}

func TestRouting_DirectMessageReachesOnlyTarget(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := directory.NewMemory()
	eventBus := bus.NewMemory()
	store := newFakeStore(t, "a", "b", "c")
	one := newTestApp(t, ctx, store, dir, eventBus)
	two := newTestApp(t, ctx, store, dir, eventBus)

	alice := dialTestClient(ctx, one)
	defer alice.close()
	alice.login(t, "a")

	bob := dialTestClient(ctx, two)
	defer bob.close()
	bob.login(t, "b")
	req.Contains(alice.expectLine(t), "b joined lobby")

	carol := dialTestClient(ctx, two)
	defer carol.close()
	carol.login(t, "c")
	req.Contains(alice.expectLine(t), "c joined lobby")
	req.Contains(bob.expectLine(t), "c joined lobby")

	// Bob subscribes to Alice, Carol does not.
	bob.sendLine(t, "/subscribe a")
	req.Equal("🟢 Subscribed to a", bob.expectLine(t))

	// Carol moves away so the room broadcast no longer reaches her.
	carol.sendLine(t, "/join dev")
	req.Equal("🟢 You joined dev", carol.expectLine(t))
	req.Contains(alice.expectLine(t), "c left lobby")
	req.Contains(bob.expectLine(t), "c left lobby")

	alice.sendLine(t, "hello")

	// Bob gets the lobby broadcast and exactly one subscription copy.
	req.Equal("a: hello", bob.expectLine(t))
	req.Equal("[Sub] a: hello", bob.expectLine(t))
	bob.expectNoLine(t)

	// Carol is in another room with no subscription: silence.
	carol.expectNoLine(t)

	// The sender receives neither.
	alice.expectNoLine(t)
}

// The subscribed copy still arrives when the subscriber sits outside the
// sender's room.
func TestRouting_SubscriberOutsideRoomStillGetsDirectCopy(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := directory.NewMemory()
	eventBus := bus.NewMemory()
	store := newFakeStore(t, "a", "b")
	one := newTestApp(t, ctx, store, dir, eventBus)
	two := newTestApp(t, ctx, store, dir, eventBus)

	alice := dialTestClient(ctx, one)
	defer alice.close()
	alice.login(t, "a")

	alice.sendLine(t, "/join dev")
	req.Equal("🟢 You joined dev", alice.expectLine(t))

	bob := dialTestClient(ctx, two)
	defer bob.close()
	bob.login(t, "b")

	bob.sendLine(t, "/subscribe a")
	req.Equal("🟢 Subscribed to a", bob.expectLine(t))

	alice.sendLine(t, "hello")

	req.Equal("[Sub] a: hello", bob.expectLine(t))
	bob.expectNoLine(t)
	alice.expectNoLine(t)
}
