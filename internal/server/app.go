// Package server implements the chat routing instance: it admits
// authenticated connections, interprets their command lines against the
// shared directory, and fans bus events out to local sockets.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatmesh/internal/bus"
	"chatmesh/internal/config"
	"chatmesh/internal/directory"
	"chatmesh/internal/protocol"
	"chatmesh/internal/storage"
)

// App coordinates the listener, session lifecycle, and event routing for
// one server instance of the cluster.
type App struct {
	cfg        config.ServerConfig
	store      storage.Store
	dir        directory.Directory
	bus        bus.Bus
	registry   *Registry
	instanceID string
	listener   net.Listener
	closeOnce  sync.Once
}

// NewApp constructs a server instance using the provided dependencies.
func NewApp(cfg config.ServerConfig, store storage.Store, dir directory.Directory, eventBus bus.Bus) *App {
	return &App{
		cfg:        cfg,
		store:      store,
		dir:        dir,
		bus:        eventBus,
		registry:   NewRegistry(cfg.DefaultRoom),
		instanceID: uuid.NewString(),
	}
}

// Run starts the bus listener and accepts connections until the context is
// canceled.
func (a *App) Run(ctx context.Context) error {
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	events, err := a.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe bus: %w", err)
	}
	go a.runBusListener(events)

	listener, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	a.listener = listener
	log.Printf("listening addr=%s instance=%s", a.cfg.ListenAddr, a.instanceID)

	errCh := make(chan error, 1)

	go func() {
		<-ctx.Done()
		a.closeOnce.Do(func() {
			_ = a.listener.Close()
		})
	}()

	go func() {
		for {
			conn, err := a.listener.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					errCh <- nil
					return
				}
				errCh <- err
				return
			}
			go a.handleConnection(ctx, conn)
		}
	}()

	return <-errCh
}

func (a *App) handleConnection(parentCtx context.Context, conn net.Conn) {
	defer conn.Close()

	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), a.cfg.MaxLineBytes)

	username, err := a.handshake(ctx, conn, scanner)
	if err != nil {
		log.Printf("handshake rejected remote=%s err=%v", conn.RemoteAddr(), err)
		return
	}
	log.Printf("login success user=%s remote=%s", username, conn.RemoteAddr())

	sess := newClientSession(conn)
	defer sess.close()
	go func() {
		if err := sess.writeLoop(ctx, a.cfg.WriteTimeout); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("write loop user=%s err=%v", username, err)
		}
	}()

	if err := a.admit(ctx, sess, username); err != nil {
		log.Printf("admit user=%s err=%v", username, err)
		a.cleanup(sess, username)
		return
	}
	defer a.cleanup(sess, username)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if err := a.handleLine(ctx, sess, username, line); err != nil {
			log.Printf("command failed user=%s err=%v", username, err)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("read user=%s err=%v", username, err)
	}
}

// admit places an authenticated connection into the default room, shared
// directory first so a directory failure leaves local state untouched, then
// announces the arrival.
func (a *App) admit(ctx context.Context, sess *clientSession, username string) error {
	if err := a.dir.AddToRoom(ctx, username, a.cfg.DefaultRoom); err != nil {
		return fmt.Errorf("add to room: %w", err)
	}
	a.registry.Register(sess, username)

	if err := a.bus.Publish(ctx, protocol.NewRoomMessage(a.cfg.DefaultRoom, username,
		fmt.Sprintf("🟢 %s joined %s\n", username, a.cfg.DefaultRoom), true)); err != nil {
		return fmt.Errorf("publish arrival: %w", err)
	}
	return sess.send(ctx, fmt.Sprintf("🟢 You joined %s\n", a.cfg.DefaultRoom))
}

// cleanup runs the full disconnect path: shared directory records first,
// then the departure announcement, then the local registry purge. It uses
// its own context so cleanup still happens when the connection context is
// already canceled.
func (a *App) cleanup(sess *clientSession, username string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	room, err := a.dir.CurrentRoom(ctx, username)
	if err != nil {
		log.Printf("cleanup: resolve room user=%s err=%v", username, err)
	}
	if room == "" {
		room = a.cfg.DefaultRoom
	}

	if err := a.dir.DeleteSession(ctx, username); err != nil {
		log.Printf("cleanup: delete session user=%s err=%v", username, err)
	}
	if err := a.dir.RemoveUser(ctx, username, room); err != nil {
		log.Printf("cleanup: remove membership user=%s room=%s err=%v", username, room, err)
	}
	if err := a.bus.Publish(ctx, protocol.NewRoomMessage(room, username,
		fmt.Sprintf("🔴 %s left\n", username), true)); err != nil {
		log.Printf("cleanup: publish departure user=%s err=%v", username, err)
	}

	a.registry.Deregister(sess)
	log.Printf("disconnect user=%s room=%s", username, room)
}
