package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"chatmesh/internal/bus"
	"chatmesh/internal/config"
	"chatmesh/internal/directory"
	"chatmesh/internal/server"
	"chatmesh/internal/storage/sqlite"
)

func main() {
	cfg := config.LoadServerConfig()

	store, err := sqlite.NewStore(cfg.Database)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	defer store.Close()

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis unreachable: %v", err)
	}

	app := server.NewApp(cfg, store, directory.NewRedis(client), bus.NewRedis(client, cfg.Redis.Channel))

	if err := app.Run(ctx); err != nil {
		log.Fatalf("server shutdown: %v", err)
	}
}
