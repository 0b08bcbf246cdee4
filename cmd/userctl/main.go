// Command userctl manages accounts in the credential store. The chat wire
// protocol has no registration step; operators provision users here.
//
//	userctl add <username> <password>
//	userctl seed
//
// seed creates the development accounts a through h with password "1".
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"chatmesh/internal/auth"
	"chatmesh/internal/config"
	"chatmesh/internal/storage"
	"chatmesh/internal/storage/sqlite"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: userctl add <username> <password> | userctl seed\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.LoadServerConfig()
	store, err := sqlite.NewStore(cfg.Database)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	switch flag.Arg(0) {
	case "add":
		if flag.NArg() != 3 {
			flag.Usage()
			os.Exit(2)
		}
		if err := addUser(ctx, store, flag.Arg(1), flag.Arg(2)); err != nil {
			log.Fatalf("add user: %v", err)
		}
		fmt.Printf("created %s\n", flag.Arg(1))
	case "seed":
		for _, username := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
			if err := addUser(ctx, store, username, "1"); err != nil {
				if errors.Is(err, errAlreadyExists) {
					continue
				}
				log.Fatalf("seed %s: %v", username, err)
			}
			fmt.Printf("created %s\n", username)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

var errAlreadyExists = errors.New("user already exists")

func addUser(ctx context.Context, store storage.Store, username, password string) error {
	exists, err := store.UserExists(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return errAlreadyExists
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return store.CreateUser(ctx, &storage.User{
		ID:        uuid.NewString(),
		Username:  username,
		Password:  hashed,
		CreatedAt: now,
		UpdatedAt: now,
	})
}
