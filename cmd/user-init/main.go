// Command user-init creates an API user and prints its bearer token. The
// API has no user management surface, so this is how accounts are minted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"tally/internal/config"
	"tally/internal/storage"
)

func main() {
	_ = godotenv.Load()

	name := flag.String("name", "", "name of the user to create")
	flag.Parse()

	if strings.TrimSpace(*name) == "" {
		log.Fatalf("set -name")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("configuration: %v", err)
	}

	store, err := storage.NewStore(cfg.SQLiteDBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	token := uuid.NewString()
	user, err := store.CreateUser(context.Background(), strings.TrimSpace(*name), token)
	if err != nil {
		log.Fatalf("create user: %v", err)
	}

	fmt.Printf("Created user %q (id %d)\n", user.Name, user.ID)
	fmt.Printf("API token: %s\n", token)
	fmt.Println("Pass it as: Authorization: Bearer <token>")
}
