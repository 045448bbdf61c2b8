package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"ninamar-service/config"
	"ninamar-service/internal/auth"
	"ninamar-service/internal/store"
)

// Schema and admin helper.
//
// Usage:
//
//	go run ./cmd/migrate up
//	go run ./cmd/migrate down [steps]
//	go run ./cmd/migrate version
//	go run ./cmd/migrate hash-password <password>
func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "up":
		applied, err := store.MigrateUp(cfg.Database.URL)
		if err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		if !applied {
			fmt.Println("Schema already up to date")
			return
		}
		fmt.Println("Migrations applied")

	case "down":
		steps := 1
		if len(os.Args) > 2 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil {
				log.Fatalf("invalid steps %q: %v", os.Args[2], err)
			}
			steps = n
		}
		if err := store.MigrateDown(cfg.Database.URL, steps); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		fmt.Printf("Rolled back %d migration(s)\n", steps)

	case "version":
		version, dirty, err := store.MigrationVersion(cfg.Database.URL)
		if err != nil {
			log.Fatalf("migrate version: %v", err)
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)

	case "hash-password":
		if len(os.Args) < 3 {
			usage()
		}
		hash, err := auth.HashPassword(os.Args[2])
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		fmt.Println(hash)

	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate up | down [steps] | version | hash-password <password>")
	os.Exit(2)
}
