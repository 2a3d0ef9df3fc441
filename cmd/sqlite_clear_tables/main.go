package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/smart845/spre/internal/config"
	"github.com/smart845/spre/internal/storage/sqlite"
)

// Truncates the scan_runs audit log named by store.sqlite.path / SQLITE_PATH.
func main() {
	configPath := pflag.String("config", "", "path to YAML config (optional)")
	pflag.Parse()
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	path := cfg.Store.Sqlite.Path
	if path == "" {
		log.Fatalf("store.sqlite.path (SQLITE_PATH) is not set")
	}

	store, err := sqlite.Open(path)
	if err != nil {
		log.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

	if err := store.ClearTables(context.Background()); err != nil {
		log.Fatalf("clear tables: %v", err)
	}
	log.Printf("scan_runs cleared at %s", path)
}
