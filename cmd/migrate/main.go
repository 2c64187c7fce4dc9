package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/catalog"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/config"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/logger"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/migrate"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	store := flag.String("store", "ledger", "target store: ledger|catalog")
	dir := flag.String("dir", "", "goose migrations directory (defaults per store)")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if *dir == "" {
		switch *store {
		case "ledger":
			*dir = migrate.DefaultLedgerDir
		case "catalog":
			*dir = migrate.DefaultCatalogDir
		default:
			fmt.Fprintln(os.Stderr, "unknown -store value:", *store)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env":   cfg.App.Env,
		"cmd":   *cmd,
		"store": *store,
		"dir":   *dir,
	})

	// Commands that do NOT require a DB connection
	switch *cmd {
	case "create":
		if *name == "" {
			fmt.Fprintln(os.Stderr, "missing -name for create")
			os.Exit(1)
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create migration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fmt.Fprintf(os.Stderr, "migration validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migration validation passed")
		return
	}

	sqlDB, cleanup := openStore(ctx, logg, cfg, *store)
	defer cleanup()

	logg.Info(ctx, "migrate ready")

	switch *cmd {
	case "up", "down", "status":
		if err := migrate.Run(ctx, sqlDB, *dir, *cmd); err != nil {
			fmt.Fprintf(os.Stderr, "goose %s failed: %v\n", *cmd, err)
			os.Exit(1)
		}

	case "version":
		if *version == "" {
			fmt.Fprintln(os.Stderr, "missing -version for version command")
			os.Exit(1)
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, *dir, *version); err != nil {
			fmt.Fprintf(os.Stderr, "goose version migrate failed: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, logg *logger.Logger, cfg *config.Config, store string) (sqlDB *sql.DB, cleanup func()) {
	switch store {
	case "ledger":
		client, err := db.New(ctx, cfg.Ledger, logg)
		requireResource(ctx, logg, "ledger store", err)
		handle, err := client.DB().DB()
		requireResource(ctx, logg, "ledger sql handle", err)
		return handle, func() { _ = client.Close() }

	case "catalog":
		client, err := catalog.New(ctx, cfg.Catalog, logg)
		requireResource(ctx, logg, "catalog store", err)
		handle, err := client.DB().DB()
		requireResource(ctx, logg, "catalog sql handle", err)
		return handle, func() { _ = client.Close() }
	}

	fmt.Fprintln(os.Stderr, "unknown -store value:", store)
	os.Exit(1)
	return nil, nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
