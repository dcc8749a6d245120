package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/ledger-balance/internal/app"
	"github.com/dvloznov/ledger-balance/internal/config"
	"github.com/dvloznov/ledger-balance/internal/logger"
)

func main() {
	log := logger.New()

	backend := flag.String("backend", "", "Storage backend to migrate (defaults to STORAGE_BACKEND)")
	timeout := flag.Duration("timeout", 5*time.Minute, "Give up after this long")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: migrate [flags] up|down|version\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	direction, err := parseDirection(flag.Args())
	if err != nil {
		flag.Usage()
		log.Fatal().Err(err).Msg("Invalid arguments")
	}

	if *backend != "" {
		os.Setenv("STORAGE_BACKEND", *backend)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = app.Logger(cfg, os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Info().Str("backend", cfg.Storage.Backend).Str("direction", direction).Msg("Running migrations")
	if err := app.Migrate(ctx, cfg, direction, log); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func parseDirection(args []string) (string, error) {
	if len(args) == 0 {
		return app.MigrateUp, nil
	}
	if len(args) > 1 {
		return "", fmt.Errorf("expected one direction, got %d arguments", len(args))
	}
	switch args[0] {
	case app.MigrateUp, app.MigrateDown, app.MigrateVersion:
		return args[0], nil
	default:
		return "", fmt.Errorf("unknown direction %q", args[0])
	}
}
