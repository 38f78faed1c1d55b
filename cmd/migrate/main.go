// Command migrate applies the Postgres schema for client keys and showcase
// records.
//
//	migrate [flags] [up | down | version | force N]
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"github.com/af-corp/showcase-gateway/internal/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	if err := run(os.Args[1:], logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

type command struct {
	name    string
	version int // force only
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{name: "up"}, nil
	}
	switch args[0] {
	case "up", "down", "version":
		if len(args) > 1 {
			return command{}, fmt.Errorf("%s takes no arguments", args[0])
		}
		return command{name: args[0]}, nil
	case "force":
		if len(args) != 2 {
			return command{}, errors.New("force needs a version")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return command{}, fmt.Errorf("force: bad version %q", args[1])
		}
		return command{name: "force", version: v}, nil
	}
	return command{}, fmt.Errorf("unknown command %q (use up, down, version or force N)", args[0])
}

// resolveURL picks the database URL: the flag, then DATABASE_URL, then the
// database section of gateway.yaml, then the built-in defaults.
func resolveURL(flagURL, configDir string) (string, error) {
	if flagURL != "" {
		return flagURL, nil
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v, nil
	}
	cfg := config.DefaultConfig()
	if err := config.LoadFile(filepath.Join(configDir, "gateway.yaml"), cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	return cfg.Database.URL(), nil
}

func run(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	configDir := fs.String("config", "configs", "configuration directory holding gateway.yaml")
	envFile := fs.String("env", ".env", "dotenv file loaded first, if present")
	dbURL := fs.String("db-url", "", "database URL, overrides DATABASE_URL and gateway.yaml")
	path := fs.String("path", "migrations", "migrations directory")
	steps := fs.Int("steps", 0, "for up/down, apply at most this many migrations (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cmd, err := parseCommand(fs.Args())
	if err != nil {
		return err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load env file", "path", *envFile, "error", err)
	}
	url, err := resolveURL(*dbURL, *configDir)
	if err != nil {
		return err
	}

	m, err := migrate.New("file://"+*path, url)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	switch cmd.name {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	case "force":
		err = m.Force(cmd.version)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", cmd.name, err)
	}

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info("no migrations applied", "command", cmd.name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	logger.Info("schema version", "command", cmd.name, "version", v, "dirty", dirty)
	return nil
}
