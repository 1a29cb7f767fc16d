// Command migrate manages the database schema from the migrations
// directory. It wraps golang-migrate with the project's configuration
// and logging.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/clinicware/backend/internal/infrastructure/config"
	"github.com/clinicware/backend/internal/infrastructure/logger"
	"github.com/clinicware/backend/internal/infrastructure/migration"
)

const defaultMigrationsDir = "migrations"

type cliOptions struct {
	migrationsPath string
	logLevel       string
	confirm        bool
}

func main() {
	var opts cliOptions
	flag.StringVar(&opts.migrationsPath, "path", "", "migrations directory (default: ./migrations)")
	flag.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.BoolVar(&opts.confirm, "confirm", false, "confirm destructive commands")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      opts.logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	if err := run(args[0], args[1:], &opts, log); err != nil {
		log.Fatal("Command failed", zap.String("command", args[0]), zap.Error(err))
	}
}

func run(command string, args []string, opts *cliOptions, log *zap.Logger) error {
	dir, err := resolveMigrationsDir(opts.migrationsPath)
	if err != nil {
		return err
	}

	// create and list work on files alone and skip the DB connection
	switch command {
	case "create":
		return runCreate(dir, args, log)
	case "list":
		return runList(dir, log)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, dir, log)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	defer m.Close()

	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		n, err := intArg(args, "step count")
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "goto":
		v, err := intArg(args, "target version")
		if err != nil {
			return err
		}
		if v < 0 {
			return errors.New("target version must be positive")
		}
		return m.GoTo(uint(v))
	case "version":
		return runVersion(m, log)
	case "force":
		v, err := intArg(args, "version")
		if err != nil {
			return err
		}
		log.Warn("Forcing schema version without running migrations")
		return m.Force(v)
	case "drop":
		if !opts.confirm {
			return errors.New("drop removes every database object; re-run with -confirm")
		}
		return m.Drop()
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runCreate(dir string, args []string, log *zap.Logger) error {
	if len(args) == 0 {
		return errors.New("migration name required: migrate create <name> [description]")
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}

	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}

	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func runList(dir string, log *zap.Logger) error {
	migrations, err := migration.ListMigrations(dir)
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		log.Info("No migrations found", zap.String("path", dir))
		return nil
	}

	log.Info("Available migrations", zap.Int("count", len(migrations)))
	for _, m := range migrations {
		fmt.Println("  -", m)
	}
	return nil
}

func runVersion(m *migration.Migrator, log *zap.Logger) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		log.Info("No migrations applied yet")
		return nil
	}
	log.Info("Current schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// resolveMigrationsDir returns an absolute migrations path, falling
// back to a directory next to the binary when ./migrations is absent
func resolveMigrationsDir(flagValue string) (string, error) {
	dir := flagValue
	if dir == "" {
		dir = defaultMigrationsDir
		if _, err := os.Stat(dir); err != nil {
			if execPath, execErr := os.Executable(); execErr == nil {
				candidate := filepath.Join(filepath.Dir(execPath), "..", "..", defaultMigrationsDir)
				if _, statErr := os.Stat(candidate); statErr == nil {
					dir = candidate
				}
			}
		}
	}
	return filepath.Abs(dir)
}

func intArg(args []string, what string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s required", what)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[0])
	}
	return n, nil
}

func printUsage() {
	fmt.Println(`Clinicware schema migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    apply all pending migrations
  down                  roll back all migrations
  step <n>              apply n migrations (negative rolls back)
  goto <version>        migrate to a specific version
  version               show the current schema version
  force <version>       overwrite the recorded version (no SQL is run)
  drop                  drop every database object (requires -confirm)
  create <name> [desc]  scaffold a new up/down migration pair
  list                  list migration files on disk

Flags:
  -path string          migrations directory (default: ./migrations)
  -log-level string     debug, info, warn or error (default: info)
  -confirm              confirm destructive commands

Database settings come from the standard configuration sources
(config file and CLINIC_DATABASE_* environment variables).

Examples:
  migrate up
  migrate step -1
  migrate create add_purchase_returns "purchase return header and lines"
  migrate version`)
}
