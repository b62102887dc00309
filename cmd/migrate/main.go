// Command migrate manages the KIR schema: the records table, the national ID
// index, household members and the event outbox.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"kir/internal/common/config"
	"kir/internal/common/logging"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// migrator is the part of *migrate.Migrate the commands use.
type migrator interface {
	Up() error
	Steps(n int) error
	Drop() error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Usage: migrate [-path dir] <command> [arg]")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  up           Apply all pending migrations")
	fmt.Fprintln(out, "  down [n]     Roll back the last n migrations (default 1)")
	fmt.Fprintln(out, "  version      Show the current schema version")
	fmt.Fprintln(out, "  force <v>    Mark version v as applied after a failed run")
	fmt.Fprintln(out, "  drop         Drop every KIR table (DANGEROUS)")
	flag.PrintDefaults()
}

func main() {
	path := flag.String("path", "migrations", "directory holding the migration files")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	m, err := migrate.New("file://"+*path, cfg.DatabaseURL)
	if err != nil {
		logging.Error("Failed to create migrator", "path", *path, "error", err)
		os.Exit(1)
	}
	m.Log = migrateLogger{verbose: cfg.LogLevel == "debug"}

	err = run(m, flag.Args(), os.Stdout)
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		logging.Warn("Closing migrator failed", "source_error", srcErr, "database_error", dbErr)
	}
	if err != nil {
		logging.Error("Migration command failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func run(m migrator, args []string, out io.Writer) error {
	command := args[0]
	switch command {
	case "up":
		logging.Info("Applying migrations")
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				logging.Info("Schema already up to date")
				return nil
			}
			return err
		}
		logging.Info("Migrations applied")

	case "down":
		n, err := countArg(args, 1)
		if err != nil {
			return err
		}
		logging.Info("Rolling back migrations", "steps", n)
		if err := m.Steps(-n); err != nil {
			return err
		}
		logging.Info("Rollback completed", "steps", n)

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Fprintln(out, "Version: none")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Version: %d, Dirty: %v\n", version, dirty)

	case "force":
		if len(args) < 2 {
			return errors.New("force needs a version")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil || version < 0 {
			return fmt.Errorf("force: invalid version %q", args[1])
		}
		logging.Warn("Forcing schema version", "version", version)
		return m.Force(version)

	case "drop":
		logging.Warn("Dropping all KIR tables")
		if err := m.Drop(); err != nil {
			return err
		}
		logging.Info("All tables dropped")

	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

// countArg reads an optional positive step count from args[1].
func countArg(args []string, def int) (int, error) {
	if len(args) < 2 {
		return def, nil
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s: invalid step count %q", args[0], args[1])
	}
	return n, nil
}

// migrateLogger routes golang-migrate's progress lines into the structured log.
type migrateLogger struct {
	verbose bool
}

func (l migrateLogger) Printf(format string, v ...any) {
	logging.Debug("migrate", "message", fmt.Sprintf(format, v...))
}

func (l migrateLogger) Verbose() bool { return l.verbose }
