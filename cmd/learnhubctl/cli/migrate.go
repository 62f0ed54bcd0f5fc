package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/golang-migrate/migrate/v4"
)

// Migrator applies schema migrations. *migrate.Migrate satisfies it.
type Migrator interface {
	Up() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
}

// MigrateCommand runs "migrate up|down|version". Down reverts a single step.
func MigrateCommand(m Migrator, args []string, stdout, stderr io.Writer) int {
	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}

	var err error
	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
	default:
		fmt.Fprintf(stderr, "unknown migrate direction %q\n", direction)
		return exitUsage
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintf(stderr, "migrate %s: %v\n", direction, err)
		return exitFailure
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Fprintln(stdout, "schema version: none")
	case err != nil:
		fmt.Fprintf(stderr, "migrate version: %v\n", err)
		return exitFailure
	default:
		fmt.Fprintf(stdout, "schema version: %d dirty=%t\n", version, dirty)
	}
	return exitOK
}
