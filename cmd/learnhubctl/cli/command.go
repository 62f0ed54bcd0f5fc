// Package cli implements the learnhubctl operational commands.
package cli

import (
	"context"
	"fmt"
	"io"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// Deps lazily opens the backends a command needs. Each factory returns a
// cleanup function.
type Deps struct {
	Migrator func() (Migrator, func(), error)
	Roles    func(ctx context.Context) (RoleManager, func(), error)
	Jobs     func() (*JobsCLI, func(), error)
}

const usage = `usage: learnhubctl <command>

commands:
  migrate [up|down|version]
  moderator grant|revoke <email>
  jobs trigger <name>
  jobs stats`

// Run dispatches args (without the program name) and returns the exit code.
func Run(ctx context.Context, args []string, deps Deps, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return exitUsage
	}

	switch args[0] {
	case "migrate":
		m, closeFn, err := deps.Migrator()
		if err != nil {
			fmt.Fprintf(stderr, "open migrator: %v\n", err)
			return exitFailure
		}
		defer closeFn()
		return MigrateCommand(m, args[1:], stdout, stderr)
	case "moderator":
		roles, closeFn, err := deps.Roles(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "connect database: %v\n", err)
			return exitFailure
		}
		defer closeFn()
		return ModeratorCommand(ctx, roles, args[1:], stdout, stderr)
	case "jobs":
		if len(args) < 2 {
			fmt.Fprintln(stderr, usage)
			return exitUsage
		}
		jobsCLI, closeFn, err := deps.Jobs()
		if err != nil {
			fmt.Fprintf(stderr, "connect queue: %v\n", err)
			return exitFailure
		}
		defer closeFn()
		switch args[1] {
		case "trigger":
			return jobsCLI.TriggerCommand(ctx, args[2:], stdout, stderr)
		case "stats":
			return jobsCLI.StatsCommand(stdout, stderr)
		}
	}
	fmt.Fprintln(stderr, usage)
	return exitUsage
}
