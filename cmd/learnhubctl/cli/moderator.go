package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/learnhub/learnhub/internal/rbac"
)

// RoleManager grants and revokes roles by email. *rbac.Service satisfies it.
type RoleManager interface {
	Grant(ctx context.Context, email string, role rbac.Role) error
	Revoke(ctx context.Context, email string, role rbac.Role) error
}

// ModeratorCommand runs "moderator grant|revoke <email>".
func ModeratorCommand(ctx context.Context, roles RoleManager, args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(stderr, "usage: learnhubctl moderator grant|revoke <email>")
		return exitUsage
	}
	verb, email := args[0], args[1]

	var err error
	switch verb {
	case "grant":
		err = roles.Grant(ctx, email, rbac.RoleModerator)
	case "revoke":
		err = roles.Revoke(ctx, email, rbac.RoleModerator)
	default:
		fmt.Fprintf(stderr, "unknown moderator action %q\n", verb)
		return exitUsage
	}
	if err != nil {
		fmt.Fprintf(stderr, "moderator %s %s: %v\n", verb, email, err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "moderator %s: %s\n", verb, email)
	return exitOK
}
