package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnhub/learnhub/internal/platform/httpx"
)

// ErrUnknownRole indicates the role row does not exist.
var ErrUnknownRole = errors.New("rbac: unknown role")

// Service resolves and manages role memberships stored in PostgreSQL.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// RolesForUser loads the role set once per authenticated request.
func (s *Service) RolesForUser(ctx context.Context, userID int64) (RoleSet, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: roles for user %d: %w", userID, err)
	}
	defer rows.Close()

	set := RoleSet{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		set[Role(name)] = struct{}{}
	}
	return set, rows.Err()
}

// Grant adds role to the user identified by email.
func (s *Service) Grant(ctx context.Context, email string, role Role) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT u.id, r.id FROM users u, roles r
		WHERE lower(u.email) = lower($1) AND r.name = $2
		ON CONFLICT DO NOTHING`, strings.TrimSpace(email), string(role))
	if err != nil {
		return fmt.Errorf("rbac: grant %s: %w", role, err)
	}
	if tag.RowsAffected() == 0 {
		return s.explainMiss(ctx, email, role)
	}
	return nil
}

// Revoke removes role from the user identified by email.
func (s *Service) Revoke(ctx context.Context, email string, role Role) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM user_roles ur
		USING users u, roles r
		WHERE ur.user_id = u.id AND ur.role_id = r.id
		  AND lower(u.email) = lower($1) AND r.name = $2`, strings.TrimSpace(email), string(role))
	if err != nil {
		return fmt.Errorf("rbac: revoke %s: %w", role, err)
	}
	return nil
}

func (s *Service) explainMiss(ctx context.Context, email string, role Role) error {
	var userExists, roleExists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1)),
		       EXISTS (SELECT 1 FROM roles WHERE name = $2)`, strings.TrimSpace(email), string(role)).Scan(&userExists, &roleExists)
	if err != nil {
		return err
	}
	switch {
	case !userExists:
		return fmt.Errorf("rbac: user %s: %w", email, httpx.ErrNotFound)
	case !roleExists:
		return fmt.Errorf("%w: %s", ErrUnknownRole, role)
	default:
		return nil
	}
}
