package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnhub/learnhub/internal/platform/db"
	"github.com/learnhub/learnhub/internal/platform/httpx"
	"github.com/learnhub/learnhub/internal/shared"
)

// ErrEmailTaken reports a registration or update with an email in use.
var ErrEmailTaken = fmt.Errorf("%w: user with this email already exists", httpx.ErrDuplicate)

// Repository defines data access methods for users.
type Repository interface {
	Create(ctx context.Context, u User) (User, error)
	Get(ctx context.Context, id int64) (User, error)
	List(ctx context.Context, page shared.PageRequest) ([]User, int, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) (User, error)
	Delete(ctx context.Context, id int64) error
	PaymentsForUsers(ctx context.Context, userIDs []int64) (map[int64][]Payment, error)
	DeactivateInactive(ctx context.Context, lastLoginBefore time.Time) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const userColumns = `id, email, password, phone, city, first_name, last_name, is_active, is_staff, last_login, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Phone, &u.City, &u.FirstName, &u.LastName,
		&u.IsActive, &u.IsStaff, &u.LastLogin, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("user: %w", httpx.ErrNotFound)
	}
	return u, err
}

// Create inserts a user.
func (r *repository) Create(ctx context.Context, u User) (User, error) {
	created, err := scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password, phone, city, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns, u.Email, u.PasswordHash, u.Phone, u.City, u.FirstName, u.LastName))
	if db.IsUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	return created, err
}

// Get fetches a user by id.
func (r *repository) Get(ctx context.Context, id int64) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// List returns a page of users ordered by id.
func (r *repository) List(ctx context.Context, page shared.PageRequest) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Update applies column updates.
func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) (User, error) {
	var (
		sets []string
		args []interface{}
	)
	for _, col := range []string{"email", "password", "phone", "city", "first_name", "last_name"} {
		if v, ok := updates[col]; ok {
			args = append(args, v)
			sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), userColumns)
	updated, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if db.IsUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	return updated, err
}

// Delete removes a user. Owned content keeps existing without an owner.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

// PaymentsForUsers loads payment history grouped by user.
func (r *repository) PaymentsForUsers(ctx context.Context, userIDs []int64) (map[int64][]Payment, error) {
	out := make(map[int64][]Payment, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, course_id, lesson_id, amount, method, session_id, link, date
		FROM payments
		WHERE user_id = ANY($1)
		ORDER BY id`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.CourseID, &p.LessonID, &p.Amount, &p.Method, &p.SessionID, &p.Link, &p.Date); err != nil {
			return nil, err
		}
		out[*p.UserID] = append(out[*p.UserID], p)
	}
	return out, rows.Err()
}

// DeactivateInactive disables non-staff accounts whose last login predates
// the cutoff. Accounts that never logged in are left alone.
func (r *repository) DeactivateInactive(ctx context.Context, lastLoginBefore time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET is_active = FALSE
		WHERE is_active AND NOT is_staff AND last_login < $1`, lastLoginBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
