package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnhub/learnhub/internal/platform/httpx"
	"github.com/learnhub/learnhub/internal/shared"
)

// Repository defines persistence for payments.
type Repository interface {
	List(ctx context.Context, filter Filter, page shared.PageRequest) ([]Payment, int, error)
	Create(ctx context.Context, p Payment) (Payment, error)
	// TargetName returns the name of the purchased course or lesson.
	TargetName(ctx context.Context, courseID, lessonID *int64) (string, error)
	ListPending(ctx context.Context) ([]Payment, error)
	// MarkPaid dates a pending payment and clears its checkout link. It
	// reports false when the payment was already dated.
	MarkPaid(ctx context.Context, id int64, at time.Time) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const paymentColumns = `id, user_id, course_id, lesson_id, amount, method, session_id, link, date`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.UserID, &p.CourseID, &p.LessonID, &p.Amount, &p.Method, &p.SessionID, &p.Link, &p.Date)
	return p, err
}

func (r *repository) List(ctx context.Context, filter Filter, page shared.PageRequest) ([]Payment, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.CourseID != nil {
		args = append(args, *filter.CourseID)
		where = append(where, fmt.Sprintf("course_id = $%d", len(args)))
	}
	if filter.LessonID != nil {
		args = append(args, *filter.LessonID)
		where = append(where, fmt.Sprintf("lesson_id = $%d", len(args)))
	}
	if filter.Method != "" {
		args = append(args, string(filter.Method))
		where = append(where, fmt.Sprintf("method = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "id"
	switch filter.Ordering {
	case OrderByDate:
		order = "date ASC NULLS LAST, id"
	case OrderByDateDesc:
		order = "date DESC NULLS LAST, id"
	}
	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM payments%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		paymentColumns, clause, order, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, p Payment) (Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx, `
		INSERT INTO payments (user_id, course_id, lesson_id, amount, method, session_id, link)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+paymentColumns,
		p.UserID, p.CourseID, p.LessonID, p.Amount, string(p.Method), p.SessionID, p.Link))
}

func (r *repository) TargetName(ctx context.Context, courseID, lessonID *int64) (string, error) {
	var (
		name  string
		err   error
		field string
	)
	switch {
	case courseID != nil:
		field = "course"
		err = r.pool.QueryRow(ctx, `SELECT name FROM courses WHERE id = $1`, *courseID).Scan(&name)
	case lessonID != nil:
		field = "lesson"
		err = r.pool.QueryRow(ctx, `SELECT name FROM lessons WHERE id = $1`, *lessonID).Scan(&name)
	default:
		return "", httpx.NewFieldError("course", "either course or lesson is required")
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return "", httpx.NewFieldError(field, "object does not exist")
	}
	return name, err
}

func (r *repository) ListPending(ctx context.Context) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE date IS NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) MarkPaid(ctx context.Context, id int64, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE payments SET date = $2, link = NULL WHERE id = $1 AND date IS NULL`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
