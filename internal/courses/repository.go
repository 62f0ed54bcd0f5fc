package courses

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnhub/learnhub/internal/platform/db"
	"github.com/learnhub/learnhub/internal/platform/httpx"
	"github.com/learnhub/learnhub/internal/shared"
)

// Repository defines persistence for courses, lessons and subscriptions.
// Methods invoked inside WithTx run on the transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	GetCourse(ctx context.Context, id int64) (Course, error)
	ListCourses(ctx context.Context, page shared.PageRequest) ([]Course, int, error)
	CreateCourse(ctx context.Context, c Course) (Course, error)
	UpdateCourse(ctx context.Context, id int64, updates map[string]interface{}) (Course, error)
	DeleteCourse(ctx context.Context, id int64) error
	LessonsByCourse(ctx context.Context, courseIDs []int64) (map[int64][]Lesson, error)
	SubscribedCourses(ctx context.Context, userID int64, courseIDs []int64) (map[int64]bool, error)

	GetLesson(ctx context.Context, id int64) (Lesson, error)
	GetLessonForUpdate(ctx context.Context, id int64) (Lesson, error)
	ListLessons(ctx context.Context, filter LessonFilter, page shared.PageRequest) ([]Lesson, int, error)
	CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
	UpdateLesson(ctx context.Context, id int64, updates map[string]interface{}) (Lesson, error)
	DeleteLesson(ctx context.Context, id int64) error

	LockCourseStamp(ctx context.Context, courseID int64) (string, time.Time, error)
	SetCourseStamp(ctx context.Context, courseID int64, at time.Time) error
	SubscriberEmails(ctx context.Context, courseID int64) ([]string, error)

	LockSubscription(ctx context.Context, userID, courseID int64) error
	CourseExists(ctx context.Context, courseID int64) (bool, error)
	SubscriptionExists(ctx context.Context, userID, courseID int64) (bool, error)
	CreateSubscription(ctx context.Context, userID, courseID int64) error
	DeleteSubscription(ctx context.Context, userID, courseID int64) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const courseColumns = `c.id, c.name, c.description, c.preview, c.owner_id, c.updated_at,
	(SELECT COUNT(*) FROM lessons l WHERE l.course_id = c.id)`

func scanCourse(row pgx.Row) (Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Preview, &c.OwnerID, &c.UpdatedAt, &c.LessonsCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return Course{}, fmt.Errorf("course: %w", httpx.ErrNotFound)
	}
	return c, err
}

func (r *repository) GetCourse(ctx context.Context, id int64) (Course, error) {
	return scanCourse(r.db.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses c WHERE c.id = $1`, id))
}

func (r *repository) ListCourses(ctx context.Context, page shared.PageRequest) ([]Course, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM courses`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+courseColumns+` FROM courses c ORDER BY c.id LIMIT $1 OFFSET $2`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) CreateCourse(ctx context.Context, c Course) (Course, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO courses (name, description, preview, owner_id, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id`, c.Name, c.Description, c.Preview, c.OwnerID).Scan(&id)
	if err != nil {
		return Course{}, err
	}
	return r.GetCourse(ctx, id)
}

// UpdateCourse applies column updates. The updated_at stamp is owned by the
// update workflow and is never written here.
func (r *repository) UpdateCourse(ctx context.Context, id int64, updates map[string]interface{}) (Course, error) {
	if err := r.update(ctx, "courses", id, updates, "name", "description", "preview"); err != nil {
		return Course{}, err
	}
	return r.GetCourse(ctx, id)
}

func (r *repository) DeleteCourse(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "courses", id)
}

func (r *repository) LessonsByCourse(ctx context.Context, courseIDs []int64) (map[int64][]Lesson, error) {
	out := make(map[int64][]Lesson, len(courseIDs))
	if len(courseIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE course_id = ANY($1) ORDER BY id`, courseIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		out[*l.CourseID] = append(out[*l.CourseID], l)
	}
	return out, rows.Err()
}

func (r *repository) SubscribedCourses(ctx context.Context, userID int64, courseIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(courseIDs))
	if len(courseIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `SELECT course_id FROM subscriptions WHERE user_id = $1 AND course_id = ANY($2)`, userID, courseIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

const lessonColumns = `id, name, description, preview, video_url, course_id, owner_id`

func scanLesson(row pgx.Row) (Lesson, error) {
	var l Lesson
	err := row.Scan(&l.ID, &l.Name, &l.Description, &l.Preview, &l.VideoURL, &l.CourseID, &l.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lesson{}, fmt.Errorf("lesson: %w", httpx.ErrNotFound)
	}
	return l, err
}

func (r *repository) GetLesson(ctx context.Context, id int64) (Lesson, error) {
	return scanLesson(r.db.QueryRow(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id))
}

// GetLessonForUpdate locks the lesson row so its course reference cannot
// change under a concurrent update.
func (r *repository) GetLessonForUpdate(ctx context.Context, id int64) (Lesson, error) {
	return scanLesson(r.db.QueryRow(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1 FOR UPDATE`, id))
}

func (r *repository) ListLessons(ctx context.Context, filter LessonFilter, page shared.PageRequest) ([]Lesson, int, error) {
	where := ""
	var args []interface{}
	if filter.OwnerID != nil {
		where = " WHERE owner_id = $1"
		args = append(args, *filter.OwnerID)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM lessons`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	argPos := len(args) + 1
	query := fmt.Sprintf(`SELECT %s FROM lessons%s ORDER BY id LIMIT $%d OFFSET $%d`, lessonColumns, where, argPos, argPos+1)
	rows, err := r.db.Query(ctx, query, append(args, page.Limit(), page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (r *repository) CreateLesson(ctx context.Context, l Lesson) (Lesson, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO lessons (name, description, preview, video_url, course_id, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`, l.Name, l.Description, l.Preview, l.VideoURL, l.CourseID, l.OwnerID).Scan(&id)
	if err != nil {
		return Lesson{}, err
	}
	l.ID = id
	return l, nil
}

func (r *repository) UpdateLesson(ctx context.Context, id int64, updates map[string]interface{}) (Lesson, error) {
	if err := r.update(ctx, "lessons", id, updates, "name", "description", "preview", "video_url", "course_id"); err != nil {
		return Lesson{}, err
	}
	return r.GetLesson(ctx, id)
}

func (r *repository) DeleteLesson(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "lessons", id)
}

// LockCourseStamp reads the course name and stamp while holding the row lock
// for the rest of the transaction.
func (r *repository) LockCourseStamp(ctx context.Context, courseID int64) (string, time.Time, error) {
	var (
		name string
		at   time.Time
	)
	err := r.db.QueryRow(ctx, `SELECT name, updated_at FROM courses WHERE id = $1 FOR NO KEY UPDATE`, courseID).Scan(&name, &at)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", time.Time{}, fmt.Errorf("course %d: %w", courseID, httpx.ErrNotFound)
	}
	return name, at, err
}

func (r *repository) SetCourseStamp(ctx context.Context, courseID int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE courses SET updated_at = $2 WHERE id = $1`, courseID, at)
	return err
}

func (r *repository) SubscriberEmails(ctx context.Context, courseID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.email
		FROM subscriptions s
		JOIN users u ON u.id = s.user_id
		WHERE s.course_id = $1
		ORDER BY s.id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		out = append(out, email)
	}
	return out, rows.Err()
}

// LockSubscription serializes toggles of one (user, course) pair until the
// surrounding transaction ends.
func (r *repository) LockSubscription(ctx context.Context, userID, courseID int64) error {
	_, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1::bigint)`, subscriptionLockKey(userID, courseID))
	return err
}

// subscriptionLockKey folds the full 64-bit pair into one advisory lock key.
func subscriptionLockKey(userID, courseID int64) int64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(userID))
	binary.BigEndian.PutUint64(buf[8:], uint64(courseID))
	h := fnv.New64a()
	_, _ = h.Write(buf[:])
	return int64(h.Sum64())
}

func (r *repository) CourseExists(ctx context.Context, courseID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`, courseID).Scan(&ok)
	return ok, err
}

func (r *repository) SubscriptionExists(ctx context.Context, userID, courseID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE user_id = $1 AND course_id = $2)`, userID, courseID).Scan(&ok)
	return ok, err
}

func (r *repository) CreateSubscription(ctx context.Context, userID, courseID int64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO subscriptions (user_id, course_id) VALUES ($1, $2)`, userID, courseID)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("subscription: %w", httpx.ErrDuplicate)
	}
	return err
}

func (r *repository) DeleteSubscription(ctx context.Context, userID, courseID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM subscriptions WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	return err
}

func (r *repository) update(ctx context.Context, table string, id int64, updates map[string]interface{}, allowed ...string) error {
	var (
		sets []string
		args []interface{}
	)
	for _, col := range allowed {
		if v, ok := updates[col]; ok {
			args = append(args, v)
			sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(sets, ", "), len(args))
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", table, id, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) deleteByID(ctx context.Context, table string, id int64) error {
	tag, err := r.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", table, id, httpx.ErrNotFound)
	}
	return nil
}
