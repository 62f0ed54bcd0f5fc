package courses

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/learnhub/learnhub/internal/platform/httpx"
	"github.com/learnhub/learnhub/internal/shared"
)

type subKey struct{ user, course int64 }

// memRepo is an in-memory Repository. WithTx restores a snapshot when the
// callback fails.
type memRepo struct {
	courses   map[int64]Course
	lessons   map[int64]Lesson
	subs      map[subKey]bool
	emails    map[int64]string
	nextID    int64
	stamped   []int64
	failStamp error
}

func newMemRepo() *memRepo {
	return &memRepo{
		courses: map[int64]Course{},
		lessons: map[int64]Lesson{},
		subs:    map[subKey]bool{},
		emails:  map[int64]string{},
		nextID:  100,
	}
}

func (r *memRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memRepo) addCourse(name string, owner *int64, updatedAt time.Time) Course {
	c := Course{ID: r.id(), Name: name, OwnerID: owner, UpdatedAt: updatedAt}
	r.courses[c.ID] = c
	return c
}

func (r *memRepo) addLesson(name string, courseID, owner *int64) Lesson {
	l := Lesson{ID: r.id(), Name: name, CourseID: courseID, OwnerID: owner}
	r.lessons[l.ID] = l
	return l
}

func (r *memRepo) subscribe(userID int64, email string, courseID int64) {
	r.emails[userID] = email
	r.subs[subKey{userID, courseID}] = true
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	courses, lessons, subs := maps.Clone(r.courses), maps.Clone(r.lessons), maps.Clone(r.subs)
	stamped := slices.Clone(r.stamped)
	if err := fn(ctx, r); err != nil {
		r.courses, r.lessons, r.subs, r.stamped = courses, lessons, subs, stamped
		return err
	}
	return nil
}

func (r *memRepo) GetCourse(ctx context.Context, id int64) (Course, error) {
	c, ok := r.courses[id]
	if !ok {
		return Course{}, fmt.Errorf("course: %w", httpx.ErrNotFound)
	}
	return c, nil
}

func (r *memRepo) ListCourses(ctx context.Context, page shared.PageRequest) ([]Course, int, error) {
	ids := slices.Sorted(maps.Keys(r.courses))
	var out []Course
	for i, id := range ids {
		if i >= page.Offset() && len(out) < page.Limit() {
			out = append(out, r.courses[id])
		}
	}
	return out, len(ids), nil
}

func (r *memRepo) CreateCourse(ctx context.Context, c Course) (Course, error) {
	c.ID = r.id()
	c.UpdatedAt = time.Now()
	r.courses[c.ID] = c
	return c, nil
}

func (r *memRepo) UpdateCourse(ctx context.Context, id int64, updates map[string]interface{}) (Course, error) {
	c, ok := r.courses[id]
	if !ok {
		return Course{}, httpx.ErrNotFound
	}
	if v, ok := updates["name"]; ok {
		c.Name = v.(string)
	}
	if v, ok := updates["description"]; ok {
		s := v.(string)
		c.Description = &s
	}
	if v, ok := updates["preview"]; ok {
		s := v.(string)
		c.Preview = &s
	}
	r.courses[id] = c
	return c, nil
}

func (r *memRepo) DeleteCourse(ctx context.Context, id int64) error {
	if _, ok := r.courses[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.courses, id)
	for lid, l := range r.lessons {
		if l.CourseID != nil && *l.CourseID == id {
			l.CourseID = nil
			r.lessons[lid] = l
		}
	}
	for k := range r.subs {
		if k.course == id {
			delete(r.subs, k)
		}
	}
	return nil
}

func (r *memRepo) LessonsByCourse(ctx context.Context, courseIDs []int64) (map[int64][]Lesson, error) {
	out := map[int64][]Lesson{}
	for _, id := range slices.Sorted(maps.Keys(r.lessons)) {
		l := r.lessons[id]
		if l.CourseID != nil && slices.Contains(courseIDs, *l.CourseID) {
			out[*l.CourseID] = append(out[*l.CourseID], l)
		}
	}
	return out, nil
}

func (r *memRepo) SubscribedCourses(ctx context.Context, userID int64, courseIDs []int64) (map[int64]bool, error) {
	out := map[int64]bool{}
	for _, id := range courseIDs {
		if r.subs[subKey{userID, id}] {
			out[id] = true
		}
	}
	return out, nil
}

func (r *memRepo) GetLesson(ctx context.Context, id int64) (Lesson, error) {
	l, ok := r.lessons[id]
	if !ok {
		return Lesson{}, fmt.Errorf("lesson: %w", httpx.ErrNotFound)
	}
	return l, nil
}

func (r *memRepo) GetLessonForUpdate(ctx context.Context, id int64) (Lesson, error) {
	return r.GetLesson(ctx, id)
}

func (r *memRepo) ListLessons(ctx context.Context, filter LessonFilter, page shared.PageRequest) ([]Lesson, int, error) {
	var matched []Lesson
	for _, id := range slices.Sorted(maps.Keys(r.lessons)) {
		l := r.lessons[id]
		if filter.OwnerID != nil && (l.OwnerID == nil || *l.OwnerID != *filter.OwnerID) {
			continue
		}
		matched = append(matched, l)
	}
	end := min(page.Offset()+page.Limit(), len(matched))
	if page.Offset() >= len(matched) {
		return nil, len(matched), nil
	}
	return matched[page.Offset():end], len(matched), nil
}

func (r *memRepo) CreateLesson(ctx context.Context, l Lesson) (Lesson, error) {
	l.ID = r.id()
	r.lessons[l.ID] = l
	return l, nil
}

func (r *memRepo) UpdateLesson(ctx context.Context, id int64, updates map[string]interface{}) (Lesson, error) {
	l, ok := r.lessons[id]
	if !ok {
		return Lesson{}, httpx.ErrNotFound
	}
	str := func(key string, dst **string) {
		if v, ok := updates[key]; ok {
			s := v.(string)
			*dst = &s
		}
	}
	if v, ok := updates["name"]; ok {
		l.Name = v.(string)
	}
	str("description", &l.Description)
	str("preview", &l.Preview)
	str("video_url", &l.VideoURL)
	if v, ok := updates["course_id"]; ok {
		c := v.(int64)
		l.CourseID = &c
	}
	r.lessons[id] = l
	return l, nil
}

func (r *memRepo) DeleteLesson(ctx context.Context, id int64) error {
	if _, ok := r.lessons[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.lessons, id)
	return nil
}

func (r *memRepo) LockCourseStamp(ctx context.Context, courseID int64) (string, time.Time, error) {
	c, ok := r.courses[courseID]
	if !ok {
		return "", time.Time{}, httpx.ErrNotFound
	}
	return c.Name, c.UpdatedAt, nil
}

func (r *memRepo) SetCourseStamp(ctx context.Context, courseID int64, at time.Time) error {
	if r.failStamp != nil {
		return r.failStamp
	}
	c := r.courses[courseID]
	c.UpdatedAt = at
	r.courses[courseID] = c
	r.stamped = append(r.stamped, courseID)
	return nil
}

func (r *memRepo) SubscriberEmails(ctx context.Context, courseID int64) ([]string, error) {
	var out []string
	for _, uid := range slices.Sorted(maps.Keys(r.emails)) {
		if r.subs[subKey{uid, courseID}] {
			out = append(out, r.emails[uid])
		}
	}
	return out, nil
}

func (r *memRepo) LockSubscription(ctx context.Context, userID, courseID int64) error {
	return nil
}

func (r *memRepo) CourseExists(ctx context.Context, courseID int64) (bool, error) {
	_, ok := r.courses[courseID]
	return ok, nil
}

func (r *memRepo) SubscriptionExists(ctx context.Context, userID, courseID int64) (bool, error) {
	return r.subs[subKey{userID, courseID}], nil
}

func (r *memRepo) CreateSubscription(ctx context.Context, userID, courseID int64) error {
	k := subKey{userID, courseID}
	if r.subs[k] {
		return httpx.ErrDuplicate
	}
	r.subs[k] = true
	return nil
}

func (r *memRepo) DeleteSubscription(ctx context.Context, userID, courseID int64) error {
	delete(r.subs, subKey{userID, courseID})
	return nil
}

type submission struct {
	subject    string
	body       string
	recipients []string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []submission
	err  error
}

func (n *fakeNotifier) Submit(ctx context.Context, subject, body string, recipients []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, submission{subject: subject, body: body, recipients: slices.Clone(recipients)})
	return nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type recordingAuditor struct{ entries []shared.AuditLog }

func (a *recordingAuditor) Record(ctx context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

var errBoom = errors.New("boom")

func ptr[T any](v T) *T { return &v }
