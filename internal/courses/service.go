package courses

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/learnhub/learnhub/internal/platform/httpx"
	"github.com/learnhub/learnhub/internal/rbac"
	"github.com/learnhub/learnhub/internal/shared"
)

// Service implements course, lesson and subscription use cases.
type Service struct {
	repo      Repository
	engine    *rbac.Engine
	workflow  *Workflow
	auditor   shared.Auditor
	validator *httpx.Validator
	logger    *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, engine *rbac.Engine, workflow *Workflow, auditor shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if auditor == nil {
		auditor = shared.NopAuditor{}
	}
	return &Service{
		repo:      repo,
		engine:    engine,
		workflow:  workflow,
		auditor:   auditor,
		validator: httpx.NewValidator(),
		logger:    logger,
	}
}

// Gate applies the collection-level rule for action on kind. Handlers call it
// before reading path, query or body so anonymous callers see 401 rather than
// input errors.
func (s *Service) Gate(actor rbac.Actor, action rbac.Action, kind rbac.ResourceKind) error {
	return s.engine.Authorize(actor, action, kind, nil)
}

// ListCourses returns a page of courses with their lessons.
func (s *Service) ListCourses(ctx context.Context, actor rbac.Actor, page shared.PageRequest) (shared.Page[Course], error) {
	if err := s.engine.Authorize(actor, rbac.ActionList, rbac.KindCourse, nil); err != nil {
		return shared.Page[Course]{}, err
	}
	items, total, err := s.repo.ListCourses(ctx, page)
	if err != nil {
		return shared.Page[Course]{}, fmt.Errorf("list courses: %w", err)
	}
	if err := s.enrich(ctx, actor, items); err != nil {
		return shared.Page[Course]{}, err
	}
	return shared.NewPage(page, total, items), nil
}

// GetCourse returns one course with its lessons.
func (s *Service) GetCourse(ctx context.Context, actor rbac.Actor, id int64) (Course, error) {
	if err := s.engine.Authorize(actor, rbac.ActionRetrieve, rbac.KindCourse, nil); err != nil {
		return Course{}, err
	}
	course, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err := s.engine.Authorize(actor, rbac.ActionRetrieve, rbac.KindCourse, course.Resource()); err != nil {
		return Course{}, err
	}
	items := []Course{course}
	if err := s.enrich(ctx, actor, items); err != nil {
		return Course{}, err
	}
	return items[0], nil
}

// CreateCourse stores a course owned by the actor.
func (s *Service) CreateCourse(ctx context.Context, actor rbac.Actor, in CourseInput) (Course, error) {
	if err := s.engine.Authorize(actor, rbac.ActionCreate, rbac.KindCourse, nil); err != nil {
		return Course{}, err
	}
	if err := s.checkCourse(in, true); err != nil {
		return Course{}, err
	}
	owner := actor.ID
	course, err := s.repo.CreateCourse(ctx, Course{
		Name:        strings.TrimSpace(*in.Name),
		Description: in.Description,
		Preview:     in.Preview,
		OwnerID:     &owner,
	})
	if err != nil {
		return Course{}, fmt.Errorf("create course: %w", err)
	}
	course.Lessons = []Lesson{}
	return course, nil
}

// UpdateCourse edits a course and runs the update workflow for it. With
// partial false the request must carry every required field.
func (s *Service) UpdateCourse(ctx context.Context, actor rbac.Actor, id int64, in CourseInput, partial bool) (Course, error) {
	if err := s.engine.Authorize(actor, rbac.ActionUpdate, rbac.KindCourse, nil); err != nil {
		return Course{}, err
	}

	var (
		updated Course
		pending *Notification
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		current, err := tx.GetCourse(ctx, id)
		if err != nil {
			return err
		}
		if err := s.engine.Authorize(actor, rbac.ActionUpdate, rbac.KindCourse, current.Resource()); err != nil {
			return err
		}
		if err := s.checkCourse(in, !partial); err != nil {
			return err
		}

		updates := make(map[string]interface{})
		if in.Name != nil {
			updates["name"] = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.Preview != nil {
			updates["preview"] = *in.Preview
		}
		if _, err := tx.UpdateCourse(ctx, id, updates); err != nil {
			return err
		}
		if pending, err = s.workflow.OnMutated(ctx, tx, id); err != nil {
			return fmt.Errorf("stamp course %d: %w", id, err)
		}
		updated, err = tx.GetCourse(ctx, id)
		return err
	})
	if err != nil {
		return Course{}, err
	}
	s.workflow.Dispatch(ctx, pending)

	items := []Course{updated}
	if err := s.enrich(ctx, actor, items); err != nil {
		return Course{}, err
	}
	return items[0], nil
}

// DeleteCourse removes a course. Its lessons stay and lose their course.
func (s *Service) DeleteCourse(ctx context.Context, actor rbac.Actor, id int64) error {
	if err := s.engine.Authorize(actor, rbac.ActionDelete, rbac.KindCourse, nil); err != nil {
		return err
	}
	var name string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		current, err := tx.GetCourse(ctx, id)
		if err != nil {
			return err
		}
		if err := s.engine.Authorize(actor, rbac.ActionDelete, rbac.KindCourse, current.Resource()); err != nil {
			return err
		}
		name = current.Name
		return tx.DeleteCourse(ctx, id)
	})
	if err != nil {
		return err
	}
	s.audit(ctx, shared.NewAuditLog(actor.ID, shared.AuditDelete, "course", id, map[string]any{"name": name}))
	return nil
}

// ListLessons returns every lesson to moderators and only their own lessons
// to everybody else.
func (s *Service) ListLessons(ctx context.Context, actor rbac.Actor, page shared.PageRequest) (shared.Page[Lesson], error) {
	if err := s.engine.Authorize(actor, rbac.ActionList, rbac.KindLesson, nil); err != nil {
		return shared.Page[Lesson]{}, err
	}
	var filter LessonFilter
	if !actor.IsModerator() {
		owner := actor.ID
		filter.OwnerID = &owner
	}
	items, total, err := s.repo.ListLessons(ctx, filter, page)
	if err != nil {
		return shared.Page[Lesson]{}, fmt.Errorf("list lessons: %w", err)
	}
	return shared.NewPage(page, total, items), nil
}

// GetLesson returns a lesson to its owner or a moderator.
func (s *Service) GetLesson(ctx context.Context, actor rbac.Actor, id int64) (Lesson, error) {
	if err := s.engine.Authorize(actor, rbac.ActionRetrieve, rbac.KindLesson, nil); err != nil {
		return Lesson{}, err
	}
	lesson, err := s.repo.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if err := s.engine.Authorize(actor, rbac.ActionRetrieve, rbac.KindLesson, lesson.Resource()); err != nil {
		return Lesson{}, err
	}
	return lesson, nil
}

// CreateLesson stores a lesson owned by the actor and runs the update
// workflow for its course.
func (s *Service) CreateLesson(ctx context.Context, actor rbac.Actor, in LessonInput) (Lesson, error) {
	if err := s.engine.Authorize(actor, rbac.ActionCreate, rbac.KindLesson, nil); err != nil {
		return Lesson{}, err
	}
	if err := s.checkLesson(in, true); err != nil {
		return Lesson{}, err
	}
	if in.CourseID == nil {
		return Lesson{}, httpx.NewFieldError("course", "this field is required")
	}

	var (
		created Lesson
		pending *Notification
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := requireCourse(ctx, tx, *in.CourseID); err != nil {
			return err
		}
		owner := actor.ID
		var err error
		created, err = tx.CreateLesson(ctx, Lesson{
			Name:        strings.TrimSpace(*in.Name),
			Description: in.Description,
			Preview:     in.Preview,
			VideoURL:    in.VideoURL,
			CourseID:    in.CourseID,
			OwnerID:     &owner,
		})
		if err != nil {
			return fmt.Errorf("create lesson: %w", err)
		}
		pending, err = s.workflow.OnMutated(ctx, tx, *in.CourseID)
		return err
	})
	if err != nil {
		return Lesson{}, err
	}
	s.workflow.Dispatch(ctx, pending)
	return created, nil
}

// UpdateLesson edits a lesson. When the lesson moves to another course both
// the old and the new course are stamped.
func (s *Service) UpdateLesson(ctx context.Context, actor rbac.Actor, id int64, in LessonInput, partial bool) (Lesson, error) {
	if err := s.engine.Authorize(actor, rbac.ActionUpdate, rbac.KindLesson, nil); err != nil {
		return Lesson{}, err
	}

	var (
		updated Lesson
		pending []*Notification
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		current, err := tx.GetLessonForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.engine.Authorize(actor, rbac.ActionUpdate, rbac.KindLesson, current.Resource()); err != nil {
			return err
		}
		if err := s.checkLesson(in, !partial); err != nil {
			return err
		}

		updates := make(map[string]interface{})
		if in.Name != nil {
			updates["name"] = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.Preview != nil {
			updates["preview"] = *in.Preview
		}
		if in.VideoURL != nil {
			updates["video_url"] = *in.VideoURL
		}
		if in.CourseID != nil {
			if err := requireCourse(ctx, tx, *in.CourseID); err != nil {
				return err
			}
			updates["course_id"] = *in.CourseID
		}
		if updated, err = tx.UpdateLesson(ctx, id, updates); err != nil {
			return err
		}

		for _, courseID := range affectedCourses(current.CourseID, updated.CourseID) {
			n, err := s.workflow.OnMutated(ctx, tx, courseID)
			if err != nil {
				return fmt.Errorf("stamp course %d: %w", courseID, err)
			}
			pending = append(pending, n)
		}
		return nil
	})
	if err != nil {
		return Lesson{}, err
	}
	s.workflow.Dispatch(ctx, pending...)
	return updated, nil
}

// DeleteLesson removes a lesson owned by the actor and stamps its course.
func (s *Service) DeleteLesson(ctx context.Context, actor rbac.Actor, id int64) error {
	if err := s.engine.Authorize(actor, rbac.ActionDelete, rbac.KindLesson, nil); err != nil {
		return err
	}

	var (
		deleted Lesson
		pending *Notification
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		current, err := tx.GetLessonForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.engine.Authorize(actor, rbac.ActionDelete, rbac.KindLesson, current.Resource()); err != nil {
			return err
		}
		if current.CourseID != nil {
			if pending, err = s.workflow.OnMutated(ctx, tx, *current.CourseID); err != nil {
				return fmt.Errorf("stamp course %d: %w", *current.CourseID, err)
			}
		}
		deleted = current
		return tx.DeleteLesson(ctx, id)
	})
	if err != nil {
		return err
	}
	s.workflow.Dispatch(ctx, pending)
	s.audit(ctx, shared.NewAuditLog(actor.ID, shared.AuditDelete, "lesson", id, map[string]any{
		"name":      deleted.Name,
		"course_id": deleted.CourseID,
	}))
	return nil
}

func (s *Service) checkCourse(in CourseInput, full bool) error {
	if err := s.validator.Struct(in); err != nil {
		return err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return httpx.NewFieldError("name", "this field may not be blank")
	}
	if full && in.Name == nil {
		return httpx.NewFieldError("name", "this field is required")
	}
	return courseContent.Validate(presentFields(map[string]*string{
		"description": in.Description,
	}))
}

func (s *Service) checkLesson(in LessonInput, full bool) error {
	if err := s.validator.Struct(in); err != nil {
		return err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return httpx.NewFieldError("name", "this field may not be blank")
	}
	if full && in.Name == nil {
		return httpx.NewFieldError("name", "this field is required")
	}
	return lessonContent.Validate(presentFields(map[string]*string{
		"description": in.Description,
		"video_url":   in.VideoURL,
	}))
}

func requireCourse(ctx context.Context, repo Repository, courseID int64) error {
	ok, err := repo.CourseExists(ctx, courseID)
	if err != nil {
		return err
	}
	if !ok {
		return httpx.NewFieldError("course", fmt.Sprintf("invalid pk %d, object does not exist", courseID))
	}
	return nil
}

// affectedCourses lists the distinct non-nil course ids in ascending order so
// concurrent moves lock course rows consistently.
func affectedCourses(before, after *int64) []int64 {
	var ids []int64
	for _, id := range []*int64{before, after} {
		if id != nil && !slices.Contains(ids, *id) {
			ids = append(ids, *id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (s *Service) enrich(ctx context.Context, actor rbac.Actor, items []Course) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	for i, c := range items {
		ids[i] = c.ID
	}
	lessons, err := s.repo.LessonsByCourse(ctx, ids)
	if err != nil {
		return fmt.Errorf("course lessons: %w", err)
	}
	subscribed := map[int64]bool{}
	if actor.Authenticated {
		if subscribed, err = s.repo.SubscribedCourses(ctx, actor.ID, ids); err != nil {
			return fmt.Errorf("course subscriptions: %w", err)
		}
	}
	for i := range items {
		items[i].Lessons = lessons[items[i].ID]
		if items[i].Lessons == nil {
			items[i].Lessons = []Lesson{}
		}
		items[i].LessonsCount = len(items[i].Lessons)
		items[i].IsSubscribed = subscribed[items[i].ID]
	}
	return nil
}

func (s *Service) audit(ctx context.Context, entry shared.AuditLog) {
	if err := s.auditor.Record(ctx, entry); err != nil {
		s.logger.Warn("record audit log",
			slog.String("entity", entry.Entity),
			slog.String("entity_id", entry.EntityID),
			slog.Any("error", err),
		)
	}
}
