package courses

import (
	"time"

	"github.com/learnhub/learnhub/internal/rbac"
)

// Course is a container of lessons owned by its author.
type Course struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	Preview      *string   `json:"preview"`
	OwnerID      *int64    `json:"owner"`
	UpdatedAt    time.Time `json:"updated_at"`
	LessonsCount int       `json:"lessons_count"`
	Lessons      []Lesson  `json:"lessons"`
	IsSubscribed bool      `json:"is_subscribed"`
}

// Resource returns the authorization view of the course.
func (c Course) Resource() *rbac.Resource {
	return rbac.OwnedBy(rbac.KindCourse, c.OwnerID)
}

// Lesson is a unit of content that optionally belongs to a course.
type Lesson struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Preview     *string `json:"preview"`
	VideoURL    *string `json:"video_url"`
	CourseID    *int64  `json:"course"`
	OwnerID     *int64  `json:"owner"`
}

// Resource returns the authorization view of the lesson.
func (l Lesson) Resource() *rbac.Resource {
	return rbac.OwnedBy(rbac.KindLesson, l.OwnerID)
}

// LessonFilter narrows a lesson listing. A nil OwnerID lists every lesson.
type LessonFilter struct {
	OwnerID *int64
}

// ToggleResult reports the subscription state after a toggle.
type ToggleResult struct {
	Subscribed bool   `json:"subscribed"`
	Message    string `json:"message"`
}

// Notification is a course update email ready for submission.
type Notification struct {
	CourseID   int64
	Subject    string
	Body       string
	Recipients []string
}
