package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCourseUpdateEmail delivers a course update email to subscribers.
	TaskCourseUpdateEmail = "course:update-email"
	// TaskPaymentsReconcile dates payments whose checkout completed.
	TaskPaymentsReconcile = "payments:reconcile"
	// TaskUsersDeactivate disables accounts that stopped logging in.
	TaskUsersDeactivate = "users:deactivate-inactive"
)

// CourseUpdateEmailPayload describes one course update email.
type CourseUpdateEmailPayload struct {
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

// NewCourseUpdateEmailTask constructs an email task. It is never retried so a
// subscriber receives each notification at most once.
func NewCourseUpdateEmailTask(payload CourseUpdateEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCourseUpdateEmail, data, asynq.Queue(QueueDefault), asynq.MaxRetry(0)), nil
}

// NewPaymentsReconcileTask builds the periodic reconciliation task.
func NewPaymentsReconcileTask() *asynq.Task {
	return asynq.NewTask(TaskPaymentsReconcile, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}

// NewUsersDeactivateTask builds the periodic deactivation task.
func NewUsersDeactivateTask() *asynq.Task {
	return asynq.NewTask(TaskUsersDeactivate, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}

// NewTaskByName builds a periodic task for manual triggering.
func NewTaskByName(name string) (*asynq.Task, error) {
	switch name {
	case TaskPaymentsReconcile:
		return NewPaymentsReconcileTask(), nil
	case TaskUsersDeactivate:
		return NewUsersDeactivateTask(), nil
	default:
		return nil, fmt.Errorf("jobs: unknown task %q", name)
	}
}
