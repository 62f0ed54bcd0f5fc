package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Enqueuer submits tasks to the queue. *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier hands course update emails to the worker through asynq.
type QueueNotifier struct {
	queue Enqueuer
}

// NewQueueNotifier constructs a QueueNotifier.
func NewQueueNotifier(queue Enqueuer) *QueueNotifier {
	return &QueueNotifier{queue: queue}
}

// Submit enqueues one email task for all recipients.
func (n *QueueNotifier) Submit(ctx context.Context, subject, body string, recipients []string) error {
	task, err := NewCourseUpdateEmailTask(CourseUpdateEmailPayload{
		Subject:    subject,
		Body:       body,
		Recipients: recipients,
	})
	if err != nil {
		return fmt.Errorf("jobs: build email task: %w", err)
	}
	if _, err := n.queue.EnqueueContext(ctx, task, asynq.TaskID(uuid.NewString())); err != nil {
		return fmt.Errorf("jobs: enqueue email task: %w", err)
	}
	return nil
}
