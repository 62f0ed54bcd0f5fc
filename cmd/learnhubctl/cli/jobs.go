package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hibiken/asynq"

	"github.com/learnhub/learnhub/jobs"
)

// TaskEnqueuer submits tasks. *jobs.Client satisfies it.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueReader reads queue state. *asynq.Inspector satisfies it.
type QueueReader interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for background jobs.
type JobsCLI struct {
	client    TaskEnqueuer
	inspector QueueReader
}

// NewJobsCLI builds the helpers over an enqueuer and a queue reader.
func NewJobsCLI(client TaskEnqueuer, inspector QueueReader) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector}
}

// Trigger enqueues a periodic job by name outside its schedule.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	task, err := jobs.NewTaskByName(name)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos for observability.
func (c *JobsCLI) ListScheduled(size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// TriggerCommand runs "jobs trigger <name>".
func (c *JobsCLI) TriggerCommand(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "usage: learnhubctl jobs trigger <name>")
		return exitUsage
	}
	info, err := c.Trigger(ctx, args[0])
	if err != nil {
		fmt.Fprintf(stderr, "trigger %s: %v\n", args[0], err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	return exitOK
}

// StatsCommand runs "jobs stats".
func (c *JobsCLI) StatsCommand(stdout, stderr io.Writer) int {
	stats, err := c.InspectQueue()
	if err != nil {
		fmt.Fprintf(stderr, "inspect queue: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)

	scheduled, err := c.ListScheduled(10)
	if err != nil {
		fmt.Fprintf(stderr, "list scheduled: %v\n", err)
		return exitFailure
	}
	for _, info := range scheduled {
		fmt.Fprintf(stdout, "scheduled %s id=%s at=%s\n", info.Type, info.ID, info.NextProcessAt.UTC().Format("2006-01-02T15:04:05Z"))
	}
	return exitOK
}
