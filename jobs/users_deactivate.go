package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/learnhub/learnhub/internal/jobs"
)

// DefaultInactiveAfter is how long an account may go without logging in.
const DefaultInactiveAfter = 30 * 24 * time.Hour

// UsersDeactivator disables idle accounts.
type UsersDeactivator interface {
	DeactivateInactive(ctx context.Context, idle time.Duration) (int64, error)
}

// UsersDeactivateJob disables accounts that have not logged in recently.
type UsersDeactivateJob struct {
	Users         UsersDeactivator
	InactiveAfter time.Duration
	Logger        *slog.Logger
	Metrics       *jobmetrics.Metrics
}

// NewUsersDeactivateJob wires dependencies for the deactivation handler.
func NewUsersDeactivateJob(users UsersDeactivator, inactiveAfter time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *UsersDeactivateJob {
	if inactiveAfter <= 0 {
		inactiveAfter = DefaultInactiveAfter
	}
	return &UsersDeactivateJob{Users: users, InactiveAfter: inactiveAfter, Logger: logger, Metrics: metrics}
}

// Handle processes TaskUsersDeactivate tasks.
func (j *UsersDeactivateJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Users == nil {
		return errors.New("users deactivate: handler not configured")
	}
	tracker := j.Metrics.Track(TaskUsersDeactivate)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := loggerOrDefault(j.Logger).With(slog.Duration("inactive_after", j.InactiveAfter))
	n, err := j.Users.DeactivateInactive(ctx, j.InactiveAfter)
	if err != nil {
		logger.Error("deactivate inactive users", slog.Any("error", err))
		return err
	}
	tracker.Items("deactivated", int(n))
	logger.Info("inactive users deactivated", slog.Int64("count", n))
	return nil
}
