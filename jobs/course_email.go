package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/learnhub/learnhub/internal/jobs"
)

// CourseEmailJob delivers course update emails.
type CourseEmailJob struct {
	Mailer  Mailer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCourseEmailJob wires dependencies for the email handler.
func NewCourseEmailJob(mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics) *CourseEmailJob {
	return &CourseEmailJob{Mailer: mailer, Logger: logger, Metrics: metrics}
}

// Handle processes TaskCourseUpdateEmail tasks.
func (j *CourseEmailJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Mailer == nil {
		return errors.New("course email: handler not configured")
	}
	var payload CourseUpdateEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if len(payload.Recipients) == 0 {
		return nil
	}

	tracker := j.Metrics.Track(TaskCourseUpdateEmail)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := loggerOrDefault(j.Logger).With(slog.Int("recipients", len(payload.Recipients)))
	if err := j.Mailer.Send(ctx, payload.Recipients, payload.Subject, payload.Body); err != nil {
		logger.Error("send course update email", slog.Any("error", err))
		return err
	}
	tracker.Items("sent", len(payload.Recipients))
	logger.Info("course update email sent")
	return nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
