package courses

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Notification outcomes reported to the workflow observer.
const (
	OutcomeSubmitted    = "submitted"
	OutcomeSuppressed   = "suppressed"
	OutcomeNoRecipients = "no_recipients"
	OutcomeFailed       = "failed"
)

// Notifier hands a course update email to the delivery pipeline. Submission
// is at-most-once and delivery is not awaited.
type Notifier interface {
	Submit(ctx context.Context, subject, body string, recipients []string) error
}

// WorkflowOption customises a Workflow.
type WorkflowOption func(*Workflow)

// WithClock overrides the time source.
func WithClock(now func() time.Time) WorkflowOption {
	return func(w *Workflow) { w.now = now }
}

// WithOutcomeObserver receives one outcome per stamped course.
func WithOutcomeObserver(fn func(outcome string)) WorkflowOption {
	return func(w *Workflow) { w.observe = fn }
}

// Workflow stamps courses on content changes and decides whether
// subscribers should hear about it.
type Workflow struct {
	threshold time.Duration
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
	observe   func(string)
	printer   *message.Printer
}

// NewWorkflow constructs a Workflow suppressing notifications for stamps
// closer than threshold to the previous one.
func NewWorkflow(threshold time.Duration, notifier Notifier, logger *slog.Logger, opts ...WorkflowOption) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Workflow{
		threshold: threshold,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		observe:   func(string) {},
		printer:   message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnMutated stamps the course inside the caller's transaction and returns
// the notification to send once that transaction commits, or nil when the
// previous stamp is within the threshold.
//
// The elapsed time is measured from the previously stored stamp, so a burst
// of edits each compares against the stamp written by the edit before it.
func (w *Workflow) OnMutated(ctx context.Context, repo Repository, courseID int64) (*Notification, error) {
	name, previous, err := repo.LockCourseStamp(ctx, courseID)
	if err != nil {
		return nil, err
	}

	now := w.now().UTC()
	stamp := now
	if stamp.Before(previous) {
		stamp = previous
	}
	if err := repo.SetCourseStamp(ctx, courseID, stamp); err != nil {
		return nil, err
	}

	if now.Sub(previous) <= w.threshold {
		w.observe(OutcomeSuppressed)
		return nil, nil
	}

	recipients, err := repo.SubscriberEmails(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return &Notification{
		CourseID:   courseID,
		Subject:    w.printer.Sprintf("Course %q has been updated", name),
		Body:       w.printer.Sprintf("The course %q you are subscribed to was updated on %s. Sign in to see what changed.", name, now.Format("2 January 2006 15:04 MST")),
		Recipients: recipients,
	}, nil
}

// Dispatch submits pending notifications. Failures are logged and never
// returned: the content change has already been committed.
func (w *Workflow) Dispatch(ctx context.Context, pending ...*Notification) {
	ctx = context.WithoutCancel(ctx)
	for _, n := range pending {
		if n == nil {
			continue
		}
		if len(n.Recipients) == 0 {
			w.observe(OutcomeNoRecipients)
			continue
		}
		if err := w.notifier.Submit(ctx, n.Subject, n.Body, n.Recipients); err != nil {
			w.observe(OutcomeFailed)
			w.logger.Warn("submit course update notification",
				slog.Int64("course_id", n.CourseID),
				slog.Int("recipients", len(n.Recipients)),
				slog.Any("error", err),
			)
			continue
		}
		w.observe(OutcomeSubmitted)
		w.logger.Info("course update notification submitted",
			slog.Int64("course_id", n.CourseID),
			slog.Int("recipients", len(n.Recipients)),
		)
	}
}
