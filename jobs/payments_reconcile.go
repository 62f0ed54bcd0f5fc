package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/learnhub/learnhub/internal/jobs"
	"github.com/learnhub/learnhub/internal/payments"
)

// PaymentsReconciler polls the payment provider for pending checkouts.
type PaymentsReconciler interface {
	ReconcilePending(ctx context.Context) (payments.ReconcileReport, error)
}

// PaymentsReconcileJob runs payment reconciliation on schedule.
type PaymentsReconcileJob struct {
	Payments PaymentsReconciler
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewPaymentsReconcileJob wires dependencies for the reconciliation handler.
func NewPaymentsReconcileJob(svc PaymentsReconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *PaymentsReconcileJob {
	return &PaymentsReconcileJob{Payments: svc, Logger: logger, Metrics: metrics}
}

// Handle processes TaskPaymentsReconcile tasks.
func (j *PaymentsReconcileJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Payments == nil {
		return errors.New("payments reconcile: handler not configured")
	}
	tracker := j.Metrics.Track(TaskPaymentsReconcile)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	report, err := j.Payments.ReconcilePending(ctx)
	tracker.Items("completed", report.Completed)
	tracker.Items("skipped", report.Skipped)
	tracker.Items("failed", report.Failed)
	if err != nil {
		loggerOrDefault(j.Logger).Error("reconcile payments", slog.Any("error", err))
		return err
	}
	return nil
}
