package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/learnhub/learnhub/internal/app"
	jobmetrics "github.com/learnhub/learnhub/internal/jobs"
	"github.com/learnhub/learnhub/internal/payments"
	"github.com/learnhub/learnhub/internal/platform/cache"
	"github.com/learnhub/learnhub/internal/platform/db"
	"github.com/learnhub/learnhub/internal/rbac"
	"github.com/learnhub/learnhub/internal/shared"
	"github.com/learnhub/learnhub/internal/users"
	"github.com/learnhub/learnhub/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	metrics := jobmetrics.NewMetrics(nil)
	engine := rbac.NewEngine()
	auditLogger := shared.NewAuditLogger(pool)

	mailer := jobs.NewSMTPMailer(jobs.SMTPConfig{
		Addr:     cfg.SMTPAddr,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		StartTLS: cfg.SMTPStartTLS,
	})
	emailJob := jobs.NewCourseEmailJob(mailer, logger, metrics)

	paymentsService := payments.NewService(
		payments.NewRepository(pool),
		app.NewPaymentGateway(cfg, logger, nil),
		engine,
		auditLogger,
		logger,
		payments.WithCurrency(cfg.StripeCurrency),
	)
	reconcileJob := jobs.NewPaymentsReconcileJob(paymentsService, logger, metrics)

	usersService := users.NewService(users.NewRepository(pool), engine, auditLogger, logger)
	deactivateJob := jobs.NewUsersDeactivateJob(usersService, cfg.UsersInactiveAfter, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts.AsynqOpt(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCourseUpdateEmail, Handler: emailJob.Handle},
			{Type: jobs.TaskPaymentsReconcile, Handler: reconcileJob.Handle},
			{Type: jobs.TaskUsersDeactivate, Handler: deactivateJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.PaymentsReconcileCron, Task: jobs.NewPaymentsReconcileTask()},
			{Spec: cfg.UsersDeactivateCron, Task: jobs.NewUsersDeactivateTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
