package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/learnhub/learnhub/internal/app"
	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/courses"
	"github.com/learnhub/learnhub/internal/observability"
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
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if cfg.AutoMigrate {
		if err := db.RunMigrations(cfg.PGDSN); err != nil {
			logger.Error("run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	engine := rbac.NewEngine(rbac.WithObserver(metrics.ObserveDecision))
	auditLogger := shared.NewAuditLogger(pool)

	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	if err != nil {
		logger.Error("init token issuer", slog.Any("error", err))
		os.Exit(1)
	}
	authService := auth.NewService(auth.NewRepository(pool), issuer, auth.NewRedisRefreshStore(redisClient), logger)
	authHandler := auth.NewHandler(logger, authService)
	authenticator := auth.NewAuthenticator(authService, rbac.NewService(pool), logger)

	jobClient := jobs.NewClient(redisOpts.AsynqOpt())
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	workflow := courses.NewWorkflow(cfg.CourseNotifyDebounce, jobs.NewQueueNotifier(jobClient), logger,
		courses.WithOutcomeObserver(metrics.ObserveNotification))
	coursesService := courses.NewService(courses.NewRepository(pool), engine, workflow, auditLogger, logger)
	coursesHandler := courses.NewHandler(logger, coursesService)

	usersService := users.NewService(users.NewRepository(pool), engine, auditLogger, logger)
	usersHandler := users.NewHandler(logger, usersService)

	paymentsService := payments.NewService(
		payments.NewRepository(pool),
		app.NewPaymentGateway(cfg, logger, metrics.ObserveBreaker),
		engine,
		auditLogger,
		logger,
		payments.WithCurrency(cfg.StripeCurrency),
	)
	paymentsHandler := payments.NewHandler(logger, paymentsService)

	inspector := asynq.NewInspector(redisOpts.AsynqOpt())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Metrics:         metrics,
		Authenticate:    authenticator.Middleware,
		AuthHandler:     authHandler,
		CoursesHandler:  coursesHandler,
		UsersHandler:    usersHandler,
		PaymentsHandler: paymentsHandler,
		JobHandler:      jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
