package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/learnhub/learnhub/cmd/learnhubctl/cli"
	"github.com/learnhub/learnhub/internal/app"
	"github.com/learnhub/learnhub/internal/platform/cache"
	"github.com/learnhub/learnhub/internal/platform/db"
	"github.com/learnhub/learnhub/internal/rbac"
	"github.com/learnhub/learnhub/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}.AsynqOpt()

	deps := cli.Deps{
		Migrator: func() (cli.Migrator, func(), error) {
			m, err := db.NewMigrator(cfg.PGDSN)
			if err != nil {
				return nil, nil, err
			}
			return m, func() {
				if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
					logger.Warn("migrator close", slog.Any("source_error", srcErr), slog.Any("database_error", dbErr))
				}
			}, nil
		},
		Roles: func(ctx context.Context) (cli.RoleManager, func(), error) {
			pool, err := db.New(ctx, cfg.PGDSN)
			if err != nil {
				return nil, nil, err
			}
			return rbac.NewService(pool), pool.Close, nil
		},
		Jobs: func() (*cli.JobsCLI, func(), error) {
			client := jobs.NewClient(redisOpts)
			inspector := asynq.NewInspector(redisOpts)
			return cli.NewJobsCLI(client, inspector), func() {
				if err := inspector.Close(); err != nil {
					logger.Warn("inspector close", slog.Any("error", err))
				}
				if err := client.Close(); err != nil {
					logger.Warn("job client close", slog.Any("error", err))
				}
			}, nil
		},
	}

	code := cli.Run(ctx, os.Args[1:], deps, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
