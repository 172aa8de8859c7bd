package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/signcraft-erp/signcraft-erp/internal/app"
	jobmetrics "github.com/signcraft-erp/signcraft-erp/internal/jobs"
	"github.com/signcraft-erp/signcraft-erp/internal/orders"
	"github.com/signcraft-erp/signcraft-erp/internal/payments"
	"github.com/signcraft-erp/signcraft-erp/internal/platform/cache"
	"github.com/signcraft-erp/signcraft-erp/internal/platform/db"
	"github.com/signcraft-erp/signcraft-erp/internal/shared"
	"github.com/signcraft-erp/signcraft-erp/jobs"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	locker := shared.NewRedisOrderLocker(redisClient, cfg.SyncLockTTL)
	paymentRepo := payments.NewRepository(pool)
	synchronizer := payments.NewSynchronizer(paymentRepo, locker, logger)
	orderRepo := orders.NewRepository(pool)
	orderService := orders.NewService(orderRepo, synchronizer, logger, cfg.HomeState)

	integrityTask, err := jobs.NewNumberingIntegrityTask(time.Now())
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}
	reconcileTask, err := jobs.NewPaymentReconcileTask(time.Now())
	if err != nil {
		logger.Error("build reconcile task", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := jobmetrics.NewMetrics(nil)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskNumberingIntegrity, Handler: jobs.NewNumberingIntegrityHandler(pool, logger, metrics)},
			{Type: jobs.TaskPaymentReconcile, Handler: jobs.NewPaymentReconcileHandler(pool, orderService, logger, metrics)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 1 * * *", Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: reconcileTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
