package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/atlas-erp/atlas-mrp/internal/app"
	"github.com/atlas-erp/atlas-mrp/internal/bom"
	"github.com/atlas-erp/atlas-mrp/internal/planning"
	"github.com/atlas-erp/atlas-mrp/jobs"
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

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	bomRepo := bom.NewRepository(pool)
	bomCache := bom.NewCache(redisClient, cfg.BOMCacheTTL)
	bomService := bom.NewService(bomRepo, bomCache)

	planningRepo := planning.NewRepository(pool)
	planner := planning.NewService(planningRepo, planningRepo, planningRepo, bomService, logger)

	runLock := jobs.NewRunLock(redisClient, cfg.RunLockTTL)
	runJob := jobs.NewMRPRunJob(planner, planningRepo, runLock, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	var cron []jobs.CronRegistration
	if cfg.MRPCron != "" && cfg.MRPOrganizationID > 0 && cfg.MRPPlantID > 0 {
		task, err := jobs.NewMRPRunTask(jobs.MRPRunPayload{
			OrganizationID: cfg.MRPOrganizationID,
			PlantID:        cfg.MRPPlantID,
			HorizonDays:    cfg.MRPHorizonDays,
		})
		if err != nil {
			logger.Error("build scheduled mrp task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.MRPCron, Task: task})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskMRPRun, Handler: runJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	inspector := asynq.NewInspector(redisOpts)
	router := chi.NewRouter()
	jobs.NewHandler(inspector, logger).MountRoutes(router)
	healthSrv := &http.Server{Addr: cfg.HealthAddr, Handler: router}
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server", slog.Any("error", err))
		}
	}()
	defer func() { _ = healthSrv.Shutdown(context.Background()) }()

	logger.Info("worker started", slog.String("health_addr", cfg.HealthAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
