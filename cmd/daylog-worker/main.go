package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"daylog/internal/amqp"
	"daylog/internal/config"
	applog "daylog/internal/log"
	"daylog/internal/store/postgres"
	"daylog/internal/store/sqlite"
	"daylog/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.PostgresURL == "" {
		logger.Error("POSTGRES_URL is required for the mirror worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	origin, err := sqlite.New(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("sqlite initialization failed", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer origin.Close()

	mirror, err := postgres.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("postgres initialization failed", applog.FieldError, err)
		os.Exit(1)
	}
	defer mirror.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("AMQP initialization failed", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewMirrorWorker(origin, mirror, cfg.MirrorBatchSize, logger)

	logger.Info("starting daylog-worker",
		applog.FieldOperation, applog.OpStartup,
		"queue", cfg.AMQPQueue,
		"sweep_interval", cfg.MirrorInterval.String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Consume(gctx, client)
	})
	g.Go(func() error {
		return w.Sweep(gctx, cfg.MirrorInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
