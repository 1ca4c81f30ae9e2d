package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"daylog/internal/amqp"
	"daylog/internal/auth"
	"daylog/internal/backend"
	"daylog/internal/cache"
	"daylog/internal/config"
	"daylog/internal/core"
	apphttp "daylog/internal/http"
	applog "daylog/internal/log"
	"daylog/internal/services"
)

func main() {
	// Load .env for local development; ignore errors in production.
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backendType, backendOpts := backend.FromAppConfig(cfg)
	store, cleanup, err := backend.Create(ctx, backendType, backendOpts)
	if err != nil {
		logger.Error("backend initialization failed",
			applog.FieldError, err,
			applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer cleanup()
	logger.Info("backend initialized", applog.FieldBackend, cfg.DataBackend)

	// Mirror publishing is optional; without a broker the pending sweep in
	// the worker still catches up from the sync_state column.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without mirror publishing", applog.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	summaries := cache.NewLRU[core.DaySummary](256, 5*time.Minute)
	janitor := cache.NewJanitor(summaries)
	janitor.Start(time.Minute)
	defer janitor.Stop()

	authCfg := auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, TokenTTL: cfg.TokenTTL}
	accounts := auth.NewService(store, authCfg, logger)
	activities := services.NewActivityService(store, publisher, summaries, logger)

	srv := apphttp.NewServer(":"+cfg.Port, activities, accounts, authCfg, logger)
	defer srv.Stop()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received",
			applog.FieldOperation, applog.OpShutdown,
			"signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("starting daylog server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("server stopped")
}
