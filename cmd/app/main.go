package main

import (
	"context"
	"docingest/internal/app"
	"docingest/internal/config"
	"docingest/internal/http/server"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const (
	envDev   = "dev"
	envProd  = "prod"
	envLocal = "local"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting application", "env", cfg.Env, "processing", cfg.Processing.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := app.NewApp(ctx, log, cfg)
	if err != nil {
		log.Error("failed to init app", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("failed to close app", slog.String("error", err.Error()))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		limits := server.Limits{
			MaxUploadSize: cfg.Storage.MaxFileSize,
			AdminToken:    cfg.ReactiveDB.AdminToken,
		}
		return server.StartServer(gctx, &cfg.HTTPServer, log, limits, app.DocumentService, app.AuthService)
	})

	if app.Worker != nil {
		g.Go(func() error {
			return app.Worker.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("application stopped with error", "error", err)
		stop()
		_ = app.Close()
		os.Exit(1)
	}

	log.Info("application stopped")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}
