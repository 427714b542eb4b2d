package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"irecStatApp/config"
	"irecStatApp/internal/app"
	"irecStatApp/internal/app/dto"
	"irecStatApp/internal/handlers/http"
	"irecStatApp/internal/lib/logger/handlers/slogpretty"
	"irecStatApp/pkg/utils"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := setupLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("initializing app", slog.String("env", cfg.Env))
	application, err := app.NewApp(ctx, log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		os.Exit(1)
	}

	go func() {
		if err := application.EventProcessor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("event processor stopped", slog.Any("error", err))
		}
	}()
	go application.RunSweeper(ctx, cfg.CacheSweepInterval)

	if cfg.DemoGenerator {
		go runDemoGenerator(ctx, log, application, cfg)
	}

	httpAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	httpServer := http.NewServer(httpAddr, application.Analytics, application.Broadcaster,
		http.WithMetricsHandler(application.Metrics.Handler()),
		http.WithLogger(log),
	)
	go func() {
		log.Info("HTTP server listening", slog.String("addr", httpAddr))
		if err := httpServer.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Error("HTTP server error", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown error", slog.Any("error", err))
	}
	if err := application.Cleanup(shutdownCtx); err != nil {
		log.Warn("cleanup error", slog.Any("error", err))
	}
	log.Info("service stopped")
}

// runDemoGenerator seeds demo projects and keeps publishing updates to them.
// Not for production use.
func runDemoGenerator(ctx context.Context, log *slog.Logger, a *app.AppContext, cfg *config.Config) {
	gen := utils.NewProjectGenerator("demo", cfg.DemoProjects)
	send := func(batch []*dto.ProjectDTO) {
		for _, u := range batch {
			u.UpdateID = uuid.NewString()
		}
		if err := a.Publish(ctx, batch); err != nil && ctx.Err() == nil {
			log.Warn("demo publish failed", slog.Any("error", err))
		}
	}

	log.Info("starting demo generator", slog.Int("projects", cfg.DemoProjects))
	send(dto.FromModels(gen.Projects(), time.Now()))

	ticker := time.NewTicker(cfg.DemoInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("demo generator stopped")
			return
		case <-ticker.C:
			if changed := gen.Tick(); len(changed) > 0 {
				send(dto.FromModels(changed, time.Now()))
			}
		}
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
