package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/saveman71/saveman71.github.io/internal/pkg/config"
	"github.com/saveman71/saveman71.github.io/internal/telemetry"
	"github.com/saveman71/saveman71.github.io/pkg/site"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("SITE_CONFIG"), "path to config.yaml (default: ./config.yaml if present)")
	flag.Parse()

	// The file is read once up front for process-level settings; the site
	// loads it again and keeps watching it.
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(telemetry.Options{
			ServiceName: cfg.Telemetry.ServiceName,
			Environment: cfg.App.Env,
			Pretty:      cfg.App.Development(),
		}, logger)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	opts := []site.Option{site.WithLogger(logger)}
	if path := watchedConfigPath(*configPath); path != "" {
		opts = append(opts, site.WithFileConfig(path))
	} else {
		opts = append(opts, site.WithConfig(cfg))
	}

	s, err := site.New(opts...)
	if err != nil {
		log.Fatalf("Failed to create site: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		log.Fatalf("Failed to start site: %v", err)
	}

	logger.Info("Site started successfully",
		slog.String("app", cfg.App.Name),
		slog.Bool("stacktraces", cfg.App.Stacktraces),
		slog.Bool("views_reload", cfg.Views.Reload))

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, stopping site...")

	timeout := s.Config().Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Site shutdown complete")
}

// newLogger logs JSON in production and readable text in development.
func newLogger(app config.AppConfig) *slog.Logger {
	if app.Development() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// watchedConfigPath returns the config file to load and watch: the given path,
// or config.yaml when it exists. Empty means there is no file to watch.
func watchedConfigPath(path string) string {
	if path != "" {
		return path
	}
	if info, err := os.Stat(config.DefaultPath); err == nil && info.Mode().IsRegular() {
		return config.DefaultPath
	}
	return ""
}
