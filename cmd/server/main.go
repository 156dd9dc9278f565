package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"caixamisteriosa/internal/app"
	"caixamisteriosa/internal/catalog"
	"caixamisteriosa/internal/clues"
	"caixamisteriosa/internal/config"
	"caixamisteriosa/internal/store"
	httpTransport "caixamisteriosa/internal/transport/http"
)

const releaseVersion = "1.0.0"

//go:embed web/*
var webFS embed.FS

func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "caixa-server",
		Short:         "Live mystery-box giveaway server for operators and participants.",
		Args:          cobra.NoArgs,
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	config.BindFlags(cmd.Flags())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("caixa-server v{{.Version}}\n")

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Set up logger
	var logger *slog.Logger
	logOpts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, logOpts))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, logOpts))
	}

	slog.SetDefault(logger)

	logger.Info("starting caixa misteriosa server",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
	)

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	repo, err := catalog.Open(cfg.Catalog.DSN)
	if err != nil {
		return err
	}
	defer repo.Close()

	var generator clues.Generator = clues.Disabled{}
	if cfg.Clues.Endpoint != "" {
		generator = clues.NewHTTPGenerator(cfg.Clues.Endpoint, cfg.Clues.APIKey, cfg.Clues.Timeout, logger)
	}

	profiles := store.NewProfileStore(backend, logger)

	// Create game hub
	hub := app.NewGameHub(app.Options{
		Backend:        backend,
		Catalog:        repo,
		Profiles:       profiles,
		DrawSettings:   cfg.DrawSettings(),
		SubmissionTTL:  cfg.Game.SubmissionTTL,
		RoomCodeLength: cfg.Game.RoomCodeLength,
		SessionTimeout: cfg.Game.SessionTimeout,
	}, logger)
	defer hub.Close()

	if cfg.Game.OperatorKey == "" {
		logger.Warn("no operator key configured, any client may act as operator")
	}

	// Create HTTP server
	server := httpTransport.NewServer(cfg, httpTransport.Dependencies{
		Hub:      hub,
		Catalog:  repo,
		Clues:    generator,
		Profiles: profiles,
	}, logger, webFS)

	// Start server in goroutine
	errs := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-errs:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

// openBackend connects the shared state backend selected by configuration
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.Store.Backend {
	case "redis":
		return store.NewRedisBackend(ctx, store.RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
	default:
		return store.NewMemoryBackend().WithLogger(slog.Default()), nil
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
