package entrypoint

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/mrlokans/storyshelf/internal/config"
	"github.com/mrlokans/storyshelf/internal/covers"
	"github.com/mrlokans/storyshelf/internal/database"
	"github.com/mrlokans/storyshelf/internal/exporters"
	"github.com/mrlokans/storyshelf/internal/importers"
	"github.com/mrlokans/storyshelf/internal/library"
	"github.com/mrlokans/storyshelf/internal/logging"
	"github.com/mrlokans/storyshelf/internal/metrics"
	"github.com/mrlokans/storyshelf/internal/remote"
	"github.com/mrlokans/storyshelf/internal/scheduler"
	"github.com/mrlokans/storyshelf/internal/settingsstore"
	"github.com/mrlokans/storyshelf/internal/tasks"
)

// Run serves the library in cfg.Library.Dir until a signal arrives or a
// client sends EXIT.
func Run(cfg *config.Config, version string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting storyshelf", zap.String("version", version))

	if cfg.Library.Key == "" {
		logger.Warn("LIBRARY_KEY is not set. Clients connect with the empty key; set 'LIBRARY_KEY' to protect the library.")
	}

	backend, err := database.Open(cfg.Library.Dir, database.Options{
		ReadOnly: cfg.Library.ReadOnly,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("error closing library", zap.Error(err))
		}
	}()

	coverCacheDir := filepath.Join(cfg.Library.Dir, "cache")
	fetcher, err := covers.NewFetcher(coverCacheDir)
	if err != nil {
		logger.Warn("cover cache disabled", zap.Error(err))
		fetcher = nil
	} else {
		logger.Info("cover cache initialized", zap.String("dir", coverCacheDir))
	}

	lib := library.New(backend, library.Options{
		Inputs:  importers.Default(fetcher),
		Outputs: exporters.Default(),
		Logger:  logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var taskClient *tasks.Client
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(filepath.Join(cfg.Library.Dir, config.TasksDatabaseFile), taskCfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				logger.Error("error closing task client", zap.Error(err))
			}
		}()

		taskClient.Register(tasks.NewImportStoryQueue(lib, taskCfg, logger))
		go taskClient.Start(ctx)
	}

	exportCfg := settingsstore.New(backend.Settings()).GetExportSchedule(cfg.ExportSchedule)
	if exportCfg.Enabled {
		export := scheduler.NewExportScheduler(lib, backend.Settings(), scheduler.ExportConfig{
			Schedule: exportCfg.Schedule,
			Dir:      exportCfg.Dir,
			Format:   exportCfg.Format,
		}, logger)
		if err := export.Start(ctx); err != nil {
			return err
		}
		defer export.Stop()
	}

	srv := remote.NewServer(lib, remote.ServerConfig{
		Key:             cfg.Library.Key,
		Version:         version,
		WriteTimeout:    cfg.Remote.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout(),
		RateLimit: remote.RateLimitConfig{
			MaxFailures:     cfg.Library.MaxAuthFailures,
			LockoutDuration: cfg.Library.AuthLockout,
		},
		Metrics: metrics.New(),
		Logger:  logger,
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(cfg.ListenAddr())
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("signal received", zap.Stringer("signal", sig))
	case <-srv.Exited():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	timeout := cfg.ShutdownTimeout()
	logger.Info("shutting down", zap.Duration("timeout", timeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if taskClient != nil {
		if !taskClient.Stop(shutdownCtx) {
			logger.Warn("task workers did not stop in time")
		}
	}
	cancel()

	logger.Info("server exiting")
	return nil
}
