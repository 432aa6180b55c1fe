package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/binfilter/internal/config"
	"github.com/JonMunkholm/binfilter/internal/core"
	"github.com/JonMunkholm/binfilter/internal/history"
	"github.com/JonMunkholm/binfilter/internal/logging"
	"github.com/JonMunkholm/binfilter/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"history_driver", cfg.History.Driver,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()

	store, err := history.Open(ctx, history.Config{
		Driver:     cfg.History.Driver,
		URL:        cfg.History.URL,
		SQLitePath: cfg.History.SQLitePath,
		Pool: history.PoolConfig{
			MaxConns:        cfg.History.MaxConns,
			MinConns:        cfg.History.MinConns,
			MaxConnLifetime: cfg.History.MaxConnLifetime,
			MaxConnIdleTime: cfg.History.MaxConnIdleTime,
		},
	})
	if err != nil {
		slog.Error("failed to open load history", "driver", cfg.History.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	service := core.NewService(store, core.Config{
		MaxFileSize:     cfg.Upload.MaxFileSize,
		MaxConcurrent:   cfg.Upload.MaxConcurrent,
		MaxWait:         cfg.Upload.MaxWaitTime,
		LoadTimeout:     cfg.Upload.Timeout,
		DefaultPageSize: cfg.Data.DefaultPageSize,
	})

	// A missing default file is fine; data can be uploaded later.
	if snap, err := service.LoadDefault(ctx, cfg.Data.Files); err != nil {
		if errors.Is(err, core.ErrNoDataFile) {
			slog.Warn("no default data file found, waiting for an upload", "candidates", cfg.Data.Files)
		} else {
			slog.Error("failed to load default data file", "error", err)
		}
	} else {
		slog.Info("default data loaded", "source", snap.Source, "rows", snap.Table.Len(), "encoding", snap.Encoding)
	}

	server := web.NewServer(service, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	if _, nop := store.(history.NopStore); !nop {
		go history.StartPruneScheduler(jobCtx, store, history.PruneConfig{
			Retention:     cfg.History.Retention,
			CheckInterval: cfg.History.PruneInterval,
		})
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for loads to complete", "active", status.Active)
			if err := service.WaitForLoads(shutdownCtx); err != nil {
				slog.Warn("loads did not complete in time", "error", err)
			} else {
				slog.Info("all loads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		_ = store.Close()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
