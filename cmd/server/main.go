package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/welltrack/internal/config"
	"github.com/JonMunkholm/welltrack/internal/core"
	"github.com/JonMunkholm/welltrack/internal/database"
	"github.com/JonMunkholm/welltrack/internal/logging"
	"github.com/JonMunkholm/welltrack/internal/web"
)

func main() {
	// Overload lets a local .env win over the shell environment.
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
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	jobCtx, cancelJobs := context.WithCancel(context.Background())

	audit, closeAudit, err := openAuditSink(ctx, jobCtx, cfg.Audit)
	if err != nil {
		slog.Error("failed to open audit log", "error", err)
		os.Exit(1)
	}
	defer closeAudit()

	loc := cfg.Report.Location()
	service := core.NewService(
		core.NewXLSXStore(cfg.Store.Path),
		core.WithAuditSink(audit),
		core.WithUploadLimiter(core.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)),
		core.WithStagingTTL(cfg.Upload.StagingTTL),
		core.WithClock(func() time.Time { return time.Now().In(loc) }),
	)

	// Touch the store once so a missing or broken file is dealt with at
	// startup rather than on the first request.
	if records, err := service.List(ctx); err != nil && !errors.Is(err, core.ErrStoreReset) {
		slog.Error("failed to open record store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	} else {
		slog.Info("record store ready", "path", cfg.Store.Path, "records", len(records), "reset", err != nil)
	}

	server := web.NewServer(service, cfg)

	go service.StartStagingSweeper(jobCtx, cfg.Upload.SweepInterval)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := service.UploadLimiter().ActiveCount(); active > 0 {
			slog.Info("waiting for uploads to finish parsing", "active", active)
			if err := service.UploadLimiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("uploads did not finish in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openAuditSink uses Postgres when a database URL is configured and the
// in-memory ring otherwise. The Postgres retention job runs until jobCtx ends.
func openAuditSink(ctx, jobCtx context.Context, cfg config.AuditConfig) (core.AuditSink, func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Info("audit log kept in memory", "size", cfg.MemorySize)
		return core.NewMemoryAuditLog(cfg.MemorySize), func() {}, nil
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL, cfg.MaxConns)
	if err != nil {
		return nil, nil, err
	}
	store := database.NewAuditStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if cfg.RetentionDays > 0 {
		go store.StartRetention(jobCtx, database.RetentionConfig{
			RetentionDays: cfg.RetentionDays,
			CheckInterval: cfg.RetentionInterval,
		})
	}
	slog.Info("audit log stored in postgres")
	return store, pool.Close, nil
}
