package database

// retention.go trims the audit_log table. Entries older than the retention
// window are deleted in batches so a long backlog does not hold one big
// lock on the table.

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetentionConfig controls the purge job. Zero values take the defaults.
type RetentionConfig struct {
	RetentionDays int           // default 365
	BatchSize     int           // default 5000
	CheckInterval time.Duration // default 24h
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 365
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5000
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// Purge deletes entries older than retentionDays and returns how many went.
func (s *AuditStore) Purge(ctx context.Context, retentionDays, batchSize int) (int64, error) {
	var total int64
	for {
		tag, err := s.pool.Exec(ctx, `
DELETE FROM audit_log
WHERE id IN (
	SELECT id FROM audit_log
	WHERE created_at < now() - make_interval(days => $1)
	LIMIT $2
)`, retentionDays, batchSize)
		if err != nil {
			return total, fmt.Errorf("purge audit log: %w", err)
		}
		n := tag.RowsAffected()
		total += n
		if n < int64(batchSize) {
			return total, nil
		}
	}
}

// StartRetention purges once at start and then every CheckInterval until
// ctx is cancelled. Failures are logged and retried on the next tick.
func (s *AuditStore) StartRetention(ctx context.Context, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("audit retention started",
		"retention_days", cfg.RetentionDays,
		"batch_size", cfg.BatchSize,
		"interval", cfg.CheckInterval,
	)

	s.runPurge(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("audit retention stopped")
			return
		case <-ticker.C:
			s.runPurge(ctx, cfg)
		}
	}
}

func (s *AuditStore) runPurge(ctx context.Context, cfg RetentionConfig) {
	start := time.Now()
	purged, err := s.Purge(ctx, cfg.RetentionDays, cfg.BatchSize)
	if err != nil {
		slog.Error("audit purge failed", "error", err, "purged_before_error", purged)
		return
	}
	slog.Info("audit purge completed",
		"entries_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
