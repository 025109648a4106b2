// Package database persists the audit trail in Postgres when
// AUDIT_DATABASE_URL is set. Records themselves always live in the workbook.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/welltrack/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id            TEXT PRIMARY KEY,
	action        TEXT NOT NULL,
	severity      TEXT NOT NULL,
	record_no     INTEGER NOT NULL DEFAULT 0,
	program_no    TEXT NOT NULL DEFAULT '',
	well_name     TEXT NOT NULL DEFAULT '',
	rows_affected INTEGER NOT NULL DEFAULT 0,
	upload_id     TEXT NOT NULL DEFAULT '',
	ip_address    TEXT NOT NULL DEFAULT '',
	user_agent    TEXT NOT NULL DEFAULT '',
	reason        TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS audit_log_created_at_idx ON audit_log (created_at DESC);
`

// AuditStore is a core.AuditSink backed by the audit_log table.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore wraps pool. Call EnsureSchema before first use.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// EnsureSchema creates the audit table and index if they are missing.
func (s *AuditStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

func (s *AuditStore) Append(ctx context.Context, e core.AuditEntry) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO audit_log (id, action, severity, record_no, program_no, well_name,
	rows_affected, upload_id, ip_address, user_agent, reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, string(e.Action), string(e.Severity), e.RecordNo, e.ProgramNo, e.WellName,
		e.RowsAffected, e.UploadID, e.IPAddress, e.UserAgent, e.Reason, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *AuditStore) Recent(ctx context.Context, limit int) ([]core.AuditEntry, error) {
	if limit <= 0 {
		limit = core.DefaultAuditLimit
	}

	rows, err := s.pool.Query(ctx, `
SELECT id, action, severity, record_no, program_no, well_name,
	rows_affected, upload_id, ip_address, user_agent, reason, created_at
FROM audit_log
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []core.AuditEntry
	for rows.Next() {
		var (
			e                core.AuditEntry
			action, severity string
		)
		if err := rows.Scan(&e.ID, &action, &severity, &e.RecordNo, &e.ProgramNo, &e.WellName,
			&e.RowsAffected, &e.UploadID, &e.IPAddress, &e.UserAgent, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = core.AuditAction(action)
		e.Severity = core.AuditSeverity(severity)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Connect opens a pool sized by maxConns and checks it with a ping.
func Connect(ctx context.Context, url string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
