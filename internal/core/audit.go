package core

// audit.go records who changed the record set and how. Entries go to an
// AuditSink: the in-memory ring below by default, or the Postgres table in
// internal/database when one is configured.

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditAction is the kind of change being audited.
type AuditAction string

const (
	ActionCreate AuditAction = "record_create"
	ActionUpdate AuditAction = "record_update"
	ActionDelete AuditAction = "record_delete"
	ActionUpload AuditAction = "upload_commit"
	ActionReset  AuditAction = "store_reset"
)

// AuditSeverity ranks entries for the audit view.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionUpload, ActionDelete:
		return SeverityHigh
	case ActionReset:
		return SeverityCritical
	case ActionCreate:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// AuditEntry is one audited change.
type AuditEntry struct {
	ID           string        `json:"id"`
	Action       AuditAction   `json:"action"`
	Severity     AuditSeverity `json:"severity"`
	RecordNo     int           `json:"recordNo,omitempty"`
	ProgramNo    string        `json:"programNo,omitempty"`
	WellName     string        `json:"wellName,omitempty"`
	RowsAffected int           `json:"rowsAffected,omitempty"`
	UploadID     string        `json:"uploadId,omitempty"`
	IPAddress    string        `json:"ipAddress,omitempty"`
	UserAgent    string        `json:"userAgent,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Key identifies the entry's subject for log lines.
func (e AuditEntry) Key() string {
	switch {
	case e.UploadID != "":
		return e.UploadID
	case e.RecordNo > 0:
		return strconv.Itoa(e.RecordNo)
	default:
		return e.ID
	}
}

// AuditSink stores audit entries. Recent returns the newest first.
type AuditSink interface {
	Append(ctx context.Context, e AuditEntry) error
	Recent(ctx context.Context, limit int) ([]AuditEntry, error)
}

// DefaultAuditLimit is how many entries the audit view shows when no limit
// is given.
const DefaultAuditLimit = 100

// newAuditEntry fills in the ID, severity, timestamp and request metadata.
func newAuditEntry(ctx context.Context, action AuditAction, now time.Time) AuditEntry {
	return AuditEntry{
		ID:        uuid.New().String(),
		Action:    action,
		Severity:  determineSeverity(action),
		IPAddress: GetIPAddressFromContext(ctx),
		UserAgent: GetUserAgentFromContext(ctx),
		CreatedAt: now,
	}
}

// MemoryAuditLog keeps the most recent entries in a fixed-size ring.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
	next    int
	full    bool
}

// NewMemoryAuditLog returns a ring holding up to size entries.
func NewMemoryAuditLog(size int) *MemoryAuditLog {
	if size <= 0 {
		size = 1000
	}
	return &MemoryAuditLog{entries: make([]AuditEntry, size)}
}

func (m *MemoryAuditLog) Append(_ context.Context, e AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.next] = e
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

func (m *MemoryAuditLog) Recent(_ context.Context, limit int) ([]AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.next
	if m.full {
		n = len(m.entries)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]AuditEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.entries)) % len(m.entries)
		out = append(out, m.entries[idx])
	}
	return out, nil
}
