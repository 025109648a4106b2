package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/JonMunkholm/welltrack/internal/logging"
	"github.com/JonMunkholm/welltrack/internal/metrics"
)

// Service runs one handler per user action. Each handler loads the whole
// record set, computes, and saves it back when something changed.
//
// Changes hold mu from load to save, so two requests in one process never
// both write over the same snapshot. A store reset met on the way does not
// stop a change: the change is applied to the empty set and its result comes
// back together with ErrStoreReset.
type Service struct {
	mu      sync.Mutex
	store   RecordStore
	audit   AuditSink
	staging *uploadStaging
	limiter *UploadLimiter
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithAuditSink replaces the default in-memory audit log.
func WithAuditSink(sink AuditSink) Option {
	return func(s *Service) { s.audit = sink }
}

// WithUploadLimiter bounds concurrent workbook parses.
func WithUploadLimiter(l *UploadLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithStagingTTL sets how long a previewed upload waits for its commit.
func WithStagingTTL(ttl time.Duration) Option {
	return func(s *Service) { s.staging = newUploadStaging(ttl) }
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service over store.
func NewService(store RecordStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		audit:   NewMemoryAuditLog(0),
		staging: newUploadStaging(DefaultStagingTTL),
		limiter: NewUploadLimiter(0, 0),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every record. When the workbook had to be reset the empty
// set is returned together with the ErrStoreReset error.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.load(ctx)
}

// Get returns the record numbered no.
func (s *Service) Get(ctx context.Context, no int) (Record, error) {
	records, resetErr := s.load(ctx)
	if Fatal(resetErr) {
		return Record{}, resetErr
	}
	idx := FindByNo(records, no)
	if idx < 0 {
		return Record{}, withReset(fmt.Errorf("record %d: %w", no, ErrInvalidIndex), resetErr)
	}
	return records[idx], nil
}

// Create validates in and appends it as the last record.
func (s *Service) Create(ctx context.Context, in RecordInput) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, resetErr := s.load(ctx)
	if Fatal(resetErr) {
		metrics.Mutation(string(ActionCreate), metrics.OutcomeError)
		return Record{}, resetErr
	}

	if violations := NewValidator(records, 0).ValidateInput(in); len(violations) > 0 {
		rejectMutation(ActionCreate, violations)
		return Record{}, withReset(ValidationErrors(violations), resetErr)
	}

	records = append(records, in.toRecord(len(records)+1))
	Renumber(records)
	if err := s.save(ctx, records); err != nil {
		metrics.Mutation(string(ActionCreate), metrics.OutcomeError)
		return Record{}, err
	}

	created := records[len(records)-1]
	s.recordAudit(ctx, ActionCreate, func(e *AuditEntry) {
		e.RecordNo = created.No
		e.ProgramNo = created.ProgramNo
		e.WellName = created.WellName
		e.RowsAffected = 1
	})
	metrics.Mutation(string(ActionCreate), metrics.OutcomeOK)
	return created, resetErr
}

// Update replaces every field of the record numbered no and re-derives its
// status. The record may keep its own program number.
func (s *Service) Update(ctx context.Context, no int, in RecordInput) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, resetErr := s.load(ctx)
	if Fatal(resetErr) {
		metrics.Mutation(string(ActionUpdate), metrics.OutcomeError)
		return Record{}, resetErr
	}

	idx := FindByNo(records, no)
	if idx < 0 {
		metrics.Mutation(string(ActionUpdate), metrics.OutcomeRejected)
		return Record{}, withReset(fmt.Errorf("record %d: %w", no, ErrInvalidIndex), resetErr)
	}

	if violations := NewValidator(records, no).ValidateInput(in); len(violations) > 0 {
		rejectMutation(ActionUpdate, violations)
		return Record{}, withReset(ValidationErrors(violations), resetErr)
	}

	before := records[idx]
	records[idx] = in.toRecord(no)
	Renumber(records)
	if err := s.save(ctx, records); err != nil {
		metrics.Mutation(string(ActionUpdate), metrics.OutcomeError)
		return Record{}, err
	}

	updated := records[idx]
	s.recordAudit(ctx, ActionUpdate, func(e *AuditEntry) {
		e.RecordNo = updated.No
		e.ProgramNo = updated.ProgramNo
		e.WellName = updated.WellName
		e.RowsAffected = 1
		if before.Status != updated.Status {
			e.Reason = fmt.Sprintf("status %s -> %s", before.Status, updated.Status)
		}
	})
	metrics.Mutation(string(ActionUpdate), metrics.OutcomeOK)
	return updated, resetErr
}

// Delete removes the record numbered no and renumbers the rest.
func (s *Service) Delete(ctx context.Context, no int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, resetErr := s.load(ctx)
	if Fatal(resetErr) {
		metrics.Mutation(string(ActionDelete), metrics.OutcomeError)
		return Record{}, resetErr
	}

	idx := FindByNo(records, no)
	if idx < 0 {
		metrics.Mutation(string(ActionDelete), metrics.OutcomeRejected)
		return Record{}, withReset(fmt.Errorf("record %d: %w", no, ErrInvalidIndex), resetErr)
	}

	removed := records[idx]
	records = slices.Delete(records, idx, idx+1)
	Renumber(records)
	if err := s.save(ctx, records); err != nil {
		metrics.Mutation(string(ActionDelete), metrics.OutcomeError)
		return Record{}, err
	}

	s.recordAudit(ctx, ActionDelete, func(e *AuditEntry) {
		e.RecordNo = removed.No
		e.ProgramNo = removed.ProgramNo
		e.WellName = removed.WellName
		e.RowsAffected = 1
	})
	metrics.Mutation(string(ActionDelete), metrics.OutcomeOK)
	return removed, resetErr
}

// PreviewUpload parses and validates a workbook against the current store.
// A clean batch is staged and its ID returned in the preview; a batch with
// violations is returned with them and nothing is staged. Header and file
// problems come back as errors.
func (s *Service) PreviewUpload(ctx context.Context, fileName string, r io.Reader) (*UploadPreview, error) {
	log := logging.WithFields(ctx, "file", fileName)

	header, rows, err := s.parseUpload(ctx, r)
	if err != nil {
		metrics.Upload("preview", metrics.OutcomeError)
		return nil, err
	}
	if err := ValidateHeader(header); err != nil {
		metrics.Upload("preview", metrics.OutcomeRejected)
		log.Info("upload header rejected", "header", header)
		return nil, err
	}
	if len(rows) == 0 {
		metrics.Upload("preview", metrics.OutcomeRejected)
		return nil, ErrEmptyFile
	}

	records, resetErr := s.load(ctx)
	if Fatal(resetErr) {
		metrics.Upload("preview", metrics.OutcomeError)
		return nil, resetErr
	}

	preview := &UploadPreview{FileName: fileName, TotalRows: len(rows)}
	accepted, violations := NewValidator(records, 0).ValidateRows(rows)
	if len(violations) > 0 {
		countViolations(violations)
		metrics.Upload("preview", metrics.OutcomeRejected)
		log.Info("upload rejected", "rows", len(rows), "violations", len(violations))
		preview.Violations = violations
		return preview, resetErr
	}

	for i := range accepted {
		accepted[i].No = len(records) + i + 1
	}
	preview.Records = accepted
	preview.UploadID = s.staging.put(fileName, rows, s.now())
	metrics.StagedUploads(s.staging.count())
	metrics.Upload("preview", metrics.OutcomeOK)
	log.Info("upload staged", "upload_id", preview.UploadID, "rows", len(rows))
	return preview, resetErr
}

// CommitUpload appends a staged upload. The rows are validated again
// because the store may have changed since the preview; on any violation
// nothing is written and the staged upload is discarded.
func (s *Service) CommitUpload(ctx context.Context, uploadID string) (UploadResult, error) {
	staged, ok := s.staging.take(uploadID, s.now())
	metrics.StagedUploads(s.staging.count())
	if !ok {
		metrics.Upload("commit", metrics.OutcomeRejected)
		return UploadResult{}, fmt.Errorf("%w: %s", ErrUploadNotFound, uploadID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, resetErr := s.load(ctx)
	if Fatal(resetErr) {
		metrics.Upload("commit", metrics.OutcomeError)
		return UploadResult{}, resetErr
	}

	accepted, violations := NewValidator(records, 0).ValidateRows(staged.rows)
	if len(violations) > 0 {
		countViolations(violations)
		metrics.Upload("commit", metrics.OutcomeRejected)
		return UploadResult{}, withReset(ValidationErrors(violations), resetErr)
	}

	records = append(records, accepted...)
	Renumber(records)
	if err := s.save(ctx, records); err != nil {
		metrics.Upload("commit", metrics.OutcomeError)
		return UploadResult{}, err
	}

	result := UploadResult{
		UploadID: uploadID,
		FileName: staged.fileName,
		Inserted: len(accepted),
		Total:    len(records),
	}
	s.recordAudit(ctx, ActionUpload, func(e *AuditEntry) {
		e.UploadID = uploadID
		e.RowsAffected = result.Inserted
		e.Reason = staged.fileName
	})
	metrics.Upload("commit", metrics.OutcomeOK)
	metrics.Mutation(string(ActionUpload), metrics.OutcomeOK)
	logging.WithFields(ctx, "upload_id", uploadID, "file", staged.fileName).
		Info("upload committed", "inserted", result.Inserted, "total", result.Total)
	return result, resetErr
}

// Import previews and commits a workbook in one call. Violations come back
// as ValidationErrors. A reset met by either step is returned with the result.
func (s *Service) Import(ctx context.Context, fileName string, r io.Reader) (UploadResult, error) {
	preview, resetErr := s.PreviewUpload(ctx, fileName, r)
	if Fatal(resetErr) {
		return UploadResult{}, resetErr
	}
	if !preview.Accepted() {
		return UploadResult{}, withReset(ValidationErrors(preview.Violations), resetErr)
	}
	result, err := s.CommitUpload(ctx, preview.UploadID)
	if Fatal(err) {
		return UploadResult{}, err
	}
	if err == nil {
		err = resetErr
	}
	return result, err
}

// Report builds the report page for the records matching f. A reset store
// yields an empty report plus the ErrStoreReset error.
func (s *Service) Report(ctx context.Context, f Filter, month string) (Report, error) {
	records, err := s.load(ctx)
	if Fatal(err) {
		return Report{}, err
	}
	return BuildReport(records, f, month, s.now()), err
}

// Reminders lists every still-empty approval slot with its due-date class.
func (s *Service) Reminders(ctx context.Context) ([]Reminder, error) {
	records, err := s.load(ctx)
	if Fatal(err) {
		return nil, err
	}
	return Reminders(records, s.now()), err
}

// Export writes the current record set as a workbook.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	records, err := s.load(ctx)
	if Fatal(err) {
		return err
	}
	return WriteWorkbook(w, records)
}

// Template writes a header-only workbook for preparing uploads.
func (s *Service) Template(w io.Writer) error {
	return WriteTemplate(w)
}

// AuditLog returns up to limit audit entries, newest first.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	return s.audit.Recent(ctx, limit)
}

// Today returns the service clock's current date.
func (s *Service) Today() time.Time {
	return truncateDay(s.now())
}

// UploadLimiter exposes the parse gate for shutdown draining.
func (s *Service) UploadLimiter() *UploadLimiter {
	return s.limiter
}

// SweepStaged drops expired staged uploads and returns how many went.
func (s *Service) SweepStaged() int {
	n := s.staging.sweep(s.now())
	metrics.StagedUploads(s.staging.count())
	return n
}

// StartStagingSweeper removes expired staged uploads every interval until
// ctx is cancelled.
func (s *Service) StartStagingSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	slog.Info("staging sweeper started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("staging sweeper stopped")
			return
		case <-ticker.C:
			if n := s.SweepStaged(); n > 0 {
				slog.Info("expired staged uploads removed", "count", n)
			}
		}
	}
}

func (s *Service) parseUpload(ctx context.Context, r io.Reader) ([]string, []UploadRow, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, nil, err
	}
	defer s.limiter.Release()
	return ReadUpload(r)
}

// load wraps the store load with metrics. A reset is audited and passed
// through with the (empty) records.
func (s *Service) load(ctx context.Context) ([]Record, error) {
	start := time.Now()
	records, err := s.store.Load(ctx)
	metrics.ObserveStore("load", time.Since(start).Seconds())

	switch {
	case errors.Is(err, ErrStoreReset):
		metrics.StoreReset()
		metrics.Records(0)
		s.recordAudit(ctx, ActionReset, func(e *AuditEntry) { e.Reason = err.Error() })
		if records == nil {
			records = []Record{}
		}
		return records, err
	case err != nil:
		return nil, fmt.Errorf("load records: %w", err)
	}

	metrics.Records(len(records))
	return records, nil
}

func (s *Service) save(ctx context.Context, records []Record) error {
	start := time.Now()
	err := s.store.Save(ctx, records)
	metrics.ObserveStore("save", time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	metrics.Records(len(records))
	return nil
}

// recordAudit writes an audit entry. A failing sink is logged and otherwise
// ignored: the change itself has already been saved.
func (s *Service) recordAudit(ctx context.Context, action AuditAction, fill func(*AuditEntry)) {
	entry := newAuditEntry(ctx, action, s.now())
	fill(&entry)
	if err := s.audit.Append(ctx, entry); err != nil {
		logging.FromContext(ctx).Warn("audit append failed",
			"action", action,
			"key", entry.Key(),
			"error", err,
		)
	}
}

// Fatal reports whether err means the action failed. A store reset alone
// does not: the action carried on against the empty record set. A reset
// joined to any other error does.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if Fatal(e) {
				return true
			}
		}
		return false
	}
	return !errors.Is(err, ErrStoreReset)
}

// withReset attaches a store reset met during an action to the action's
// own error.
func withReset(err, resetErr error) error {
	if resetErr == nil {
		return err
	}
	return errors.Join(err, resetErr)
}

func rejectMutation(action AuditAction, violations []Violation) {
	countViolations(violations)
	metrics.Mutation(string(action), metrics.OutcomeRejected)
}

func countViolations(violations []Violation) {
	for _, v := range violations {
		metrics.Violation(v.Field)
	}
}
