package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

var testNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*Service, *XLSXStore) {
	t.Helper()
	store := NewXLSXStore(filepath.Join(t.TempDir(), "programs.xlsx"))
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewService(store, opts...), store
}

// buildUpload renders header and rows as an in-memory workbook.
func buildUpload(t *testing.T, header []string, rows ...[]string) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	all := append([][]string{header}, rows...)
	for i, r := range all {
		cells := make([]any, len(r))
		for j, c := range r {
			cells[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &cells); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(buf.Bytes())
}

func inputFor(well, programNo string) RecordInput {
	in := validInput()
	in.WellName = well
	in.ProgramNo = programNo
	return in
}

func nos(records []Record) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.No
	}
	return out
}

func TestService_CreateDerivesStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	in := inputFor("WELL-1", "A-12")
	in.Approvals = fullApprovals
	created, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.No != 1 || created.Status != StatusCompleted {
		t.Errorf("created = No %d status %s, want 1 COMPLETED", created.No, created.Status)
	}
	if created.CreationDate != "01-Mar-25" || created.DueDate != "08-Mar-25" {
		t.Errorf("dates = %q %q", created.CreationDate, created.DueDate)
	}

	// Clearing slot 2 flips the record back.
	in.Approvals[1] = ""
	updated, err := svc.Update(ctx, 1, in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != StatusInProgress {
		t.Errorf("status after clearing slot 2 = %s, want INPROGRESS", updated.Status)
	}

	got, err := svc.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusInProgress || got.Approvals[1] != "" {
		t.Errorf("persisted record = %+v", got)
	}
}

func TestService_CreateRejectsDuplicateProgramNo(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, inputFor("WELL-1", "A-12")); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Create(ctx, inputFor("WELL-2", "A-12"))

	var ve ValidationErrors
	if !errors.As(err, &ve) || len(ve) != 1 || ve[0].Field != ColProgramNo {
		t.Fatalf("Create duplicate = %v, want one Program No violation", err)
	}

	records, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestService_DeleteRenumbers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, w := range []string{"W1", "W2", "W3", "W4", "W5"} {
		if _, err := svc.Create(ctx, inputFor(w, "")); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := svc.Delete(ctx, 2)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if removed.WellName != "W2" {
		t.Errorf("removed %q, want W2", removed.WellName)
	}

	records, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4}, nos(records)); diff != "" {
		t.Errorf("Nos mismatch (-want +got):\n%s", diff)
	}
	wells := make([]string, len(records))
	for i, r := range records {
		wells[i] = r.WellName
	}
	if diff := cmp.Diff([]string{"W1", "W3", "W4", "W5"}, wells); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestService_InvalidIndex(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, inputFor("W1", "")); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(ctx, 7); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("Get = %v, want ErrInvalidIndex", err)
	}
	if _, err := svc.Update(ctx, 7, inputFor("W", "")); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("Update = %v, want ErrInvalidIndex", err)
	}
	if _, err := svc.Delete(ctx, 0); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("Delete = %v, want ErrInvalidIndex", err)
	}

	records, _ := svc.List(ctx)
	if len(records) != 1 {
		t.Errorf("invalid index changed the store: %d records", len(records))
	}
}

func TestService_UploadPreviewAndCommit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, inputFor("EXISTING", "A-1")); err != nil {
		t.Fatal(err)
	}

	file := buildUpload(t, RequiredColumns,
		uploadCells("1", "WELL-1", "B-1", "2025-03-01", "2025-03-05", "INPROGRESS", "HIBAN", [4]string{}),
		uploadCells("2", "WELL-2", "B-2", "01-Mar-25", "09-Mar-25", "COMPLETED", "HIBAN", fullApprovals),
	)

	preview, err := svc.PreviewUpload(ctx, "batch.xlsx", file)
	if err != nil {
		t.Fatalf("PreviewUpload: %v", err)
	}
	if !preview.Accepted() || preview.TotalRows != 2 {
		t.Fatalf("preview = %+v", preview)
	}
	if diff := cmp.Diff([]int{2, 3}, nos(preview.Records)); diff != "" {
		t.Errorf("preview Nos mismatch (-want +got):\n%s", diff)
	}

	// Nothing is written until commit.
	if records, _ := svc.List(ctx); len(records) != 1 {
		t.Errorf("preview wrote to the store: %d records", len(records))
	}

	result, err := svc.CommitUpload(ctx, preview.UploadID)
	if err != nil {
		t.Fatalf("CommitUpload: %v", err)
	}
	if result.Inserted != 2 || result.Total != 3 {
		t.Errorf("result = %+v, want 2 inserted 3 total", result)
	}

	records, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, nos(records)); diff != "" {
		t.Errorf("Nos mismatch (-want +got):\n%s", diff)
	}
	if records[1].CreationDate != "01-Mar-25" || records[2].Status != StatusCompleted {
		t.Errorf("committed rows = %+v", records[1:])
	}

	if _, err := svc.CommitUpload(ctx, preview.UploadID); !errors.Is(err, ErrUploadNotFound) {
		t.Errorf("second commit = %v, want ErrUploadNotFound", err)
	}
}

func TestService_UploadDuplicateRejectsWholeBatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, inputFor("EXISTING", "A-1")); err != nil {
		t.Fatal(err)
	}

	file := buildUpload(t, RequiredColumns,
		uploadCells("1", "WELL-1", "B-1", "2025-03-01", "2025-03-05", "INPROGRESS", "HIBAN", [4]string{}),
		uploadCells("2", "WELL-2", "A-1", "2025-03-01", "2025-03-05", "INPROGRESS", "HIBAN", [4]string{}),
	)

	preview, err := svc.PreviewUpload(ctx, "batch.xlsx", file)
	if err != nil {
		t.Fatalf("PreviewUpload: %v", err)
	}
	if preview.Accepted() || preview.UploadID != "" {
		t.Fatalf("batch with a duplicate was staged: %+v", preview)
	}
	if len(preview.Violations) != 1 || preview.Violations[0].Row != 3 || preview.Violations[0].Value != "A-1" {
		t.Errorf("violations = %+v", preview.Violations)
	}

	records, _ := svc.List(ctx)
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestService_CommitRevalidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	file := buildUpload(t, RequiredColumns,
		uploadCells("1", "WELL-1", "B-1", "2025-03-01", "2025-03-05", "INPROGRESS", "HIBAN", [4]string{}),
	)
	preview, err := svc.PreviewUpload(ctx, "batch.xlsx", file)
	if err != nil || !preview.Accepted() {
		t.Fatalf("PreviewUpload = %+v, %v", preview, err)
	}

	// Someone else takes B-1 before the commit.
	if _, err := svc.Create(ctx, inputFor("RIVAL", "B-1")); err != nil {
		t.Fatal(err)
	}

	_, err = svc.CommitUpload(ctx, preview.UploadID)
	var ve ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("CommitUpload = %v, want ValidationErrors", err)
	}
	if records, _ := svc.List(ctx); len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestService_UploadFileErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	reordered := append([]string(nil), RequiredColumns...)
	reordered[3], reordered[4] = reordered[4], reordered[3]

	tests := []struct {
		name    string
		file    *bytes.Reader
		wantErr error
	}{
		{"reordered header", buildUpload(t, reordered), ErrHeaderMismatch},
		{"header only", buildUpload(t, RequiredColumns), ErrEmptyFile},
		{"blank sheet", buildUpload(t, nil), ErrEmptyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PreviewUpload(ctx, "x.xlsx", tt.file)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("PreviewUpload = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("not a workbook", func(t *testing.T) {
		_, err := svc.PreviewUpload(ctx, "x.xlsx", bytes.NewReader([]byte("plain text")))
		if err == nil || MapError(err).Code != "FILE002" {
			t.Errorf("PreviewUpload = %v, want FILE002", err)
		}
	})
}

func TestService_StagedUploadExpires(t *testing.T) {
	now := testNow
	svc, _ := newTestService(t, WithClock(func() time.Time { return now }), WithStagingTTL(time.Minute))
	ctx := context.Background()

	file := buildUpload(t, RequiredColumns,
		uploadCells("1", "WELL-1", "", "2025-03-01", "2025-03-05", "INPROGRESS", "HIBAN", [4]string{}),
	)
	preview, err := svc.PreviewUpload(ctx, "batch.xlsx", file)
	if err != nil || !preview.Accepted() {
		t.Fatalf("PreviewUpload = %+v, %v", preview, err)
	}

	now = now.Add(2 * time.Minute)
	if n := svc.SweepStaged(); n != 1 {
		t.Errorf("SweepStaged = %d, want 1", n)
	}
	if _, err := svc.CommitUpload(ctx, preview.UploadID); !errors.Is(err, ErrUploadNotFound) {
		t.Errorf("CommitUpload after expiry = %v, want ErrUploadNotFound", err)
	}
}

func TestService_Import(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	bad := buildUpload(t, RequiredColumns,
		uploadCells("1", "", "", "2025-03-01", "2025-03-05", "INPROGRESS", "HIBAN", [4]string{}),
	)
	if _, err := svc.Import(ctx, "bad.xlsx", bad); err == nil {
		t.Fatal("Import of an invalid batch succeeded")
	}

	good := buildUpload(t, RequiredColumns,
		uploadCells("1", "W", "", "2025-03-01", "2025-03-05", "INPROGRESS", "HIBAN", [4]string{}),
	)
	result, err := svc.Import(ctx, "good.xlsx", good)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Inserted != 1 || result.Total != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestService_StoreResetContinues(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	for _, well := range []string{"W1", "W2", "W3"} {
		if _, err := svc.Create(ctx, inputFor(well, "")); err != nil {
			t.Fatal(err)
		}
	}
	if err := writeGarbage(store.Path()); err != nil {
		t.Fatal(err)
	}

	rec, err := svc.Create(ctx, inputFor("W4", ""))
	if !errors.Is(err, ErrStoreReset) {
		t.Fatalf("Create after reset error = %v, want ErrStoreReset", err)
	}
	if Fatal(err) {
		t.Errorf("Fatal(%v) = true, want false for a reset alone", err)
	}
	if rec.No != 1 || rec.WellName != "W4" {
		t.Errorf("created = %+v, want No 1 W4", rec)
	}

	records, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List after reset: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}

	entries, err := svc.AuditLog(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	actions := make([]AuditAction, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	if diff := cmp.Diff([]AuditAction{ActionCreate, ActionReset}, actions); diff != "" {
		t.Errorf("audit actions mismatch (-want +got):\n%s", diff)
	}
}

func TestService_StoreResetReportedByEveryChange(t *testing.T) {
	upload := func(t *testing.T) *bytes.Reader {
		return buildUpload(t, RequiredColumns,
			uploadCells("1", "W9", "", "2025-03-01", "2025-03-05", "INPROGRESS", "HIBAN", [4]string{}),
		)
	}

	tests := []struct {
		name      string
		act       func(t *testing.T, svc *Service) error
		wantFatal bool
	}{
		{
			name: "update of a missing record",
			act: func(t *testing.T, svc *Service) error {
				_, err := svc.Update(context.Background(), 1, inputFor("W1", ""))
				return err
			},
			wantFatal: true,
		},
		{
			name: "delete of a missing record",
			act: func(t *testing.T, svc *Service) error {
				_, err := svc.Delete(context.Background(), 1)
				return err
			},
			wantFatal: true,
		},
		{
			name: "create with a violation",
			act: func(t *testing.T, svc *Service) error {
				_, err := svc.Create(context.Background(), inputFor("", ""))
				return err
			},
			wantFatal: true,
		},
		{
			name: "preview",
			act: func(t *testing.T, svc *Service) error {
				_, err := svc.PreviewUpload(context.Background(), "up.xlsx", upload(t))
				return err
			},
		},
		{
			name: "import",
			act: func(t *testing.T, svc *Service) error {
				result, err := svc.Import(context.Background(), "up.xlsx", upload(t))
				if result.Inserted != 1 {
					t.Errorf("Inserted = %d, want 1", result.Inserted)
				}
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)
			if err := writeGarbage(store.Path()); err != nil {
				t.Fatal(err)
			}
			err := tt.act(t, svc)
			if !errors.Is(err, ErrStoreReset) {
				t.Errorf("error = %v, want it to carry ErrStoreReset", err)
			}
			if got := Fatal(err); got != tt.wantFatal {
				t.Errorf("Fatal(%v) = %v, want %v", err, got, tt.wantFatal)
			}
		})
	}
}

func TestService_CommitAfterResetReportsIt(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	preview, err := svc.PreviewUpload(ctx, "up.xlsx", buildUpload(t, RequiredColumns,
		uploadCells("1", "W1", "", "2025-03-01", "2025-03-05", "INPROGRESS", "HIBAN", [4]string{}),
	))
	if err != nil {
		t.Fatal(err)
	}
	if err := writeGarbage(store.Path()); err != nil {
		t.Fatal(err)
	}

	result, err := svc.CommitUpload(ctx, preview.UploadID)
	if !errors.Is(err, ErrStoreReset) || Fatal(err) {
		t.Fatalf("CommitUpload error = %v, want a bare ErrStoreReset", err)
	}
	if result.Inserted != 1 || result.Total != 1 {
		t.Errorf("result = %+v, want 1 inserted of 1", result)
	}
}

func TestFatal(t *testing.T) {
	reset := fmt.Errorf("%w: zip: not a valid zip file", ErrStoreReset)
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"reset", reset, false},
		{"wrapped reset", fmt.Errorf("load: %w", reset), false},
		{"other", ErrInvalidIndex, true},
		{"reset joined to other", errors.Join(ErrInvalidIndex, reset), true},
		{"reset joined to nil", errors.Join(reset, nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fatal(tt.err); got != tt.want {
				t.Errorf("Fatal(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// slowStore widens the gap between Load and Save so that unserialised
// writers would overlap.
type slowStore struct {
	RecordStore
	delay time.Duration
}

func (s slowStore) Load(ctx context.Context) ([]Record, error) {
	records, err := s.RecordStore.Load(ctx)
	time.Sleep(s.delay)
	return records, err
}

func TestService_ConcurrentChangesAreSerialised(t *testing.T) {
	const workers = 10

	t.Run("shared program no", func(t *testing.T) {
		store := NewXLSXStore(filepath.Join(t.TempDir(), "programs.xlsx"))
		svc := NewService(slowStore{RecordStore: store, delay: 20 * time.Millisecond})

		var wg sync.WaitGroup
		var created atomic.Int32
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Create(context.Background(), inputFor("W", "DUP-1")); err == nil {
					created.Add(1)
				}
			}()
		}
		wg.Wait()

		if got := created.Load(); got != 1 {
			t.Errorf("successful creates = %d, want 1", got)
		}
		records, err := svc.List(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 1 {
			t.Errorf("persisted %d records, want 1", len(records))
		}
	})

	t.Run("distinct program nos", func(t *testing.T) {
		store := NewXLSXStore(filepath.Join(t.TempDir(), "programs.xlsx"))
		svc := NewService(slowStore{RecordStore: store, delay: 5 * time.Millisecond})

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Create(context.Background(), inputFor("W", fmt.Sprintf("P-%d", i))); err != nil {
					t.Errorf("Create %d: %v", i, err)
				}
			}()
		}
		wg.Wait()

		records, err := svc.List(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, nos(records)); diff != "" {
			t.Errorf("numbers mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestService_AuditCarriesRequestMeta(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ContextWithRequestMeta(context.Background(), "10.0.0.7", "curl/8")

	if _, err := svc.Create(ctx, inputFor("W1", "P-1")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Delete(ctx, 1); err != nil {
		t.Fatal(err)
	}

	entries, err := svc.AuditLog(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	del := entries[0]
	if del.Action != ActionDelete || del.Severity != SeverityHigh || del.ProgramNo != "P-1" {
		t.Errorf("delete entry = %+v", del)
	}
	if del.IPAddress != "10.0.0.7" || del.UserAgent != "curl/8" {
		t.Errorf("request meta = %q %q", del.IPAddress, del.UserAgent)
	}
	if !del.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt = %v, want %v", del.CreatedAt, testNow)
	}
}

func TestService_ReportAndExport(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	in := inputFor("W1", "")
	in.Approvals = fullApprovals
	if _, err := svc.Create(ctx, in); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, inputFor("W2", "")); err != nil {
		t.Fatal(err)
	}

	rep, err := svc.Report(ctx, Filter{Status: StatusInProgress}, "")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(rep.Records) != 1 || rep.Records[0].WellName != "W2" {
		t.Errorf("report records = %+v", rep.Records)
	}

	reminders, err := svc.Reminders(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(reminders) != 4 {
		t.Errorf("got %d reminders, want 4", len(reminders))
	}

	var buf bytes.Buffer
	if err := svc.Export(ctx, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	header, rows, err := ReadUpload(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if err := ValidateHeader(header); err != nil {
		t.Errorf("exported header: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("exported %d rows, want 2", len(rows))
	}
}
