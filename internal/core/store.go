package core

// store.go persists the record set as a single .xlsx workbook.
//
// The workbook is the whole database: every Load reads all rows and every
// Save rewrites the file from scratch. There is no locking, so two callers
// that load, modify and save concurrently can lose one another's changes.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SheetName is the sheet records are written to. Reads use the first sheet
// whatever its name.
const SheetName = "Sheet1"

// RecordStore loads and saves the full record set.
type RecordStore interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, records []Record) error
}

// XLSXStore is a RecordStore backed by one workbook on disk.
type XLSXStore struct {
	path string
}

// NewXLSXStore returns a store for the workbook at path. The file is
// created on first Load if it does not exist.
func NewXLSXStore(path string) *XLSXStore {
	return &XLSXStore{path: path}
}

// Path returns the workbook location.
func (s *XLSXStore) Path() string {
	return s.path
}

// Load reads every record. Columns missing from the file are added empty
// and the file rewritten. If the workbook cannot be read at all it is
// replaced by an empty one and the returned error wraps ErrStoreReset; the
// returned slice is then empty but usable.
func (s *XLSXStore) Load(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		if err := s.Save(ctx, nil); err != nil {
			return nil, fmt.Errorf("initialise store: %w", err)
		}
		return []Record{}, nil
	}

	records, backfilled, err := s.read()
	if err != nil {
		slog.Warn("store unreadable, resetting to empty workbook", "path", s.path, "error", err)
		if saveErr := s.Save(ctx, nil); saveErr != nil {
			return []Record{}, fmt.Errorf("%w: %v (rewrite failed: %v)", ErrStoreReset, err, saveErr)
		}
		return []Record{}, fmt.Errorf("%w: %v", ErrStoreReset, err)
	}

	if backfilled {
		slog.Info("store missing columns, backfilling", "path", s.path)
		if err := s.Save(ctx, records); err != nil {
			return nil, fmt.Errorf("backfill columns: %w", err)
		}
	}

	return records, nil
}

// Save overwrites the workbook with records. The new file is written next to
// the old one and renamed over it.
func (s *XLSXStore) Save(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := newWorkbook(records)
	if err != nil {
		return err
	}
	defer f.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".welltrack-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close workbook: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}

// read parses the workbook. backfilled reports whether any required column
// was absent. The stored No column is ignored: records are numbered by row
// position so that No always addresses the row it names.
func (s *XLSXStore) read() (records []Record, backfilled bool, err error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, false, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, false, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, false, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return []Record{}, true, nil
	}

	pos := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		pos[strings.TrimSpace(h)] = i
	}
	for _, col := range RequiredColumns {
		if _, ok := pos[col]; !ok {
			backfilled = true
		}
	}

	cell := func(row []string, col string) string {
		i, ok := pos[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records = make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		var approvals [4]string
		for _, sl := range Slots {
			approvals[sl-1] = cell(row, sl.Column())
		}
		records = append(records, Record{
			No:           len(records) + 1,
			WellName:     cell(row, ColWellName),
			ProgramName:  cell(row, ColProgramName),
			ProgramNo:    cell(row, ColProgramNo),
			CreationDate: cell(row, ColCreationDate),
			DueDate:      cell(row, ColDueDate),
			Status:       DeriveStatus(approvals),
			Initiator:    cell(row, ColInitiator),
			Approvals:    approvals,
			Remarks:      cell(row, ColRemarks),
		})
	}
	return records, backfilled, nil
}

// WriteWorkbook streams records as an .xlsx workbook.
func WriteWorkbook(w io.Writer, records []Record) error {
	f, err := newWorkbook(records)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteTemplate streams a workbook holding only the header row, for users
// preparing a bulk upload.
func WriteTemplate(w io.Writer) error {
	return WriteWorkbook(w, nil)
}

// newWorkbook builds an in-memory workbook with the header and records.
func newWorkbook(records []Record) (*excelize.File, error) {
	f := excelize.NewFile()

	header := make([]any, len(RequiredColumns))
	for i, col := range RequiredColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		values := r.Cells()
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(SheetName, 1, 1, style)
	}
	_ = f.SetColWidth(SheetName, "A", "A", 6)
	_ = f.SetColWidth(SheetName, "B", "M", 20)

	return f, nil
}

// isBlank reports whether every cell of a row is empty.
func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
