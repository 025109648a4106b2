package core

// upload.go handles bulk uploads in two steps, mirroring how users work with
// the dashboard: a workbook is first previewed (parsed and validated against
// the current store) and, if clean, staged under an ID. The user then
// commits the staged batch, which re-validates against the store as it is at
// commit time and appends the rows.
//
// A rejected batch is never staged. Staged batches expire after a TTL.

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// DefaultStagingTTL is how long a previewed upload waits for a commit.
const DefaultStagingTTL = 30 * time.Minute

// UploadPreview is the outcome of previewing a workbook.
type UploadPreview struct {
	UploadID   string      `json:"uploadId,omitempty"` // empty when rejected
	FileName   string      `json:"fileName"`
	TotalRows  int         `json:"totalRows"`
	Records    []Record    `json:"records,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
}

// Accepted reports whether the batch passed validation and was staged.
func (p *UploadPreview) Accepted() bool {
	return p.UploadID != "" && len(p.Violations) == 0
}

// UploadResult describes a committed upload.
type UploadResult struct {
	UploadID string `json:"uploadId"`
	FileName string `json:"fileName"`
	Inserted int    `json:"inserted"`
	Total    int    `json:"total"` // records in the store after the commit
}

// ReadUpload parses the first sheet of an uploaded workbook into its header
// and data rows. Blank rows are skipped; line numbers keep counting them.
func ReadUpload(r io.Reader) ([]string, []UploadRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("invalid workbook: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, ErrEmptyFile
	}

	data := make([]UploadRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		data = append(data, UploadRow{Line: i + 2, Cells: row})
	}
	return rows[0], data, nil
}

type stagedUpload struct {
	id       string
	fileName string
	rows     []UploadRow
	expires  time.Time
}

// uploadStaging keeps validated uploads until they are committed or expire.
type uploadStaging struct {
	mu      sync.Mutex
	ttl     time.Duration
	uploads map[string]*stagedUpload
}

func newUploadStaging(ttl time.Duration) *uploadStaging {
	if ttl <= 0 {
		ttl = DefaultStagingTTL
	}
	return &uploadStaging{
		ttl:     ttl,
		uploads: make(map[string]*stagedUpload),
	}
}

func (st *uploadStaging) put(fileName string, rows []UploadRow, now time.Time) string {
	id := uuid.New().String()
	st.mu.Lock()
	defer st.mu.Unlock()
	st.uploads[id] = &stagedUpload{
		id:       id,
		fileName: fileName,
		rows:     rows,
		expires:  now.Add(st.ttl),
	}
	return id
}

// take removes and returns a staged upload that has not expired.
func (st *uploadStaging) take(id string, now time.Time) (*stagedUpload, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	u, ok := st.uploads[id]
	if !ok {
		return nil, false
	}
	delete(st.uploads, id)
	if now.After(u.expires) {
		return nil, false
	}
	return u, true
}

// sweep drops expired uploads and returns how many were removed.
func (st *uploadStaging) sweep(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, u := range st.uploads {
		if now.After(u.expires) {
			delete(st.uploads, id)
			n++
		}
	}
	return n
}

func (st *uploadStaging) count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.uploads)
}
