package web

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/welltrack/internal/core"
	"github.com/JonMunkholm/welltrack/internal/logging"
)

type recordsResponse struct {
	Records []core.Record `json:"records"`
	Count   int           `json:"count"`
	Warning string        `json:"warning,omitempty"`
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.List(withRequestMeta(r))
	if failed(err) {
		respondError(w, r, err, statusFor(err))
		return
	}
	if records == nil {
		records = []core.Record{}
	}
	writeJSON(w, http.StatusOK, recordsResponse{Records: records, Count: len(records), Warning: warning(err)})
}

// recordResponse is a changed record plus the store-reset notice when the
// change was applied to a reset store.
type recordResponse struct {
	core.Record
	Warning string `json:"warning,omitempty"`
}

type previewResponse struct {
	*core.UploadPreview
	Warning string `json:"warning,omitempty"`
}

type uploadResponse struct {
	core.UploadResult
	Warning string `json:"warning,omitempty"`
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	no, err := recordNo(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	rec, err := s.service.Get(withRequestMeta(r), no)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRecordJSON(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	rec, err := s.service.Create(withRequestMeta(r), req.input())
	if failed(err) {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, recordResponse{Record: rec, Warning: warning(err)})
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	no, err := recordNo(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	req, err := s.decodeRecordJSON(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	rec, err := s.service.Update(withRequestMeta(r), no, req.input())
	if failed(err) {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Record: rec, Warning: warning(err)})
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	no, err := recordNo(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	removed, err := s.service.Delete(withRequestMeta(r), no)
	if failed(err) {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Record: removed, Warning: warning(err)})
}

// handleUploadPreview answers 200 with a staged preview, or 422 with the
// same body when any row broke a rule.
func (s *Server) handleUploadPreview(w http.ResponseWriter, r *http.Request) {
	file, name, err := s.uploadFile(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()

	preview, err := s.service.PreviewUpload(withRequestMeta(r), name, file)
	if failed(err) {
		respondError(w, r, err, statusFor(err))
		return
	}
	status := http.StatusOK
	if !preview.Accepted() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, previewResponse{UploadPreview: preview, Warning: warning(err)})
}

func (s *Server) handleUploadCommit(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.CommitUpload(withRequestMeta(r), chi.URLParam(r, "uploadID"))
	if failed(err) {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{UploadResult: result, Warning: warning(err)})
}

type reportResponse struct {
	core.Report
	Warning string `json:"warning,omitempty"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	f, month := parseFilter(r)
	rep, err := s.service.Report(withRequestMeta(r), f, month)
	if failed(err) {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{Report: rep, Warning: warning(err)})
}

type remindersResponse struct {
	Reminders []core.Reminder `json:"reminders"`
	Count     int             `json:"count"`
	Warning   string          `json:"warning,omitempty"`
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.service.Reminders(withRequestMeta(r))
	if failed(err) {
		respondError(w, r, err, statusFor(err))
		return
	}
	if reminders == nil {
		reminders = []core.Reminder{}
	}
	writeJSON(w, http.StatusOK, remindersResponse{Reminders: reminders, Count: len(reminders), Warning: warning(err)})
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.service.Export(withRequestMeta(r), &buf); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	sendWorkbook(w, r, "well_program_data.xlsx", &buf)
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.service.Template(&buf); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	sendWorkbook(w, r, "well_program_template.xlsx", &buf)
}

func sendWorkbook(w http.ResponseWriter, r *http.Request, name string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("send workbook", "file", name, "error", err)
	}
}

const maxAuditLimit = 1000

func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := min(parseIntParam(r, "limit", core.DefaultAuditLimit), maxAuditLimit)
	entries, err := s.service.AuditLog(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if entries == nil {
		entries = []core.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}
