package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/welltrack/internal/core"
	"github.com/JonMunkholm/welltrack/internal/web/templates"
)

func (s *Server) handleMonitoring(w http.ResponseWriter, r *http.Request) {
	s.renderMonitoring(w, r, http.StatusOK, templates.MonitoringParams{Flash: doneFlash(r.URL.Query())})
}

// renderMonitoring loads the records and fills in whatever params leaves
// empty: entry form defaults and the record picked with ?no=N.
func (s *Server) renderMonitoring(w http.ResponseWriter, r *http.Request, status int, params templates.MonitoringParams) {
	records, err := s.service.List(withRequestMeta(r))
	if failed(err) {
		respondError(w, r, err, statusFor(err))
		return
	}
	if params.Flash == nil {
		params.Flash = storeWarning(err)
	}
	params.Records = records

	today := s.service.Today()
	if params.Entry == (templates.FormValues{}) {
		params.Entry = templates.FormFromInput(core.RecordInput{
			CreationDate: today,
			DueDate:      today.AddDate(0, 0, core.DefaultDueDays),
		})
	}

	if params.EditNo == 0 {
		if no, err := strconv.Atoi(r.URL.Query().Get("no")); err == nil {
			params.EditNo = no
		}
	}
	if params.EditNo > 0 && params.Edit == (templates.FormValues{}) {
		idx := core.FindByNo(records, params.EditNo)
		if idx < 0 {
			params.EditNo = 0
		} else {
			params.Edit = templates.FormFromInput(core.InputFromRecord(records[idx], today))
		}
	}

	render(w, r, status, templates.MonitoringPage(params))
}

func (s *Server) handleCreateRecordForm(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRecordForm(r)
	if err != nil {
		s.renderMonitoring(w, r, statusFor(err), templates.MonitoringParams{
			Flash: errorFlash(err),
			Entry: req.formValues(),
		})
		return
	}

	rec, err := s.service.Create(withRequestMeta(r), req.input())
	var ve core.ValidationErrors
	switch {
	case errors.As(err, &ve):
		s.renderMonitoring(w, r, http.StatusUnprocessableEntity, templates.MonitoringParams{
			Flash:      storeWarning(err),
			Violations: ve,
			Entry:      req.formValues(),
		})
	case failed(err):
		respondError(w, r, err, statusFor(err))
	default:
		redirectDone(w, r, err, url.Values{"done": {"created"}, "rec": {strconv.Itoa(rec.No)}})
	}
}

func (s *Server) handleUpdateRecordForm(w http.ResponseWriter, r *http.Request) {
	no, err := recordNo(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	req, err := s.decodeRecordForm(r)
	if err != nil {
		s.renderMonitoring(w, r, statusFor(err), templates.MonitoringParams{
			Flash:  errorFlash(err),
			EditNo: no,
			Edit:   req.formValues(),
		})
		return
	}

	rec, err := s.service.Update(withRequestMeta(r), no, req.input())
	var ve core.ValidationErrors
	switch {
	case errors.As(err, &ve):
		s.renderMonitoring(w, r, http.StatusUnprocessableEntity, templates.MonitoringParams{
			Flash:      storeWarning(err),
			Violations: ve,
			EditNo:     no,
			Edit:       req.formValues(),
		})
	case failed(err):
		respondError(w, r, err, statusFor(err))
	default:
		redirectDone(w, r, err, url.Values{"done": {"updated"}, "rec": {strconv.Itoa(rec.No)}, "no": {strconv.Itoa(rec.No)}})
	}
}

func (s *Server) handleDeleteRecordForm(w http.ResponseWriter, r *http.Request) {
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
	redirectDone(w, r, err, url.Values{"done": {"deleted"}, "rec": {strconv.Itoa(removed.No)}})
}

func (s *Server) handleUploadPreviewForm(w http.ResponseWriter, r *http.Request) {
	file, name, err := s.uploadFile(w, r)
	if err != nil {
		s.renderMonitoring(w, r, statusFor(err), templates.MonitoringParams{Flash: errorFlash(err)})
		return
	}
	defer file.Close()

	preview, err := s.service.PreviewUpload(withRequestMeta(r), name, file)
	if failed(err) {
		s.renderMonitoring(w, r, statusFor(err), templates.MonitoringParams{Flash: errorFlash(err)})
		return
	}
	status := http.StatusOK
	if !preview.Accepted() {
		status = http.StatusUnprocessableEntity
	}
	s.renderMonitoring(w, r, status, templates.MonitoringParams{Flash: storeWarning(err), Preview: preview})
}

func (s *Server) handleUploadCommitForm(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.CommitUpload(withRequestMeta(r), chi.URLParam(r, "uploadID"))
	var ve core.ValidationErrors
	switch {
	case errors.As(err, &ve):
		s.renderMonitoring(w, r, http.StatusUnprocessableEntity, templates.MonitoringParams{
			Flash:      &templates.Flash{Kind: "error", Message: "The upload no longer passes validation. Nothing was added."},
			Violations: ve,
		})
	case failed(err):
		s.renderMonitoring(w, r, statusFor(err), templates.MonitoringParams{Flash: errorFlash(err)})
	default:
		redirectDone(w, r, err, url.Values{"done": {"uploaded"}, "rows": {strconv.Itoa(result.Inserted)}})
	}
}

func (s *Server) handleReportPage(w http.ResponseWriter, r *http.Request) {
	f, month := parseFilter(r)
	rep, err := s.service.Report(withRequestMeta(r), f, month)
	if failed(err) {
		respondError(w, r, err, statusFor(err))
		return
	}
	render(w, r, http.StatusOK, templates.ReportPage(templates.ReportParams{
		Report: rep,
		Flash:  storeWarning(err),
	}))
}

// redirectDone sends the browser back to the monitoring page after a
// successful change, so a reload does not repeat it. A change applied to a
// reset store carries warn=reset.
func redirectDone(w http.ResponseWriter, r *http.Request, err error, q url.Values) {
	if errors.Is(err, core.ErrStoreReset) {
		q.Set("warn", "reset")
	}
	http.Redirect(w, r, "/monitoring?"+q.Encode(), http.StatusSeeOther)
}

// doneFlash turns the redirectDone query back into a notice.
// Only numbers are echoed back.
func doneFlash(q url.Values) *templates.Flash {
	n, err := strconv.Atoi(q.Get("rec") + q.Get("rows"))
	if err != nil {
		return nil
	}
	var msg string
	switch q.Get("done") {
	case "created":
		msg = fmt.Sprintf("Record %d added.", n)
	case "updated":
		msg = fmt.Sprintf("Record %d updated.", n)
	case "deleted":
		msg = fmt.Sprintf("Record %d deleted. Later records were renumbered.", n)
	case "uploaded":
		msg = fmt.Sprintf("%d records uploaded.", n)
	default:
		return nil
	}
	if q.Get("warn") == "reset" {
		return &templates.Flash{Kind: "warning", Message: msg + " " + core.FormatUserError(core.ErrStoreReset)}
	}
	return &templates.Flash{Kind: "success", Message: msg}
}

func errorFlash(err error) *templates.Flash {
	return &templates.Flash{Kind: "error", Message: core.FormatUserError(err)}
}
