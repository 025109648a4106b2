package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/welltrack/internal/core"
	"github.com/JonMunkholm/welltrack/internal/logging"
	"github.com/JonMunkholm/welltrack/internal/web/templates"
)

// recordRequest is the wire shape of a record for both the JSON API and
// the HTML forms. Tags bound its size only; the domain rules live in
// core.Validator.
type recordRequest struct {
	WellName     string    `json:"wellName" validate:"max=200"`
	ProgramName  string    `json:"programName" validate:"max=200"`
	ProgramNo    string    `json:"programNo" validate:"max=100"`
	CreationDate string    `json:"creationDate" validate:"max=40"`
	DueDate      string    `json:"dueDate" validate:"max=40"`
	Initiator    string    `json:"initiator" validate:"max=100"`
	Approvals    [4]string `json:"approvals" validate:"dive,max=100"`
	Remarks      string    `json:"remarks" validate:"max=2000"`
}

// input converts the request for the service. A date that does not parse
// becomes the zero time, which the validator reports.
func (req recordRequest) input() core.RecordInput {
	in := core.RecordInput{
		WellName:    strings.TrimSpace(req.WellName),
		ProgramName: strings.TrimSpace(req.ProgramName),
		ProgramNo:   strings.TrimSpace(req.ProgramNo),
		Initiator:   strings.TrimSpace(req.Initiator),
		Remarks:     strings.TrimSpace(req.Remarks),
	}
	in.CreationDate, _ = core.ParseUploadDate(req.CreationDate)
	in.DueDate, _ = core.ParseUploadDate(req.DueDate)
	for i, a := range req.Approvals {
		in.Approvals[i] = strings.TrimSpace(a)
	}
	return in
}

// formValues echoes the request back into a form as typed.
func (req recordRequest) formValues() templates.FormValues {
	return templates.FormValues{
		WellName:     req.WellName,
		ProgramName:  req.ProgramName,
		ProgramNo:    req.ProgramNo,
		CreationDate: req.CreationDate,
		DueDate:      req.DueDate,
		Initiator:    req.Initiator,
		Approvals:    req.Approvals,
		Remarks:      req.Remarks,
	}
}

const maxJSONBody = 1 << 20

func (s *Server) decodeRecordJSON(w http.ResponseWriter, r *http.Request) (recordRequest, error) {
	var req recordRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := s.validate.Struct(req); err != nil {
		return req, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return req, nil
}

func (s *Server) decodeRecordForm(r *http.Request) (recordRequest, error) {
	if err := r.ParseForm(); err != nil {
		return recordRequest{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	req := recordRequest{
		WellName:     r.PostFormValue("well_name"),
		ProgramName:  r.PostFormValue("program_name"),
		ProgramNo:    r.PostFormValue("program_no"),
		CreationDate: r.PostFormValue("creation_date"),
		DueDate:      r.PostFormValue("due_date"),
		Initiator:    r.PostFormValue("initiator"),
		Remarks:      r.PostFormValue("remarks"),
	}
	for _, slot := range core.Slots {
		req.Approvals[slot-1] = r.PostFormValue("approval_" + strconv.Itoa(int(slot)))
	}
	if err := s.validate.Struct(req); err != nil {
		return req, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return req, nil
}

// uploadFile pulls the "file" part out of a multipart request, bounded by
// the configured maximum size.
func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) (multipart.File, string, error) {
	limit := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, "", fmt.Errorf("%w: limit is %d bytes", errFileTooBig, limit)
		}
		return nil, "", fmt.Errorf("%w: %v", errNoFile, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errNoFile, err)
	}
	return file, header.Filename, nil
}

// recordNo reads the {no} path parameter. Anything but a positive integer
// is reported as an invalid index.
func recordNo(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "no")
	no, err := strconv.Atoi(raw)
	if err != nil || no < 1 {
		return 0, fmt.Errorf("record %q: %w", raw, core.ErrInvalidIndex)
	}
	return no, nil
}

// parseFilter reads the report filters: status, a1..a4 and month.
func parseFilter(r *http.Request) (core.Filter, string) {
	q := r.URL.Query()
	var f core.Filter
	if st := core.Status(q.Get("status")); st.Valid() {
		f.Status = st
	}
	for _, slot := range core.Slots {
		f.Approvals[slot-1] = core.ParseApprovalFilter(q.Get("a" + strconv.Itoa(int(slot))))
	}
	return f, q.Get("month")
}

func parseIntParam(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// warning returns the store-reset message to attach to a read, if any.
func warning(err error) string {
	if errors.Is(err, core.ErrStoreReset) {
		return core.FormatUserError(core.ErrStoreReset)
	}
	return ""
}

// failed reports whether err must abort the request. A store reset alone
// still carries a usable result.
func failed(err error) bool {
	return core.Fatal(err)
}

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}
