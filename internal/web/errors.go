package web

// errors.go turns service errors into responses. The technical error is
// logged with the request ID; the client gets the mapped user message as
// JSON for API calls or as an alert page otherwise.

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/welltrack/internal/core"
	"github.com/JonMunkholm/welltrack/internal/logging"
	"github.com/JonMunkholm/welltrack/internal/web/templates"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errNoFile      = errors.New("no file provided")
	errFileTooBig  = errors.New("file too large")
	errBadRequest  = errors.New("invalid request body")
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error      string           `json:"error"`
	Message    string           `json:"message"`
	Action     string           `json:"action,omitempty"`
	Code       string           `json:"code"`
	Violations []core.Violation `json:"violations,omitempty"`
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var ve core.ValidationErrors
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidIndex):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUploadNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.As(err, &mbe), errors.Is(err, errFileTooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrHeaderMismatch),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, errNoFile),
		errors.Is(err, errBadRequest),
		strings.Contains(err.Error(), "invalid workbook"):
		return http.StatusBadRequest
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message with status.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	log := logging.WithFields(r.Context(),
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
	)
	if status >= http.StatusInternalServerError {
		log.Error("request error", "error", err)
	} else {
		log.Warn("request rejected", "error", err)
	}

	if wantsJSON(r) {
		resp := ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		}
		var ve core.ValidationErrors
		if errors.As(err, &ve) {
			resp.Violations = ve
		}
		writeJSON(w, status, resp)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if rerr := templates.ErrorPage(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); rerr != nil {
		log.Error("render error page", "error", rerr)
	}
}

// wantsJSON is true for API routes and for clients that ask for JSON.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// storeWarning is the flash shown when the workbook had to be reset.
func storeWarning(err error) *templates.Flash {
	if !errors.Is(err, core.ErrStoreReset) {
		return nil
	}
	return &templates.Flash{Kind: "warning", Message: core.FormatUserError(core.ErrStoreReset)}
}
