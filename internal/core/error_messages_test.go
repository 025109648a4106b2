package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "single violation maps by its own message",
			err:         ValidationErrors{{Row: 3, Field: ColWellName, Message: "Well Name is required"}},
			wantCode:    "VAL003",
			wantMessage: "Well Name is required",
		},
		{
			name: "several violations map to the summary",
			err: ValidationErrors{
				{Row: 2, Field: ColWellName, Message: "Well Name is required"},
				{Row: 3, Field: ColProgramNo, Message: "Program No A-1 already exists"},
			},
			wantCode:    "VAL000",
			wantMessage: "Some fields need correcting",
		},
		{
			name:        "duplicate program number",
			err:         Violation{Row: 2, Message: "Program No A-1 already exists"},
			wantCode:    "VAL005",
			wantMessage: "This Program No is already in use",
		},
		{
			name:        "repeated within the file",
			err:         Violation{Row: 4, Message: "Program No A-1 is repeated in this file"},
			wantCode:    "VAL005",
			wantMessage: "The same Program No appears twice in the file",
		},
		{
			name:        "bad date",
			err:         Violation{Message: "Creation Date or Due Date is not a valid date"},
			wantCode:    "VAL001",
			wantMessage: "Creation Date or Due Date is not a valid date",
		},
		{
			name:        "inverted dates",
			err:         Violation{Message: "Due Date must not be before Creation Date"},
			wantCode:    "VAL002",
			wantMessage: "Due Date is earlier than Creation Date",
		},
		{
			name:        "approver not in list",
			err:         Violation{Message: "Approval 3 must be empty or one of [BUDI RIVAI WIJAYA]"},
			wantCode:    "VAL006",
			wantMessage: "A value is not in the allowed list",
		},
		{
			name:        "header mismatch",
			err:         &HeaderError{Want: RequiredColumns, Got: []string{"No"}},
			wantCode:    "VAL004",
			wantMessage: "The file's columns do not match the required layout",
		},
		{
			name:        "invalid index",
			err:         fmt.Errorf("record 9: %w", ErrInvalidIndex),
			wantCode:    "IDX001",
			wantMessage: "No record has that number",
		},
		{
			name:        "store reset",
			err:         fmt.Errorf("%w: open workbook: zip: not a valid zip file", ErrStoreReset),
			wantCode:    "STORE001",
			wantMessage: "The data file could not be read and was reset to empty",
		},
		{
			name:        "unreadable upload",
			err:         fmt.Errorf("invalid workbook: %w", errors.New("zip: not a valid zip file")),
			wantCode:    "FILE002",
			wantMessage: "File is not a readable .xlsx workbook",
		},
		{
			name:        "expired staged upload",
			err:         fmt.Errorf("%w: 1234", ErrUploadNotFound),
			wantCode:    "UPL001",
			wantMessage: "That upload is no longer waiting to be submitted",
		},
		{
			name:        "upload gate full",
			err:         ErrTooManyUploads,
			wantCode:    "UPL002",
			wantMessage: "The server is busy reading other uploads",
		},
		{
			name:        "deadline",
			err:         fmt.Errorf("load records: %w", context.DeadlineExceeded),
			wantCode:    "UPL004",
			wantMessage: "Request timed out",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("FILE TOO LARGE"),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum upload size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrEmptyFile)

	expected := "The uploaded file is empty (Code: FILE004). Upload a workbook with a header row and data rows"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error is not user facing", err: nil, want: false},
		{name: "known error is user facing", err: ErrInvalidIndex, want: true},
		{name: "unknown error is not user facing", err: errors.New("random internal error xyz"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}
