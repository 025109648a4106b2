package core

// error_messages.go maps technical errors to messages a well-program clerk
// can act on. Each message carries a code that can be quoted to support.
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date: Creation Date or Due Date did not parse
//	         Patterns: "not a valid date"
//	VAL002 - Date order: Due Date earlier than Creation Date
//	         Patterns: "must not be before"
//	VAL003 - Required field: Well Name is empty
//	         Patterns: "is required"
//	VAL004 - Column mismatch: upload header differs from the required columns
//	         Patterns: "column structure mismatch"
//	VAL005 - Duplicate program number
//	         Patterns: "already exists", "is repeated in this file"
//	VAL006 - Invalid choice: status, initiator or approver not in its list
//	         Patterns: "must be one of", "must be empty or one of"
//	VAL000 - Several rules broken at once
//	         Patterns: "validation failed"
//
// # Record Errors (IDX001)
//
//	IDX001 - Invalid index: no record carries the requested No
//	         Patterns: "invalid index"
//
// # Store Errors (STORE001-STORE002)
//
//	STORE001 - Data file unreadable and reset to empty
//	           Patterns: "store reset"
//	STORE002 - Data file could not be written
//	           Patterns: "write workbook", "replace workbook"
//
// # File Errors (FILE001-FILE004)
//
//	FILE001 - File too large       Patterns: "file too large"
//	FILE002 - Not an xlsx workbook Patterns: "invalid workbook"
//	FILE003 - No file selected     Patterns: "no file provided"
//	FILE004 - Empty file           Patterns: "empty file"
//
// # Upload Errors (UPL001-UPL004)
//
//	UPL001 - Staged upload missing or expired  Patterns: "upload not found"
//	UPL002 - Too many uploads being parsed     Patterns: "too many concurrent uploads"
//	UPL003 - Request cancelled                 Patterns: "context canceled"
//	UPL004 - Request timed out                 Patterns: "context deadline exceeded"
//
// # Request Errors (REQ001)
//
//	REQ001 - Malformed request body  Patterns: "invalid request body"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests  Patterns: "rate limit"
//
// # Default (ERR000)
//
// Anything else. Check the server log, which carries the technical error
// and request ID.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so a joined "validation failed: ..." message with
// several causes maps to VAL000 rather than to whichever cause comes first.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage is an error rewritten for the person at the keyboard.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Whole-submission validation, checked before the single-rule patterns.
	{
		pattern: "validation failed",
		msg: UserMessage{
			Message: "Some fields need correcting",
			Action:  "Fix every listed problem and submit again",
			Code:    "VAL000",
		},
	},
	{
		pattern: "not a valid date",
		msg: UserMessage{
			Message: "Creation Date or Due Date is not a valid date",
			Action:  "Use dates like 05-Mar-25 or 2025-03-05",
			Code:    "VAL001",
		},
	},
	{
		pattern: "must not be before",
		msg: UserMessage{
			Message: "Due Date is earlier than Creation Date",
			Action:  "Move the Due Date to on or after the Creation Date",
			Code:    "VAL002",
		},
	},
	{
		pattern: "is required",
		msg: UserMessage{
			Message: "Well Name is required",
			Action:  "Enter the well name",
			Code:    "VAL003",
		},
	},
	{
		pattern: "column structure mismatch",
		msg: UserMessage{
			Message: "The file's columns do not match the required layout",
			Action:  "Download the template and keep its header row unchanged",
			Code:    "VAL004",
		},
	},
	{
		pattern: "already exists",
		msg: UserMessage{
			Message: "This Program No is already in use",
			Action:  "Use a different Program No or leave it empty",
			Code:    "VAL005",
		},
	},
	{
		pattern: "is repeated in this file",
		msg: UserMessage{
			Message: "The same Program No appears twice in the file",
			Action:  "Make every Program No in the file unique",
			Code:    "VAL005",
		},
	},
	{
		pattern: "must be one of",
		msg: UserMessage{
			Message: "A value is not in the allowed list",
			Action:  "Pick a status, initiator or approver from the list",
			Code:    "VAL006",
		},
	},

	{
		pattern: "invalid index",
		msg: UserMessage{
			Message: "No record has that number",
			Action:  "Check the No column and try again",
			Code:    "IDX001",
		},
	},

	{
		pattern: "store reset",
		msg: UserMessage{
			Message: "The data file could not be read and was reset to empty",
			Action:  "Restore the file from a backup or re-upload the records",
			Code:    "STORE001",
		},
	},
	{
		pattern: "write workbook",
		msg: UserMessage{
			Message: "The data file could not be saved",
			Action:  "Please try again or contact support",
			Code:    "STORE002",
		},
	},
	{
		pattern: "replace workbook",
		msg: UserMessage{
			Message: "The data file could not be saved",
			Action:  "Please try again or contact support",
			Code:    "STORE002",
		},
	},

	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the records across smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid workbook",
		msg: UserMessage{
			Message: "File is not a readable .xlsx workbook",
			Action:  "Save the file as Excel Workbook (.xlsx) and upload again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose an .xlsx file to upload",
			Code:    "FILE003",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a workbook with a header row and data rows",
			Code:    "FILE004",
		},
	},

	{
		pattern: "upload not found",
		msg: UserMessage{
			Message: "That upload is no longer waiting to be submitted",
			Action:  "Upload the file again and submit it within 30 minutes",
			Code:    "UPL001",
		},
	},
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "The server is busy reading other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},

	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Send the record fields as a JSON object or form",
			Code:    "REQ001",
		},
	},

	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts err to a user message. A nil error maps to the zero
// UserMessage; an unrecognised one to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	// A single violation reads better verbatim than as the generic VAL000.
	var ve ValidationErrors
	if errors.As(err, &ve) && len(ve) == 1 {
		err = ve[0]
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: X). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
