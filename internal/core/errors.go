package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidIndex is returned when an edit or delete names a sequence
	// number that no record carries.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrHeaderMismatch is returned when an uploaded workbook's header row
	// differs from RequiredColumns.
	ErrHeaderMismatch = errors.New("column structure mismatch")

	// ErrEmptyFile is returned for an upload with no sheet or no header row.
	ErrEmptyFile = errors.New("empty file")

	// ErrStoreReset is returned by Load when the workbook could not be read
	// and was replaced by an empty one.
	ErrStoreReset = errors.New("store reset")

	// ErrUploadNotFound is returned when committing an unknown or expired
	// staged upload.
	ErrUploadNotFound = errors.New("upload not found")
)

// HeaderError describes a header mismatch in detail.
type HeaderError struct {
	Want []string
	Got  []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%s: want [%s], found [%s]", ErrHeaderMismatch,
		strings.Join(e.Want, ", "), strings.Join(e.Got, ", "))
}

func (e *HeaderError) Unwrap() error { return ErrHeaderMismatch }
