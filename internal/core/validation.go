package core

// validation.go checks candidate records before they reach the store.
//
// The same ordered rule list runs for form input and for every row of an
// uploaded workbook:
//
//  1. Well Name present
//  2. Program No not already taken
//  3. Status is a known value (uploads only)
//  4. Doc Initiator is a known person
//  5. each approval slot empty or an eligible approver
//  6. both dates parse
//  7. Due Date not before Creation Date
//
// All violations are collected; nothing is applied unless the list is empty.

import (
	"fmt"
	"slices"
	"strings"
)

// Violation is one broken rule on one row.
type Violation struct {
	Row     int    `json:"row,omitempty"` // workbook line number, 0 for form input
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (v Violation) Error() string {
	if v.Row > 0 {
		return fmt.Sprintf("row %d: %s", v.Row, v.Message)
	}
	return v.Message
}

// ValidationErrors carries every violation found for a submission.
type ValidationErrors []Violation

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// UploadRow is one data row of an uploaded workbook. Line is the
// spreadsheet line number, so the first data row is line 2.
type UploadRow struct {
	Line  int
	Cells []string
}

func (r UploadRow) get(col string) string {
	i := slices.Index(RequiredColumns, col)
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return cleanCell(r.Cells[i])
}

// Validator holds the program numbers already in the store.
type Validator struct {
	taken map[string]bool
}

// NewValidator builds a validator against existing records. The record
// numbered skipNo is ignored so that an edit may keep its own program
// number; pass 0 to consider every record.
func NewValidator(existing []Record, skipNo int) *Validator {
	taken := make(map[string]bool, len(existing))
	for _, r := range existing {
		if r.No == skipNo || r.ProgramNo == "" {
			continue
		}
		taken[r.ProgramNo] = true
	}
	return &Validator{taken: taken}
}

// ValidateInput checks a form submission. Status is not part of the form,
// so rule 3 does not apply.
func (v *Validator) ValidateInput(in RecordInput) []Violation {
	var out []Violation
	out = append(out, v.checkIdentity(0, in.WellName, in.ProgramNo)...)
	out = append(out, checkPeople(0, in.Initiator, in.Approvals)...)

	if in.CreationDate.IsZero() || in.DueDate.IsZero() {
		out = append(out, Violation{
			Field:   ColCreationDate,
			Message: "Creation Date or Due Date is not a valid date",
		})
	} else if in.DueDate.Before(in.CreationDate) {
		out = append(out, Violation{
			Field:   ColDueDate,
			Value:   FormatDate(in.DueDate),
			Message: "Due Date must not be before Creation Date",
		})
	}
	return out
}

// ValidateRows checks an uploaded batch. When no row breaks a rule it
// returns the rows as records with dates normalised to DateLayout and status
// re-derived from the approvals. Program numbers are also checked against
// earlier rows of the same batch.
func (v *Validator) ValidateRows(rows []UploadRow) ([]Record, []Violation) {
	var violations []Violation
	records := make([]Record, 0, len(rows))
	batch := make(map[string]bool)

	for _, row := range rows {
		var approvals [4]string
		for _, s := range Slots {
			approvals[s-1] = row.get(s.Column())
		}
		programNo := row.get(ColProgramNo)

		rowViolations := v.checkIdentity(row.Line, row.get(ColWellName), programNo)
		if programNo != "" && !v.taken[programNo] && batch[programNo] {
			rowViolations = append(rowViolations, Violation{
				Row:     row.Line,
				Field:   ColProgramNo,
				Value:   programNo,
				Message: fmt.Sprintf("Program No %s is repeated in this file", programNo),
			})
		}
		if programNo != "" {
			batch[programNo] = true
		}

		status := Status(row.get(ColStatus))
		if !status.Valid() {
			rowViolations = append(rowViolations, Violation{
				Row:     row.Line,
				Field:   ColStatus,
				Value:   string(status),
				Message: fmt.Sprintf("Status must be one of %v", ValidStatuses),
			})
		}

		rowViolations = append(rowViolations, checkPeople(row.Line, row.get(ColInitiator), approvals)...)

		created, createdOK := ParseUploadDate(row.get(ColCreationDate))
		due, dueOK := ParseUploadDate(row.get(ColDueDate))
		switch {
		case !createdOK || !dueOK:
			rowViolations = append(rowViolations, Violation{
				Row:     row.Line,
				Field:   ColCreationDate,
				Message: "Creation Date or Due Date is not a valid date",
			})
		case due.Before(created):
			rowViolations = append(rowViolations, Violation{
				Row:     row.Line,
				Field:   ColDueDate,
				Value:   FormatDate(due),
				Message: "Due Date must not be before Creation Date",
			})
		}

		if len(rowViolations) > 0 {
			violations = append(violations, rowViolations...)
			continue
		}

		records = append(records, Record{
			WellName:     row.get(ColWellName),
			ProgramName:  row.get(ColProgramName),
			ProgramNo:    programNo,
			CreationDate: FormatDate(created),
			DueDate:      FormatDate(due),
			Status:       DeriveStatus(approvals),
			Initiator:    row.get(ColInitiator),
			Approvals:    approvals,
			Remarks:      row.get(ColRemarks),
		})
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return records, nil
}

// checkIdentity applies rules 1 and 2.
func (v *Validator) checkIdentity(line int, wellName, programNo string) []Violation {
	var out []Violation
	if strings.TrimSpace(wellName) == "" {
		out = append(out, Violation{
			Row:     line,
			Field:   ColWellName,
			Message: "Well Name is required",
		})
	}
	if programNo != "" && v.taken[programNo] {
		out = append(out, Violation{
			Row:     line,
			Field:   ColProgramNo,
			Value:   programNo,
			Message: fmt.Sprintf("Program No %s already exists", programNo),
		})
	}
	return out
}

// checkPeople applies rules 4 and 5.
func checkPeople(line int, initiator string, approvals [4]string) []Violation {
	var out []Violation
	if !slices.Contains(ValidInitiators, initiator) {
		out = append(out, Violation{
			Row:     line,
			Field:   ColInitiator,
			Value:   initiator,
			Message: fmt.Sprintf("Doc Initiator must be one of %v", ValidInitiators),
		})
	}
	for _, s := range Slots {
		if val := approvals[s-1]; !s.Accepts(val) {
			out = append(out, Violation{
				Row:     line,
				Field:   s.Column(),
				Value:   val,
				Message: fmt.Sprintf("%s must be empty or one of %v", s.Column(), s.Approvers()),
			})
		}
	}
	return out
}

// ValidateHeader requires the uploaded header to equal RequiredColumns
// exactly, column for column.
func ValidateHeader(header []string) error {
	if !slices.Equal(header, RequiredColumns) {
		return &HeaderError{Want: RequiredColumns, Got: slices.Clone(header)}
	}
	return nil
}

// cleanCell trims whitespace and strips the ="..." wrapper some exports use.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return s
}
