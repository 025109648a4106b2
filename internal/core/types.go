package core

import (
	"slices"
	"time"
)

// Status is the lifecycle state of a well program. It is always derived
// from the approval slots, never set directly.
type Status string

const (
	StatusCompleted  Status = "COMPLETED"
	StatusInProgress Status = "INPROGRESS"
)

// ValidStatuses lists the statuses accepted in an uploaded file.
var ValidStatuses = []Status{StatusCompleted, StatusInProgress}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return slices.Contains(ValidStatuses, s)
}

// Enumerated people. Order matters: forms list them in this order.
var (
	ValidInitiators = []string{"DHARMAWAN RAHARJO", "R.AULIA MUHAMMAD RIZKY", "HIBAN"}
	ValidApproval12 = []string{"KRISTIANTO WIBOWO", "YULIANTO AGUS"}
	ValidApproval3  = []string{"BUDI RIVAI WIJAYA"}
	ValidApproval4  = []string{"PE TEAM"}
)

// Slot identifies one of the four approval positions on a record.
type Slot int

const (
	Slot1 Slot = iota + 1
	Slot2
	Slot3
	Slot4
)

// Slots lists every approval slot in order.
var Slots = []Slot{Slot1, Slot2, Slot3, Slot4}

// Column returns the spreadsheet header for the slot.
func (s Slot) Column() string {
	switch s {
	case Slot1:
		return ColApproval1
	case Slot2:
		return ColApproval2
	case Slot3:
		return ColApproval3
	case Slot4:
		return ColApproval4
	default:
		return ""
	}
}

// Approvers returns the people eligible to sign the slot.
// Slots 1 and 2 share a set; 3 and 4 each have their own.
func (s Slot) Approvers() []string {
	switch s {
	case Slot1, Slot2:
		return ValidApproval12
	case Slot3:
		return ValidApproval3
	case Slot4:
		return ValidApproval4
	default:
		return nil
	}
}

// Accepts reports whether v may be stored in the slot. Empty means
// "not yet approved" and is always accepted.
func (s Slot) Accepts(v string) bool {
	return v == "" || slices.Contains(s.Approvers(), v)
}

// Column headers of the persisted workbook, in file order.
const (
	ColNo           = "No"
	ColWellName     = "Well Name"
	ColProgramName  = "Well Program Name"
	ColProgramNo    = "Program No"
	ColCreationDate = "Creation Date"
	ColDueDate      = "Due Date"
	ColStatus       = "Status"
	ColInitiator    = "Doc Initiator"
	ColApproval1    = "Approval 1"
	ColApproval2    = "Approval 2"
	ColApproval3    = "Approval 3"
	ColApproval4    = "Approval 4"
	ColRemarks      = "Remarks"
)

// RequiredColumns is the exact header row of the store and of any uploaded file.
var RequiredColumns = []string{
	ColNo, ColWellName, ColProgramName, ColProgramNo, ColCreationDate, ColDueDate,
	ColStatus, ColInitiator, ColApproval1, ColApproval2, ColApproval3, ColApproval4, ColRemarks,
}

// Record is one well program row.
//
// Dates are kept in their persisted DD-Mon-YY text form so that a value
// somebody typed into the workbook by hand survives a load/save cycle and
// can still be reported as an invalid due date.
type Record struct {
	No           int       `json:"no"`
	WellName     string    `json:"wellName"`
	ProgramName  string    `json:"programName"`
	ProgramNo    string    `json:"programNo"`
	CreationDate string    `json:"creationDate"`
	DueDate      string    `json:"dueDate"`
	Status       Status    `json:"status"`
	Initiator    string    `json:"initiator"`
	Approvals    [4]string `json:"approvals"`
	Remarks      string    `json:"remarks"`
}

// Approval returns the value held in slot s.
func (r Record) Approval(s Slot) string {
	if s < Slot1 || s > Slot4 {
		return ""
	}
	return r.Approvals[s-1]
}

// Created parses the creation date.
func (r Record) Created() (time.Time, bool) {
	return ParseDate(r.CreationDate)
}

// Due parses the due date.
func (r Record) Due() (time.Time, bool) {
	return ParseDate(r.DueDate)
}

// Cells returns the record as a workbook row in RequiredColumns order.
func (r Record) Cells() []any {
	return []any{
		r.No, r.WellName, r.ProgramName, r.ProgramNo, r.CreationDate, r.DueDate,
		string(r.Status), r.Initiator,
		r.Approvals[0], r.Approvals[1], r.Approvals[2], r.Approvals[3],
		r.Remarks,
	}
}

// RecordInput is what a user submits from the entry or edit form.
type RecordInput struct {
	WellName     string
	ProgramName  string
	ProgramNo    string
	CreationDate time.Time
	DueDate      time.Time
	Initiator    string
	Approvals    [4]string
	Remarks      string
}

// toRecord builds a record from input with a freshly derived status.
func (in RecordInput) toRecord(no int) Record {
	return Record{
		No:           no,
		WellName:     in.WellName,
		ProgramName:  in.ProgramName,
		ProgramNo:    in.ProgramNo,
		CreationDate: FormatDate(in.CreationDate),
		DueDate:      FormatDate(in.DueDate),
		Status:       DeriveStatus(in.Approvals),
		Initiator:    in.Initiator,
		Approvals:    in.Approvals,
		Remarks:      in.Remarks,
	}
}

// InputFromRecord converts a stored record back into form input. Dates that
// do not parse fall back to today and today+7, the entry form defaults.
func InputFromRecord(r Record, today time.Time) RecordInput {
	created, ok := r.Created()
	if !ok {
		created = truncateDay(today)
	}
	due, ok := r.Due()
	if !ok {
		due = truncateDay(today).AddDate(0, 0, DefaultDueDays)
	}
	return RecordInput{
		WellName:     r.WellName,
		ProgramName:  r.ProgramName,
		ProgramNo:    r.ProgramNo,
		CreationDate: created,
		DueDate:      due,
		Initiator:    r.Initiator,
		Approvals:    r.Approvals,
		Remarks:      r.Remarks,
	}
}

// DefaultDueDays is how far after creation the entry form proposes the due date.
const DefaultDueDays = 7

// Renumber rewrites No so that it equals row position, starting at 1.
func Renumber(records []Record) {
	for i := range records {
		records[i].No = i + 1
	}
}

// FindByNo returns the index of the record with sequence number no, or -1.
func FindByNo(records []Record, no int) int {
	for i, r := range records {
		if r.No == no {
			return i
		}
	}
	return -1
}
