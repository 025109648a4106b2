package core

// aggregate.go computes the read-only views behind the report page. Every
// function here is a pure function of the records passed in and, where it
// matters, today's date. None of them touch the store.

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalFilter narrows records by the state of one approval slot.
type ApprovalFilter string

const (
	FilterAll        ApprovalFilter = "all"
	FilterUnapproved ApprovalFilter = "unapproved"
	FilterApproved   ApprovalFilter = "approved"
)

// ParseApprovalFilter maps a query value to a filter; unknown values mean all.
func ParseApprovalFilter(s string) ApprovalFilter {
	switch ApprovalFilter(s) {
	case FilterUnapproved, FilterApproved:
		return ApprovalFilter(s)
	default:
		return FilterAll
	}
}

// Filter is the report page's filter bar.
type Filter struct {
	Status    Status            `json:"status,omitempty"` // empty matches any status
	Approvals [4]ApprovalFilter `json:"approvals"`
}

// Match reports whether r passes the filter. "Approved" requires the slot
// to hold an approver recognised for that slot, not just any text.
func (f Filter) Match(r Record) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	for _, s := range Slots {
		v := r.Approval(s)
		switch f.Approvals[s-1] {
		case FilterUnapproved:
			if v != "" {
				return false
			}
		case FilterApproved:
			if !slices.Contains(s.Approvers(), v) {
				return false
			}
		}
	}
	return true
}

// ApplyFilter returns the records matching f, in order.
func ApplyFilter(records []Record, f Filter) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// ReminderStatus classifies how close a pending approval is to its due date.
type ReminderStatus string

const (
	ReminderOverdue     ReminderStatus = "Overdue"
	ReminderApproaching ReminderStatus = "Approaching Due Date"
	ReminderOnTrack     ReminderStatus = "On Track"
	ReminderInvalid     ReminderStatus = "Invalid Due Date"
)

// ReminderWindowDays is how many days ahead a due date counts as approaching.
const ReminderWindowDays = 3

// ClassifyDue compares a persisted due date with today in whole calendar days.
func ClassifyDue(dueDate string, today time.Time) ReminderStatus {
	due, ok := ParseDate(dueDate)
	if !ok {
		return ReminderInvalid
	}
	switch days := daysBetween(today, due); {
	case days < 0:
		return ReminderOverdue
	case days <= ReminderWindowDays:
		return ReminderApproaching
	default:
		return ReminderOnTrack
	}
}

// Reminder is one still-empty approval slot on one record.
type Reminder struct {
	No             int            `json:"no"`
	WellName       string         `json:"wellName"`
	ProgramName    string         `json:"programName"`
	ProgramNo      string         `json:"programNo"`
	Approver       string         `json:"approver"` // slot column name, e.g. "Approval 3"
	CreationDate   string         `json:"creationDate"`
	DueDate        string         `json:"dueDate"`
	ReminderStatus ReminderStatus `json:"reminderStatus"`
	Status         Status         `json:"status"`
}

// Reminders emits one entry per empty slot per record, so a record yields
// up to four entries.
func Reminders(records []Record, today time.Time) []Reminder {
	var out []Reminder
	for _, r := range records {
		class := ClassifyDue(r.DueDate, today)
		for _, s := range Slots {
			if r.Approval(s) != "" {
				continue
			}
			out = append(out, Reminder{
				No:             r.No,
				WellName:       r.WellName,
				ProgramName:    r.ProgramName,
				ProgramNo:      r.ProgramNo,
				Approver:       s.Column(),
				CreationDate:   r.CreationDate,
				DueDate:        r.DueDate,
				ReminderStatus: class,
				Status:         r.Status,
			})
		}
	}
	return out
}

// StatusShare is one slice of the status pie.
type StatusShare struct {
	Status     Status          `json:"status"`
	Count      int             `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

// StatusDistribution counts records per status with percentages rounded to
// two decimals. With no records every percentage is zero.
func StatusDistribution(records []Record) []StatusShare {
	counts := make(map[Status]int, len(ValidStatuses))
	for _, r := range records {
		counts[r.Status]++
	}
	out := make([]StatusShare, 0, len(ValidStatuses))
	for _, st := range ValidStatuses {
		out = append(out, StatusShare{
			Status:     st,
			Count:      counts[st],
			Percentage: percent(counts[st], len(records), 2),
		})
	}
	return out
}

// ApproverBacklog counts records still waiting on a late-stage slot.
type ApproverBacklog struct {
	Slot     Slot            `json:"slot"`
	Approver string          `json:"approver"`
	Pending  int             `json:"pending"`
	Share    decimal.Decimal `json:"share"` // of the combined backlog, one decimal
}

// PendingApprovals reports the backlog for slots 3 and 4, each of which has
// a single eligible approver.
func PendingApprovals(records []Record) []ApproverBacklog {
	late := []Slot{Slot3, Slot4}
	out := make([]ApproverBacklog, len(late))
	total := 0
	for i, s := range late {
		out[i] = ApproverBacklog{Slot: s, Approver: s.Approvers()[0]}
		for _, r := range records {
			if r.Approval(s) == "" {
				out[i].Pending++
			}
		}
		total += out[i].Pending
	}
	for i := range out {
		out[i].Share = percent(out[i].Pending, total, 1)
	}
	return out
}

// ApprovalProgress splits records by whether a slot's eligible approver has
// signed.
type ApprovalProgress struct {
	Slot       Slot   `json:"slot"`
	Approver   string `json:"approver"`
	Unapproved int    `json:"unapproved"`
	Approved   int    `json:"approved"`
}

// SlotProgress counts empty versus recognised-approver values for slot s.
// Unrecognised non-empty values fall in neither bucket.
func SlotProgress(records []Record, s Slot) ApprovalProgress {
	p := ApprovalProgress{Slot: s}
	if approvers := s.Approvers(); len(approvers) > 0 {
		p.Approver = approvers[0]
	}
	for _, r := range records {
		v := r.Approval(s)
		switch {
		case v == "":
			p.Unapproved++
		case slices.Contains(s.Approvers(), v):
			p.Approved++
		}
	}
	return p
}

// MonthCount is the number of records created in one calendar month.
type MonthCount struct {
	Label string    `json:"label"` // "Mar 2025"
	Month time.Time `json:"month"`
	Count int       `json:"count"`
}

// MonthlyCreations buckets records by creation month, oldest first.
// Records whose creation date does not parse are left out.
func MonthlyCreations(records []Record) []MonthCount {
	counts := make(map[time.Time]int)
	for _, r := range records {
		created, ok := r.Created()
		if !ok {
			continue
		}
		counts[monthStart(created)]++
	}

	out := make([]MonthCount, 0, len(counts))
	for m, n := range counts {
		out = append(out, MonthCount{Label: m.Format(MonthLayout), Month: m, Count: n})
	}
	slices.SortFunc(out, func(a, b MonthCount) int {
		return a.Month.Compare(b.Month)
	})
	return out
}

// MonthApprovals is the slot 3 and slot 4 sign-off count for one month.
type MonthApprovals struct {
	Label string `json:"label"`
	Slot3 int    `json:"slot3"`
	Slot4 int    `json:"slot4"`
}

// MonthlyApprovals counts, among records created in the month labelled
// label, those whose slot 3 and slot 4 are non-empty. It counts any value,
// not only the eligible approver's; with one eligible approver per slot the
// two are the same today. ok is false when no record falls in that month.
func MonthlyApprovals(records []Record, label string) (MonthApprovals, bool) {
	out := MonthApprovals{Label: label}
	found := false
	for _, r := range records {
		created, ok := r.Created()
		if !ok || created.Format(MonthLayout) != label {
			continue
		}
		found = true
		if r.Approval(Slot3) != "" {
			out.Slot3++
		}
		if r.Approval(Slot4) != "" {
			out.Slot4++
		}
	}
	return out, found
}

// Report bundles every view shown on the report page.
type Report struct {
	Filter         Filter            `json:"filter"`
	Records        []Record          `json:"records"`
	Reminders      []Reminder        `json:"reminders"`
	Distribution   []StatusShare     `json:"distribution"`
	Backlog        []ApproverBacklog `json:"backlog"`
	Progress       ApprovalProgress  `json:"progress"`
	Monthly        []MonthCount      `json:"monthly"`
	SelectedMonth  string            `json:"selectedMonth,omitempty"`
	MonthApprovals *MonthApprovals   `json:"monthApprovals,omitempty"`
	GeneratedAt    time.Time         `json:"generatedAt"`
}

// BuildReport filters records and computes every view over the result.
// When month is empty or unknown the earliest month is selected.
func BuildReport(records []Record, f Filter, month string, now time.Time) Report {
	filtered := ApplyFilter(records, f)
	monthly := MonthlyCreations(filtered)

	rep := Report{
		Filter:       f,
		Records:      filtered,
		Reminders:    Reminders(filtered, now),
		Distribution: StatusDistribution(filtered),
		Backlog:      PendingApprovals(filtered),
		Progress:     SlotProgress(filtered, Slot3),
		Monthly:      monthly,
		GeneratedAt:  now,
	}

	if len(monthly) == 0 {
		return rep
	}
	if !slices.ContainsFunc(monthly, func(m MonthCount) bool { return m.Label == month }) {
		month = monthly[0].Label
	}
	if ma, ok := MonthlyApprovals(filtered, month); ok {
		rep.SelectedMonth = month
		rep.MonthApprovals = &ma
	}
	return rep
}

// percent returns part/total*100 rounded to places, or zero when total is zero.
func percent(part, total int, places int32) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(places)
}
