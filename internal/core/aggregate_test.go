package core

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

var fullApprovals = [4]string{"KRISTIANTO WIBOWO", "YULIANTO AGUS", "BUDI RIVAI WIJAYA", "PE TEAM"}

func rec(no int, created, due string, approvals [4]string) Record {
	return Record{
		No:           no,
		WellName:     "WELL",
		CreationDate: created,
		DueDate:      due,
		Status:       DeriveStatus(approvals),
		Initiator:    "HIBAN",
		Approvals:    approvals,
	}
}

func TestFilterMatch(t *testing.T) {
	records := []Record{
		rec(1, "01-Mar-25", "05-Mar-25", fullApprovals),
		rec(2, "01-Mar-25", "05-Mar-25", [4]string{"KRISTIANTO WIBOWO", "", "", ""}),
		rec(3, "01-Mar-25", "05-Mar-25", [4]string{"", "", "someone else", ""}),
	}

	tests := []struct {
		name   string
		filter Filter
		want   []int
	}{
		{"no filter", Filter{}, []int{1, 2, 3}},
		{"completed", Filter{Status: StatusCompleted}, []int{1}},
		{"in progress", Filter{Status: StatusInProgress}, []int{2, 3}},
		{"slot 1 approved", Filter{Approvals: [4]ApprovalFilter{FilterApproved}}, []int{1, 2}},
		{"slot 1 unapproved", Filter{Approvals: [4]ApprovalFilter{FilterUnapproved}}, []int{3}},
		{"slot 3 approved needs a recognised approver", Filter{Approvals: [4]ApprovalFilter{2: FilterApproved}}, []int{1}},
		{"slot 3 unapproved excludes unrecognised text", Filter{Approvals: [4]ApprovalFilter{2: FilterUnapproved}}, []int{2}},
		{
			"combined",
			Filter{Status: StatusInProgress, Approvals: [4]ApprovalFilter{FilterApproved, FilterUnapproved, FilterAll, FilterAll}},
			[]int{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []int{}
			for _, r := range ApplyFilter(records, tt.filter) {
				got = append(got, r.No)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("filtered Nos mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseApprovalFilter(t *testing.T) {
	for in, want := range map[string]ApprovalFilter{
		"":           FilterAll,
		"all":        FilterAll,
		"approved":   FilterApproved,
		"unapproved": FilterUnapproved,
		"APPROVED":   FilterAll,
	} {
		if got := ParseApprovalFilter(in); got != want {
			t.Errorf("ParseApprovalFilter(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClassifyDue(t *testing.T) {
	today := time.Date(2025, time.March, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		due  string
		want ReminderStatus
	}{
		{"09-Mar-25", ReminderOverdue},
		{"10-Mar-25", ReminderApproaching},
		{"13-Mar-25", ReminderApproaching},
		{"14-Mar-25", ReminderOnTrack},
		{"01-Jan-26", ReminderOnTrack},
		{"2025-03-10", ReminderInvalid},
		{"", ReminderInvalid},
	}

	for _, tt := range tests {
		if got := ClassifyDue(tt.due, today); got != tt.want {
			t.Errorf("ClassifyDue(%q) = %q, want %q", tt.due, got, tt.want)
		}
	}
}

func TestReminders(t *testing.T) {
	today := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	records := []Record{
		rec(1, "01-Mar-25", "05-Mar-25", fullApprovals),
		rec(2, "01-Mar-25", "12-Mar-25", [4]string{"KRISTIANTO WIBOWO", "", "BUDI RIVAI WIJAYA", ""}),
		rec(3, "01-Mar-25", "bad", [4]string{}),
	}

	got := Reminders(records, today)

	type key struct {
		No       int
		Approver string
		Status   ReminderStatus
	}
	keys := make([]key, len(got))
	for i, r := range got {
		keys[i] = key{r.No, r.Approver, r.ReminderStatus}
	}
	want := []key{
		{2, ColApproval2, ReminderApproaching},
		{2, ColApproval4, ReminderApproaching},
		{3, ColApproval1, ReminderInvalid},
		{3, ColApproval2, ReminderInvalid},
		{3, ColApproval3, ReminderInvalid},
		{3, ColApproval4, ReminderInvalid},
	}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("reminders mismatch (-want +got):\n%s", diff)
	}
}

func TestReminders_OnePerEmptySlot(t *testing.T) {
	today := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	records := []Record{
		rec(1, "01-Mar-25", "20-Mar-25", [4]string{}),
		rec(2, "01-Mar-25", "20-Mar-25", [4]string{"YULIANTO AGUS", "", "", ""}),
		rec(3, "01-Mar-25", "20-Mar-25", fullApprovals),
	}

	empty := 0
	for _, r := range records {
		for _, s := range Slots {
			if r.Approval(s) == "" {
				empty++
			}
		}
	}
	if got := len(Reminders(records, today)); got != empty {
		t.Errorf("got %d reminders, want %d (one per empty slot)", got, empty)
	}
}

func TestStatusDistribution(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		for _, s := range StatusDistribution(nil) {
			if s.Count != 0 || !s.Percentage.IsZero() {
				t.Errorf("%s: count %d pct %s, want zeros", s.Status, s.Count, s.Percentage)
			}
		}
	})

	t.Run("thirds", func(t *testing.T) {
		records := []Record{
			rec(1, "", "", fullApprovals),
			rec(2, "", "", [4]string{}),
			rec(3, "", "", [4]string{}),
		}
		got := StatusDistribution(records)
		if len(got) != 2 {
			t.Fatalf("got %d shares, want 2", len(got))
		}
		want := map[Status]string{StatusCompleted: "33.33", StatusInProgress: "66.67"}
		for _, s := range got {
			if s.Percentage.StringFixed(2) != want[s.Status] {
				t.Errorf("%s = %s, want %s", s.Status, s.Percentage.StringFixed(2), want[s.Status])
			}
		}
	})

	t.Run("sums to 100 within rounding", func(t *testing.T) {
		var records []Record
		for i := 1; i <= 7; i++ {
			a := [4]string{}
			if i%3 == 0 {
				a = fullApprovals
			}
			records = append(records, rec(i, "", "", a))
		}
		total := decimal.Zero
		for _, s := range StatusDistribution(records) {
			total = total.Add(s.Percentage)
		}
		if total.Sub(decimal.NewFromInt(100)).Abs().GreaterThan(decimal.RequireFromString("0.01")) {
			t.Errorf("percentages sum to %s", total)
		}
	})
}

func TestPendingApprovals(t *testing.T) {
	records := []Record{
		rec(1, "", "", [4]string{"", "", "", ""}),
		rec(2, "", "", [4]string{"", "", "BUDI RIVAI WIJAYA", ""}),
		rec(3, "", "", fullApprovals),
	}

	got := PendingApprovals(records)
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Slot != Slot3 || got[0].Pending != 1 || got[0].Approver != "BUDI RIVAI WIJAYA" {
		t.Errorf("slot 3 backlog = %+v", got[0])
	}
	if got[1].Slot != Slot4 || got[1].Pending != 2 || got[1].Approver != "PE TEAM" {
		t.Errorf("slot 4 backlog = %+v", got[1])
	}
	if got[0].Share.StringFixed(1) != "33.3" || got[1].Share.StringFixed(1) != "66.7" {
		t.Errorf("shares = %s / %s, want 33.3 / 66.7", got[0].Share, got[1].Share)
	}

	for _, b := range PendingApprovals([]Record{rec(1, "", "", fullApprovals)}) {
		if b.Pending != 0 || !b.Share.IsZero() {
			t.Errorf("no backlog expected, got %+v", b)
		}
	}
}

func TestSlotProgress(t *testing.T) {
	records := []Record{
		rec(1, "", "", [4]string{"", "", "", ""}),
		rec(2, "", "", [4]string{"", "", "BUDI RIVAI WIJAYA", ""}),
		rec(3, "", "", [4]string{"", "", "typo", ""}),
	}
	got := SlotProgress(records, Slot3)
	want := ApprovalProgress{Slot: Slot3, Approver: "BUDI RIVAI WIJAYA", Unapproved: 1, Approved: 1}
	if got != want {
		t.Errorf("SlotProgress = %+v, want %+v", got, want)
	}
}

func TestMonthlyCreations(t *testing.T) {
	records := []Record{
		rec(1, "15-Apr-25", "", [4]string{}),
		rec(2, "01-Mar-25", "", [4]string{}),
		rec(3, "31-Mar-25", "", [4]string{}),
		rec(4, "garbage", "", [4]string{}),
		rec(5, "02-Dec-24", "", [4]string{}),
	}

	got := MonthlyCreations(records)
	labels := make([]string, len(got))
	counts := make([]int, len(got))
	for i, m := range got {
		labels[i] = m.Label
		counts[i] = m.Count
	}
	if diff := cmp.Diff([]string{"Dec 2024", "Mar 2025", "Apr 2025"}, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 1}, counts); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestMonthlyApprovals(t *testing.T) {
	records := []Record{
		rec(1, "01-Mar-25", "", [4]string{"", "", "BUDI RIVAI WIJAYA", "PE TEAM"}),
		rec(2, "09-Mar-25", "", [4]string{"", "", "BUDI RIVAI WIJAYA", ""}),
		rec(3, "09-Mar-25", "", [4]string{"", "", "", ""}),
		rec(4, "09-Apr-25", "", fullApprovals),
	}

	got, ok := MonthlyApprovals(records, "Mar 2025")
	if !ok {
		t.Fatal("Mar 2025 not found")
	}
	if got.Slot3 != 2 || got.Slot4 != 1 {
		t.Errorf("Mar 2025 = %+v, want slot3 2 slot4 1", got)
	}

	if _, ok := MonthlyApprovals(records, "Jan 2020"); ok {
		t.Error("Jan 2020 should not be found")
	}
}

func TestBuildReport(t *testing.T) {
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	records := []Record{
		rec(1, "01-Apr-25", "05-Apr-25", fullApprovals),
		rec(2, "01-Mar-25", "05-Mar-25", [4]string{}),
		rec(3, "11-Mar-25", "12-Mar-25", [4]string{"YULIANTO AGUS", "", "", ""}),
	}

	t.Run("defaults to earliest month", func(t *testing.T) {
		rep := BuildReport(records, Filter{}, "", now)
		if len(rep.Records) != 3 {
			t.Errorf("got %d records, want 3", len(rep.Records))
		}
		if rep.SelectedMonth != "Mar 2025" || rep.MonthApprovals == nil {
			t.Fatalf("selected month = %q, approvals %v", rep.SelectedMonth, rep.MonthApprovals)
		}
		if got := len(rep.Reminders); got != 7 {
			t.Errorf("got %d reminders, want 7", got)
		}
		if !rep.GeneratedAt.Equal(now) {
			t.Errorf("GeneratedAt = %v", rep.GeneratedAt)
		}
	})

	t.Run("explicit month", func(t *testing.T) {
		rep := BuildReport(records, Filter{}, "Apr 2025", now)
		if rep.SelectedMonth != "Apr 2025" {
			t.Errorf("selected month = %q", rep.SelectedMonth)
		}
		if rep.MonthApprovals.Slot3 != 1 || rep.MonthApprovals.Slot4 != 1 {
			t.Errorf("Apr 2025 approvals = %+v", rep.MonthApprovals)
		}
	})

	t.Run("filter applies to every view", func(t *testing.T) {
		rep := BuildReport(records, Filter{Status: StatusCompleted}, "Mar 2025", now)
		if len(rep.Records) != 1 || len(rep.Reminders) != 0 {
			t.Errorf("records %d reminders %d, want 1 and 0", len(rep.Records), len(rep.Reminders))
		}
		if rep.SelectedMonth != "Apr 2025" {
			t.Errorf("unknown month should fall back to the earliest remaining, got %q", rep.SelectedMonth)
		}
	})

	t.Run("no records", func(t *testing.T) {
		rep := BuildReport(nil, Filter{}, "Mar 2025", now)
		if rep.SelectedMonth != "" || rep.MonthApprovals != nil || len(rep.Monthly) != 0 {
			t.Errorf("empty report should have no month selection: %+v", rep)
		}
	})
}
