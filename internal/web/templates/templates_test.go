package templates

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/welltrack/internal/core"
)

func TestMonitoringPageEscapesRecordText(t *testing.T) {
	var sb strings.Builder
	params := MonitoringParams{
		Records: []core.Record{{
			No:        1,
			WellName:  `<script>alert("x")</script>`,
			Status:    core.StatusInProgress,
			Initiator: "HIBAN",
		}},
	}
	if err := MonitoringPage(params).Render(context.Background(), &sb); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if strings.Contains(out, "<script>") {
		t.Error("record text rendered unescaped")
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Error("escaped record text missing")
	}
	if !strings.Contains(out, `class="active"`) {
		t.Error("nav does not mark the active page")
	}
}

func TestFormFromInput(t *testing.T) {
	in := core.RecordInput{
		WellName:     "W",
		CreationDate: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	fv := FormFromInput(in)
	if fv.CreationDate != "2025-03-01" {
		t.Errorf("CreationDate = %q", fv.CreationDate)
	}
	if fv.DueDate != "" {
		t.Errorf("zero DueDate = %q, want empty", fv.DueDate)
	}
}

func TestReportPageCharts(t *testing.T) {
	rep := core.Report{
		Distribution: []core.StatusShare{
			{Status: core.StatusCompleted, Count: 1, Percentage: decimal.RequireFromString("25")},
			{Status: core.StatusInProgress, Count: 3, Percentage: decimal.RequireFromString("75")},
		},
		Monthly:        []core.MonthCount{{Label: "Feb 2025", Count: 1}, {Label: "Mar 2025", Count: 3}},
		SelectedMonth:  "Mar 2025",
		MonthApprovals: &core.MonthApprovals{Label: "Mar 2025", Slot3: 2, Slot4: 1},
	}
	var sb strings.Builder
	if err := ReportPage(ReportParams{Report: rep}).Render(context.Background(), &sb); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	for _, want := range []string{
		`style="width: 100%"`,
		"75.00%",
		`<option value="Mar 2025" selected>`,
		"Approvals for Mar 2025",
		"No pending approvals.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestErrorAlert(t *testing.T) {
	var sb strings.Builder
	if err := ErrorAlert("No record has that number", "Check the No column", "IDX001").Render(context.Background(), &sb); err != nil {
		t.Fatal(err)
	}
	if got := sb.String(); !strings.Contains(got, "<code>IDX001</code>") {
		t.Errorf("alert = %s", got)
	}
}
