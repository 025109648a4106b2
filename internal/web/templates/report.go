package templates

import (
	"context"
	"strconv"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/welltrack/internal/core"
)

// ReportParams is everything the report page shows.
type ReportParams struct {
	Report core.Report
	Flash  *Flash
}

// ReportPage renders the filters, the filtered table, reminders and charts.
func ReportPage(params ReportParams) templ.Component {
	return Layout("Report", "report", reportBody(params))
}

func reportBody(params ReportParams) templ.Component {
	return component(func(_ context.Context, p *page) {
		rep := params.Report
		p.raw(`<h1>Well Program Report</h1>`)
		flash(p, params.Flash)
		filterBar(p, rep)

		p.raw(`<section class="card"><h2>Records</h2><p class="hint">`)
		p.textf("%d matching records", len(rep.Records))
		p.raw(` | <a href="/monitoring/export">Download workbook</a></p>`)
		recordTable(p, rep.Records)
		p.raw(`</section>`)

		reminderTable(p, rep.Reminders)

		p.raw(`<div class="charts">`)
		distributionChart(p, rep.Distribution)
		backlogChart(p, rep.Backlog)
		progressChart(p, rep.Progress)
		monthlyChart(p, rep.Monthly)
		monthApprovalsChart(p, rep.MonthApprovals)
		p.raw(`</div>`)
	})
}

// filterBar offers only the months present in the filtered records, the
// same set the month fallback picks from.
func filterBar(p *page, rep core.Report) {
	p.raw(`<form method="get" action="/report" class="card filters">`)

	p.raw(`<label>Status<select name="status">`)
	p.option("", "All", rep.Filter.Status == "")
	for _, st := range core.ValidStatuses {
		p.option(string(st), string(st), rep.Filter.Status == st)
	}
	p.raw(`</select></label>`)

	for _, s := range core.Slots {
		current := rep.Filter.Approvals[s-1]
		p.raw(`<label>`)
		p.text(s.Column())
		p.raw(`<select`)
		p.attr("name", "a"+strconv.Itoa(int(s)))
		p.raw(`>`)
		p.option(string(core.FilterAll), "All", current == core.FilterAll || current == "")
		p.option(string(core.FilterUnapproved), "Unapproved", current == core.FilterUnapproved)
		p.option(string(core.FilterApproved), "Approved", current == core.FilterApproved)
		p.raw(`</select></label>`)
	}

	if len(rep.Monthly) > 0 {
		p.raw(`<label>Month<select name="month">`)
		for _, m := range rep.Monthly {
			p.option(m.Label, m.Label, m.Label == rep.SelectedMonth)
		}
		p.raw(`</select></label>`)
	}
	p.raw(`<button type="submit">Apply</button></form>`)
}

func reminderTable(p *page, reminders []core.Reminder) {
	p.raw(`<section class="card"><h2>Approval Reminders</h2>`)
	if len(reminders) == 0 {
		p.raw(`<p class="empty">No pending approvals.</p></section>`)
		return
	}
	p.raw(`<div class="table-wrap"><table><thead><tr>`,
		`<th>No</th><th>Well Name</th><th>Well Program Name</th><th>Program No</th>`,
		`<th>Approver</th><th>Creation Date</th><th>Due Date</th><th>Reminder</th><th>Status</th>`,
		`</tr></thead><tbody>`)
	for _, r := range reminders {
		p.raw(`<tr`)
		p.attr("class", reminderClass(r.ReminderStatus))
		p.raw(`>`)
		for _, c := range []string{
			strconv.Itoa(r.No), r.WellName, r.ProgramName, r.ProgramNo,
			r.Approver, r.CreationDate, r.DueDate, string(r.ReminderStatus), string(r.Status),
		} {
			p.raw(`<td>`)
			p.text(c)
			p.raw(`</td>`)
		}
		p.raw(`</tr>`)
	}
	p.raw(`</tbody></table></div></section>`)
}

func reminderClass(st core.ReminderStatus) string {
	switch st {
	case core.ReminderOverdue:
		return "due-overdue"
	case core.ReminderApproaching:
		return "due-soon"
	case core.ReminderInvalid:
		return "due-invalid"
	default:
		return "due-ok"
	}
}

type bar struct {
	label string
	value int
	note  string
}

// barChart draws horizontal bars scaled to the largest value.
func barChart(p *page, title string, bars []bar) {
	p.raw(`<figure class="chart"><figcaption>`)
	p.text(title)
	p.raw(`</figcaption>`)
	maxVal := 0
	for _, b := range bars {
		maxVal = max(maxVal, b.value)
	}
	if maxVal == 0 {
		p.raw(`<p class="empty">No data.</p></figure>`)
		return
	}
	for _, b := range bars {
		width := decimal.NewFromInt(int64(b.value)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(maxVal))).
			Round(1)
		p.raw(`<div class="bar-row"><span class="bar-label">`)
		p.text(b.label)
		p.raw(`</span><span class="bar-track"><span class="bar"`)
		p.attr("style", "width: "+width.String()+"%")
		p.raw(`></span></span><span class="bar-value">`)
		p.text(strconv.Itoa(b.value))
		if b.note != "" {
			p.text(" (" + b.note + ")")
		}
		p.raw(`</span></div>`)
	}
	p.raw(`</figure>`)
}

func distributionChart(p *page, shares []core.StatusShare) {
	bars := make([]bar, len(shares))
	for i, s := range shares {
		bars[i] = bar{label: string(s.Status), value: s.Count, note: s.Percentage.StringFixed(2) + "%"}
	}
	barChart(p, "Status Distribution", bars)
}

func backlogChart(p *page, backlog []core.ApproverBacklog) {
	bars := make([]bar, len(backlog))
	for i, b := range backlog {
		bars[i] = bar{label: b.Approver, value: b.Pending, note: b.Share.StringFixed(1) + "%"}
	}
	barChart(p, "Pending Approvals", bars)
}

func progressChart(p *page, pr core.ApprovalProgress) {
	barChart(p, pr.Slot.Column()+" Progress ("+pr.Approver+")", []bar{
		{label: "Unapproved", value: pr.Unapproved},
		{label: "Approved", value: pr.Approved},
	})
}

func monthlyChart(p *page, months []core.MonthCount) {
	bars := make([]bar, len(months))
	for i, m := range months {
		bars[i] = bar{label: m.Label, value: m.Count}
	}
	barChart(p, "Programs Created per Month", bars)
}

func monthApprovalsChart(p *page, ma *core.MonthApprovals) {
	if ma == nil {
		return
	}
	barChart(p, "Approvals for "+ma.Label, []bar{
		{label: core.Slot3.Approvers()[0], value: ma.Slot3},
		{label: core.Slot4.Approvers()[0], value: ma.Slot4},
	})
}
