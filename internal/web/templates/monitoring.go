package templates

import (
	"context"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/welltrack/internal/core"
)

// FormValues holds a record form's raw field values so a rejected
// submission can be shown again as typed.
type FormValues struct {
	WellName     string
	ProgramName  string
	ProgramNo    string
	CreationDate string // yyyy-mm-dd, as used by <input type="date">
	DueDate      string
	Initiator    string
	Approvals    [4]string
	Remarks      string
}

// InputDateLayout is the wire format of an HTML date input.
const InputDateLayout = "2006-01-02"

// FormFromInput fills a form from a record input.
func FormFromInput(in core.RecordInput) FormValues {
	fv := FormValues{
		WellName:    in.WellName,
		ProgramName: in.ProgramName,
		ProgramNo:   in.ProgramNo,
		Initiator:   in.Initiator,
		Approvals:   in.Approvals,
		Remarks:     in.Remarks,
	}
	if !in.CreationDate.IsZero() {
		fv.CreationDate = in.CreationDate.Format(InputDateLayout)
	}
	if !in.DueDate.IsZero() {
		fv.DueDate = in.DueDate.Format(InputDateLayout)
	}
	return fv
}

// MonitoringParams is everything the monitoring page shows.
type MonitoringParams struct {
	Records    []core.Record
	Flash      *Flash
	Violations []core.Violation
	Preview    *core.UploadPreview
	Entry      FormValues
	EditNo     int // 0 when no record is selected for editing
	Edit       FormValues
}

// MonitoringPage is the data-entry page: upload, manual entry, the record
// table and the edit/delete panel.
func MonitoringPage(params MonitoringParams) templ.Component {
	return Layout("Monitoring", "monitoring", monitoringBody(params))
}

func monitoringBody(params MonitoringParams) templ.Component {
	return component(func(_ context.Context, p *page) {
		p.raw(`<h1>Well Program Monitoring</h1>`)
		flash(p, params.Flash)
		violationList(p, params.Violations)

		uploadSection(p)
		if params.Preview != nil {
			previewSection(p, params.Preview)
		}

		p.raw(`<section class="card"><h2>New Record</h2>`)
		recordForm(p, "/monitoring/records", params.Entry, "Add Record")
		p.raw(`</section>`)

		p.raw(`<section class="card"><h2>Records</h2>`)
		recordTable(p, params.Records)
		p.raw(`</section>`)

		editSection(p, params)
	})
}

func violationList(p *page, vs []core.Violation) {
	if len(vs) == 0 {
		return
	}
	p.raw(`<div class="alert" role="alert"><strong>Please correct the following:</strong><ul>`)
	for _, v := range vs {
		p.raw(`<li>`)
		if v.Row > 0 {
			p.textf("Row %d, %s: ", v.Row, v.Field)
		} else if v.Field != "" {
			p.text(v.Field + ": ")
		}
		p.text(v.Message)
		p.raw(`</li>`)
	}
	p.raw(`</ul></div>`)
}

func uploadSection(p *page) {
	p.raw(`<section class="card"><h2>Upload Workbook</h2>`,
		`<p class="hint">The first sheet must carry exactly these columns: `)
	for i, col := range core.RequiredColumns {
		if i > 0 {
			p.raw(", ")
		}
		p.text(col)
	}
	p.raw(`. <a href="/monitoring/template">Download template</a></p>`,
		`<form method="post" action="/monitoring/upload" enctype="multipart/form-data">`,
		`<input type="file" name="file" accept=".xlsx" required>`,
		`<button type="submit">Preview</button></form></section>`)
}

func previewSection(p *page, pv *core.UploadPreview) {
	p.raw(`<section class="card"><h2>Upload Preview</h2><p>`)
	p.textf("%s: %d data rows", pv.FileName, pv.TotalRows)
	p.raw(`</p>`)
	if !pv.Accepted() {
		p.raw(`<p class="flash flash-error">The file was rejected. Nothing was added.</p>`)
		violationList(p, pv.Violations)
		p.raw(`</section>`)
		return
	}
	recordTable(p, pv.Records)
	p.raw(`<form method="post"`)
	p.attr("action", "/monitoring/upload/"+pv.UploadID+"/commit")
	p.raw(`><button type="submit">Submit Upload</button></form></section>`)
}

var tableColumns = core.RequiredColumns

func recordTable(p *page, records []core.Record) {
	if len(records) == 0 {
		p.raw(`<p class="empty">No records.</p>`)
		return
	}
	p.raw(`<div class="table-wrap"><table><thead><tr>`)
	for _, col := range tableColumns {
		p.raw(`<th>`)
		p.text(col)
		p.raw(`</th>`)
	}
	p.raw(`</tr></thead><tbody>`)
	for _, r := range records {
		recordRow(p, r)
	}
	p.raw(`</tbody></table></div>`)
}

func recordRow(p *page, r core.Record) {
	p.raw(`<tr>`)
	cells := []string{
		strconv.Itoa(r.No), r.WellName, r.ProgramName, r.ProgramNo,
		r.CreationDate, r.DueDate,
	}
	for _, c := range cells {
		p.raw(`<td>`)
		p.text(c)
		p.raw(`</td>`)
	}
	p.raw(`<td><span`)
	p.attr("class", "badge badge-"+string(r.Status))
	p.raw(`>`)
	p.text(string(r.Status))
	p.raw(`</span></td><td>`)
	p.text(r.Initiator)
	p.raw(`</td>`)
	for _, a := range r.Approvals {
		p.raw(`<td>`)
		p.text(a)
		p.raw(`</td>`)
	}
	p.raw(`<td>`)
	p.text(r.Remarks)
	p.raw(`</td></tr>`)
}

func recordForm(p *page, action string, fv FormValues, submit string) {
	p.raw(`<form method="post" class="record-form"`)
	p.attr("action", action)
	p.raw(`>`)
	textField(p, "well_name", core.ColWellName, fv.WellName, true)
	textField(p, "program_name", core.ColProgramName, fv.ProgramName, false)
	textField(p, "program_no", core.ColProgramNo, fv.ProgramNo, false)
	dateField(p, "creation_date", core.ColCreationDate, fv.CreationDate)
	dateField(p, "due_date", core.ColDueDate, fv.DueDate)
	selectField(p, "initiator", core.ColInitiator, core.ValidInitiators, fv.Initiator, false)
	for _, s := range core.Slots {
		selectField(p, "approval_"+strconv.Itoa(int(s)), s.Column(), s.Approvers(), fv.Approvals[s-1], true)
	}
	p.raw(`<label class="wide">`)
	p.text(core.ColRemarks)
	p.raw(`<textarea name="remarks" rows="2">`)
	p.text(fv.Remarks)
	p.raw(`</textarea></label><button type="submit">`)
	p.text(submit)
	p.raw(`</button></form>`)
}

func textField(p *page, name, label, value string, required bool) {
	p.raw(`<label>`)
	p.text(label)
	p.raw(`<input type="text"`)
	p.attr("name", name)
	p.attr("value", value)
	if required {
		p.raw(` required`)
	}
	p.raw(`></label>`)
}

func dateField(p *page, name, label, value string) {
	p.raw(`<label>`)
	p.text(label)
	p.raw(`<input type="date" required`)
	p.attr("name", name)
	p.attr("value", value)
	p.raw(`></label>`)
}

// selectField renders a drop-down. With blank set the first option is
// empty, meaning "not yet approved".
func selectField(p *page, name, label string, options []string, selected string, blank bool) {
	p.raw(`<label>`)
	p.text(label)
	p.raw(`<select`)
	p.attr("name", name)
	p.raw(`>`)
	if blank {
		p.option("", "(pending)", selected == "")
	}
	for _, o := range options {
		p.option(o, o, o == selected)
	}
	p.raw(`</select></label>`)
}

func editSection(p *page, params MonitoringParams) {
	if len(params.Records) == 0 {
		return
	}
	p.raw(`<section class="card"><h2>Edit or Delete</h2>`,
		`<form method="get" action="/monitoring" class="inline"><label>No<select name="no">`)
	for _, r := range params.Records {
		label := strconv.Itoa(r.No) + " - " + r.WellName
		p.option(strconv.Itoa(r.No), label, r.No == params.EditNo)
	}
	p.raw(`</select></label><button type="submit">Select</button></form>`)

	if params.EditNo > 0 {
		no := strconv.Itoa(params.EditNo)
		recordForm(p, "/monitoring/records/"+no, params.Edit, "Save Changes")
		p.raw(`<form method="post" class="inline danger"`)
		p.attr("action", "/monitoring/records/"+no+"/delete")
		p.raw(`><button type="submit">`)
		p.text("Delete Record " + no)
		p.raw(`</button></form>`)
	}
	p.raw(`</section>`)
}
