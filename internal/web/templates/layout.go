package templates

import (
	"context"

	"github.com/a-h/templ"
)

// Layout wraps body in the page shell with the Monitoring / Report switch.
func Layout(title, active string, body templ.Component) templ.Component {
	return component(func(ctx context.Context, p *page) {
		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		p.text(title)
		p.raw(` | Well Program Tracker</title><link rel="stylesheet" href="/static/style.css"></head><body>`)
		p.raw(`<header class="topbar"><span class="brand">Well Program Tracker</span><nav>`)
		navLink(p, "/monitoring", "Monitoring", active == "monitoring")
		navLink(p, "/report", "Report", active == "report")
		p.raw(`</nav></header><main>`)
		p.render(ctx, body)
		p.raw(`</main></body></html>`)
	})
}

func navLink(p *page, href, label string, active bool) {
	p.raw("<a")
	p.attr("href", href)
	if active {
		p.raw(` class="active"`)
	}
	p.raw(">")
	p.text(label)
	p.raw("</a>")
}

// Flash is a one-line notice shown at the top of a page.
type Flash struct {
	Kind    string // success, warning or error
	Message string
}

func flash(p *page, f *Flash) {
	if f == nil || f.Message == "" {
		return
	}
	p.raw(`<div`)
	p.attr("class", "flash flash-"+f.Kind)
	p.raw(` role="status">`)
	p.text(f.Message)
	p.raw(`</div>`)
}

// ErrorAlert renders a mapped user error with its action and code.
func ErrorAlert(message, action, code string) templ.Component {
	return component(func(_ context.Context, p *page) {
		p.raw(`<div class="alert" role="alert"><strong>`)
		p.text(message)
		p.raw(`</strong>`)
		if action != "" {
			p.raw(` <span class="alert-action">`)
			p.text(action)
			p.raw(`</span>`)
		}
		if code != "" {
			p.raw(` <code>`)
			p.text(code)
			p.raw(`</code>`)
		}
		p.raw(`</div>`)
	})
}

// ErrorPage is a full page around ErrorAlert for non-API failures.
func ErrorPage(message, action, code string) templ.Component {
	return Layout("Error", "", ErrorAlert(message, action, code))
}
