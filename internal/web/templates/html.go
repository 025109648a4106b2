// Package templates renders the dashboard pages as templ components.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// page accumulates the first write error so components read top to bottom.
type page struct {
	w   io.Writer
	err error
}

func (p *page) raw(parts ...string) {
	for _, s := range parts {
		if p.err != nil {
			return
		}
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *page) text(s string) {
	p.raw(templ.EscapeString(s))
}

func (p *page) textf(format string, args ...any) {
	p.text(fmt.Sprintf(format, args...))
}

func (p *page) render(ctx context.Context, c templ.Component) {
	if p.err != nil || c == nil {
		return
	}
	p.err = c.Render(ctx, p.w)
}

// attr writes name="value" with value escaped.
func (p *page) attr(name, value string) {
	p.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

func (p *page) option(value, label string, selected bool) {
	p.raw("<option")
	p.attr("value", value)
	if selected {
		p.raw(" selected")
	}
	p.raw(">")
	p.text(label)
	p.raw("</option>")
}

func component(fn func(ctx context.Context, p *page)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &page{w: w}
		fn(ctx, p)
		return p.err
	})
}
