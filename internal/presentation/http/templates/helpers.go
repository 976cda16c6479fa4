package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// writer accumulates the first write error so markup can be emitted in sequence.
type writer struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newWriter(ctx context.Context, w io.Writer) *writer {
	return &writer{ctx: ctx, w: w, err: ctx.Err()}
}

func (w *writer) raw(markup string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, markup)
}

func (w *writer) text(value string) {
	w.raw(templ.EscapeString(value))
}

// attr writes a quoted attribute value.
func (w *writer) attr(name, value string) {
	w.raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// url writes an href or src attribute, replacing unsafe schemes.
func (w *writer) url(name, value string) {
	w.attr(name, string(templ.URL(value)))
}

func (w *writer) render(component templ.Component) {
	if w.err != nil || component == nil {
		return
	}
	w.err = component.Render(w.ctx, w.w)
}
