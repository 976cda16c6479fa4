package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// ErrorPage renders a status label with a short explanation.
func ErrorPage(data ErrorPageData) templ.Component {
	return Layout(pageTitle(data.StatusLabel), templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := newWriter(ctx, out)
		w.raw(`<section class="error-page"><h1>`)
		w.text(data.StatusLabel)
		w.raw(`</h1><p>`)
		w.text(data.Message)
		w.raw(`</p><p><a href="/">Back to all pages</a></p></section>`)
		return w.err
	}))
}
