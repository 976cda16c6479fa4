package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps content in the shared document shell.
func Layout(title string, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := newWriter(ctx, out)
		w.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		w.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		w.raw(`<title>`)
		w.text(title)
		w.raw(`</title><link rel="icon" href="/favicon.ico"><link rel="stylesheet" href="/static/style.css"></head><body>`)
		w.raw(`<header class="site-header"><a class="brand" href="/">`)
		w.text(SiteName)
		w.raw(`</a><nav><a href="/">Pages</a><a href="/new">New page</a><a href="/stats">Stats</a></nav></header>`)
		w.raw(`<main>`)
		w.render(content)
		w.raw(`</main><footer class="site-footer"><p>`)
		w.text(DefaultFooterNote)
		w.raw(`</p></footer></body></html>`)
		return w.err
	})
}

func pageTitle(label string) string {
	if label == "" {
		return SiteName
	}
	return label + " • " + SiteName
}
