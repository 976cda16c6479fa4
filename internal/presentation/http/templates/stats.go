package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// StatsPage renders index-wide aggregates.
func StatsPage(data StatsPageData) templ.Component {
	return Layout(pageTitle("Stats"), templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := newWriter(ctx, out)
		w.raw(`<h1>Stats</h1><dl class="stats">`)
		statItem(w, "Pages", strconv.Itoa(data.TotalPages))
		statItem(w, "Views", strconv.FormatInt(data.TotalViews, 10))
		statItem(w, "Created this week", strconv.Itoa(data.RecentPages))
		statItem(w, "Views on pages seen this week", strconv.FormatInt(data.RecentViews, 10))
		statItem(w, "Average views", data.AverageViews)
		w.raw(`</dl><h2>Most viewed</h2>`)

		if len(data.TopPages) == 0 {
			w.raw(`<p class="empty">No views recorded yet.</p>`)
			return w.err
		}

		w.raw(`<ol class="top-pages">`)
		for _, page := range data.TopPages {
			w.raw(`<li><a`)
			w.url("href", page.URL)
			w.raw(`>`)
			w.text(page.Name)
			w.raw(`</a> <span class="views">`)
			w.text(strconv.FormatInt(page.Views, 10) + " views")
			w.raw(`</span></li>`)
		}
		w.raw(`</ol>`)
		return w.err
	}))
}

func statItem(w *writer, label, value string) {
	w.raw(`<div><dt>`)
	w.text(label)
	w.raw(`</dt><dd>`)
	w.text(value)
	w.raw(`</dd></div>`)
}
