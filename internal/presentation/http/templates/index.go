package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// IndexPage lists pages with the search and sort controls.
func IndexPage(data IndexPageData) templ.Component {
	return Layout(pageTitle(""), templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := newWriter(ctx, out)

		w.raw(`<section class="toolbar"><form method="get" action="/" class="search">`)
		w.raw(`<input type="search" name="q" placeholder="Search by name or slug"`)
		w.attr("value", data.Query)
		w.raw(`><select name="sort">`)
		for _, option := range data.SortOptions {
			w.raw(`<option`)
			w.attr("value", option.Value)
			if option.Selected {
				w.raw(` selected`)
			}
			w.raw(`>`)
			w.text(option.Label)
			w.raw(`</option>`)
		}
		w.raw(`</select><button type="submit">Apply</button></form>`)
		w.raw(`<p class="count">`)
		w.text(strconv.Itoa(len(data.Pages)) + " of " + strconv.Itoa(data.TotalPages) + " pages")
		w.raw(`</p></section>`)

		if len(data.Pages) == 0 {
			w.raw(`<p class="empty">`)
			if data.Query != "" {
				w.text("No pages match your search.")
			} else {
				w.raw(`Nothing here yet. <a href="/new">Create the first page</a>.`)
			}
			w.raw(`</p>`)
			return w.err
		}

		w.raw(`<ul class="cards">`)
		for _, page := range data.Pages {
			w.render(pageCard(page))
		}
		w.raw(`</ul>`)
		return w.err
	}))
}

func pageCard(page PageCardView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := newWriter(ctx, out)
		w.raw(`<li class="card">`)
		if page.Thumbnail != "" {
			w.raw(`<a`)
			w.url("href", page.URL)
			w.raw(`><img class="thumb" alt="" loading="lazy"`)
			w.url("src", page.Thumbnail)
			w.raw(`></a>`)
		}
		w.raw(`<div class="card-body"><h2><a`)
		w.url("href", page.URL)
		w.raw(`>`)
		w.text(page.Name)
		w.raw(`</a></h2><p class="meta"><code>/`)
		w.text(page.Slug)
		w.raw(`</code> · `)
		w.text(page.CreatedLabel)
		if page.UpdatedLabel != "" {
			w.text(" · edited " + page.UpdatedLabel)
		}
		w.text(" · " + strconv.FormatInt(page.Views, 10) + " views")
		w.raw(`</p>`)
		if page.Excerpt != "" {
			w.raw(`<p class="excerpt">`)
			w.text(page.Excerpt)
			w.raw(`</p>`)
		}
		w.raw(`<div class="actions"><a`)
		w.url("href", page.EditURL)
		w.raw(`>Edit</a><form method="post" onsubmit="return confirm('Delete this page?')"`)
		w.url("action", page.DeleteURL)
		w.raw(`><button type="submit" class="danger">Delete</button></form></div></div></li>`)
		return w.err
	})
}
