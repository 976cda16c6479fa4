package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// FormPage renders the create or edit form.
func FormPage(data FormPageData) templ.Component {
	return Layout(pageTitle(data.Heading), templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := newWriter(ctx, out)
		w.raw(`<h1>`)
		w.text(data.Heading)
		w.raw(`</h1>`)
		if data.ErrorMessage != "" {
			w.raw(`<p class="error" role="alert">`)
			w.text(data.ErrorMessage)
			w.raw(`</p>`)
		}

		w.raw(`<form method="post" enctype="multipart/form-data" class="page-form"`)
		w.url("action", data.Action)
		w.raw(`>`)
		w.raw(`<label>Name<input type="text" name="name" required`)
		w.attr("value", data.Name)
		w.raw(`></label>`)
		w.raw(`<label>HTML<textarea name="code" rows="18" required spellcheck="false">`)
		w.text(data.Code)
		w.raw(`</textarea></label>`)

		w.raw(`<fieldset><legend>Thumbnail</legend>`)
		if data.AllowKeep {
			thumbnailChoice(w, "keep", "Keep current", data.ThumbnailOption)
			if data.CurrentThumbnail != "" {
				w.raw(`<img class="thumb small" alt="Current thumbnail"`)
				w.url("src", data.CurrentThumbnail)
				w.raw(`>`)
			}
		}
		thumbnailChoice(w, "random", "Random", data.ThumbnailOption)
		thumbnailChoice(w, "url", "Image URL", data.ThumbnailOption)
		w.raw(`<input type="url" name="thumbnail_url" placeholder="https://"`)
		w.attr("value", data.ThumbnailURL)
		w.raw(`>`)
		thumbnailChoice(w, "file", "Upload", data.ThumbnailOption)
		w.raw(`<input type="file" name="thumbnail_file" accept="image/*"></fieldset>`)

		w.raw(`<div class="actions"><button type="submit">`)
		w.text(data.SubmitLabel)
		w.raw(`</button><a href="/">Cancel</a></div></form>`)
		return w.err
	}))
}

func thumbnailChoice(w *writer, value, label, selected string) {
	w.raw(`<label class="choice"><input type="radio" name="thumbnail_option"`)
	w.attr("value", value)
	if value == selected {
		w.raw(` checked`)
	}
	w.raw(`>`)
	w.text(label)
	w.raw(`</label>`)
}
