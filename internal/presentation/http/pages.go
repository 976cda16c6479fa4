package http

import (
	"context"
	"errors"
	"mime/multipart"
	stdhttp "net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"pagebin/app/internal/domain/pages"
	"pagebin/app/internal/presentation/http/templates"
)

const (
	errorFallbackMessage = "We couldn't process your request right now."
	notFoundMessage      = "There is no page at this address."
	dateLabelLayout      = "2 Jan 2006"
)

var sortLabels = map[pages.SortKey]string{
	pages.SortTimeDesc:  "Newest first",
	pages.SortTimeAsc:   "Oldest first",
	pages.SortViewsDesc: "Most viewed",
	pages.SortNameAsc:   "Name A to Z",
	pages.SortNameDesc:  "Name Z to A",
}

type indexInput struct {
	Query string `query:"q" doc:"Case-insensitive match on name or slug"`
	Sort  string `query:"sort" doc:"time-desc, time-asc, views-desc, name-asc or name-desc"`
	path  string
}

// Resolve captures the request path; the root pattern also matches unknown paths.
func (i *indexInput) Resolve(ctx huma.Context) []error {
	u := ctx.URL()
	i.path = u.Path
	return nil
}

type slugInput struct {
	Slug string `path:"slug"`
}

type createFormInput struct {
	RawBody multipart.Form
}

type updateFormInput struct {
	Slug    string `path:"slug"`
	RawBody multipart.Form
}

func (s *Server) registerHTMLRoutes() {
	huma.Get(s.api, "/", s.indexHandler, htmlOperation(
		"List pages",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
	huma.Get(s.api, "/new", s.newPageHandler, htmlOperation("New page form"))
	huma.Post(s.api, "/create", s.createPageHandler, formOperation(s.maxFormBytes, htmlOperation(
		"Create page from form",
		stdhttp.StatusSeeOther,
		stdhttp.StatusBadRequest,
		stdhttp.StatusInternalServerError,
	)))
	huma.Get(s.api, "/edit/{slug}", s.editPageHandler, htmlOperation(
		"Edit page form",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
	huma.Post(s.api, "/update/{slug}", s.updatePageHandler, formOperation(s.maxFormBytes, htmlOperation(
		"Update page from form",
		stdhttp.StatusSeeOther,
		stdhttp.StatusBadRequest,
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	)))
	huma.Post(s.api, "/delete/{slug}", s.deletePageHandler, htmlOperation(
		"Delete page",
		stdhttp.StatusSeeOther,
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
	huma.Get(s.api, "/stats", s.statsPageHandler, htmlOperation(
		"Index statistics",
		stdhttp.StatusInternalServerError,
	))
	huma.Get(s.api, "/{slug}", s.viewPageHandler, htmlOperation(
		"Serve stored page",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func formOperation(maxBytes int64, next func(op *huma.Operation)) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		next(op)
		op.MaxBodyBytes = maxBytes
	}
}

func (s *Server) indexHandler(ctx context.Context, input *indexInput) (*htmlResponse, error) {
	if input.path != "" && input.path != "/" {
		return s.renderErrorResponse(ctx, stdhttp.StatusNotFound, notFoundMessage)
	}

	query := strings.TrimSpace(input.Query)
	sortKey := pages.ParseSortKey(input.Sort)

	list, err := s.pages.List(ctx, pages.ListOptions{Query: query, Sort: sortKey})
	if err != nil {
		return s.pageFailure(ctx, err, "listing pages", nil)
	}

	total := len(list)
	if query != "" {
		if total, err = s.pages.Count(ctx); err != nil {
			return s.pageFailure(ctx, err, "counting pages", nil)
		}
	}

	data := templates.IndexPageData{
		Query:       query,
		SortOptions: sortOptions(sortKey),
		Pages:       make([]templates.PageCardView, 0, len(list)),
		TotalPages:  total,
	}
	for _, page := range list {
		data.Pages = append(data.Pages, pageCardView(page))
	}

	return s.renderPage(ctx, stdhttp.StatusOK, templates.IndexPage(data), "rendering index page")
}

func (s *Server) newPageHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	return s.renderPage(ctx, stdhttp.StatusOK, templates.FormPage(createFormData(pageForm{option: string(pages.ThumbnailRandom)}, "")), "rendering new page form")
}

func (s *Server) createPageHandler(ctx context.Context, input *createFormInput) (*htmlResponse, error) {
	defer removeFormFiles(&input.RawBody)

	form := parsePageForm(&input.RawBody)
	spec, closeFile, err := form.thumbnailSpec()
	if err != nil {
		s.recordError(ctx, err, "opening uploaded thumbnail", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}
	defer closeFile()

	page, err := s.pages.Create(ctx, pages.CreatePageRequest{
		Name:      form.name,
		Content:   form.code,
		Thumbnail: spec,
	})
	if err != nil {
		if pages.IsValidation(err) {
			data := createFormData(form, validationMessage(err))
			return s.renderPage(ctx, stdhttp.StatusBadRequest, templates.FormPage(data), "rendering new page form")
		}
		return s.pageFailure(ctx, err, "creating page", logrus.Fields{"name": form.name})
	}

	s.logRequest(ctx, logrus.Fields{"slug": page.Slug}, "page created from form")
	return redirectResponse("/"), nil
}

func (s *Server) editPageHandler(ctx context.Context, input *slugInput) (*htmlResponse, error) {
	slug := strings.TrimSpace(input.Slug)
	doc, err := s.pages.Get(ctx, slug)
	if err != nil {
		return s.pageFailure(ctx, err, "loading page for edit", logrus.Fields{"slug": slug})
	}

	form := pageForm{
		name:   doc.Name,
		code:   string(doc.Content),
		option: string(pages.ThumbnailKeep),
	}
	return s.renderPage(ctx, stdhttp.StatusOK, templates.FormPage(editFormData(slug, doc.Thumbnail, form, "")), "rendering edit form")
}

func (s *Server) updatePageHandler(ctx context.Context, input *updateFormInput) (*htmlResponse, error) {
	defer removeFormFiles(&input.RawBody)

	slug := strings.TrimSpace(input.Slug)
	form := parsePageForm(&input.RawBody)
	spec, closeFile, err := form.thumbnailSpec()
	if err != nil {
		s.recordError(ctx, err, "opening uploaded thumbnail", logrus.Fields{"slug": slug})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}
	defer closeFile()

	_, err = s.pages.Update(ctx, pages.UpdatePageRequest{
		Slug:      slug,
		Name:      form.name,
		Content:   form.code,
		Thumbnail: spec,
	})
	if err != nil {
		if pages.IsValidation(err) {
			current := ""
			if doc, getErr := s.pages.Get(ctx, slug); getErr == nil {
				current = doc.Thumbnail
			}
			data := editFormData(slug, current, form, validationMessage(err))
			return s.renderPage(ctx, stdhttp.StatusBadRequest, templates.FormPage(data), "rendering edit form")
		}
		return s.pageFailure(ctx, err, "updating page", logrus.Fields{"slug": slug})
	}

	s.logRequest(ctx, logrus.Fields{"slug": slug}, "page updated from form")
	return redirectResponse("/"), nil
}

func (s *Server) deletePageHandler(ctx context.Context, input *slugInput) (*htmlResponse, error) {
	slug := strings.TrimSpace(input.Slug)
	if err := s.pages.Delete(ctx, slug); err != nil {
		return s.pageFailure(ctx, err, "deleting page", logrus.Fields{"slug": slug})
	}

	s.logRequest(ctx, logrus.Fields{"slug": slug}, "page deleted from form")
	return redirectResponse("/"), nil
}

func (s *Server) statsPageHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	stats, err := s.pages.Stats(ctx)
	if err != nil {
		return s.pageFailure(ctx, err, "computing stats", nil)
	}

	data := templates.StatsPageData{
		TotalPages:   stats.TotalPages,
		TotalViews:   stats.TotalViews,
		RecentPages:  stats.RecentPages,
		RecentViews:  stats.RecentViews,
		AverageViews: strconv.FormatFloat(stats.AverageViews, 'f', 2, 64),
		TopPages:     make([]templates.TopPageView, 0, len(stats.TopPages)),
	}
	for _, top := range stats.TopPages {
		data.TopPages = append(data.TopPages, templates.TopPageView{
			Name:  top.Name,
			URL:   "/" + top.Slug,
			Views: top.Views,
		})
	}

	return s.renderPage(ctx, stdhttp.StatusOK, templates.StatsPage(data), "rendering stats page")
}

func (s *Server) viewPageHandler(ctx context.Context, input *slugInput) (*htmlResponse, error) {
	slug := pages.Slugify(input.Slug)
	fields := logrus.Fields{"slug": slug}

	doc, err := s.pages.Get(ctx, slug)
	if err != nil {
		return s.pageFailure(ctx, err, "loading page", fields)
	}

	if err := s.pages.RecordView(ctx, slug); err != nil {
		s.logFailure(ctx, err, "recording page view", fields)
	}

	return newHTMLResponse(stdhttp.StatusOK, doc.Content), nil
}

// pageFailure maps registry errors onto rendered error pages.
func (s *Server) pageFailure(ctx context.Context, err error, message string, fields logrus.Fields) (*htmlResponse, error) {
	switch {
	case pages.IsNotFound(err):
		return s.renderErrorResponse(ctx, stdhttp.StatusNotFound, notFoundMessage)
	case pages.IsValidation(err):
		return s.renderErrorResponse(ctx, stdhttp.StatusBadRequest, validationMessage(err))
	case pages.IsPersistence(err):
		s.logFailure(ctx, err, message, fields)
	default:
		s.recordError(ctx, err, message, fields)
	}
	return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
}

func (s *Server) logRequest(ctx context.Context, fields logrus.Fields, message string) {
	if s.logger == nil {
		return
	}
	entry := s.logger.WithField("component", "http").WithFields(fields)
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	entry.Info(message)
}

func validationMessage(err error) string {
	var validation *pages.ValidationError
	if !errors.As(err, &validation) {
		return err.Error()
	}
	label := validation.Field
	switch label {
	case "code", "content":
		label = "HTML"
	case "name":
		label = "Name"
	case "thumbnail_file":
		label = "Thumbnail upload"
	}
	return label + " " + validation.Reason + "."
}

type pageForm struct {
	name   string
	code   string
	option string
	url    string
	file   *multipart.FileHeader
}

func parsePageForm(form *multipart.Form) pageForm {
	parsed := pageForm{
		name:   formValue(form, "name"),
		code:   formValue(form, "code"),
		option: formValue(form, "thumbnail_option"),
		url:    strings.TrimSpace(formValue(form, "thumbnail_url")),
	}
	if form != nil {
		if files := form.File["thumbnail_file"]; len(files) > 0 && files[0].Size > 0 {
			parsed.file = files[0]
		}
	}
	return parsed
}

// thumbnailSpec opens an uploaded file when one was chosen. The returned func closes it.
func (f pageForm) thumbnailSpec() (pages.ThumbnailSpec, func(), error) {
	spec := pages.ThumbnailSpec{
		Option: pages.ParseThumbnailOption(f.option),
		URL:    f.url,
	}
	if spec.Option != pages.ThumbnailFile || f.file == nil {
		return spec, func() {}, nil
	}

	file, err := f.file.Open()
	if err != nil {
		return spec, func() {}, eris.Wrap(err, "opening uploaded thumbnail")
	}
	spec.File = &pages.Upload{Filename: f.file.Filename, Content: file}
	return spec, func() { _ = file.Close() }, nil
}

func formValue(form *multipart.Form, key string) string {
	if form == nil {
		return ""
	}
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func removeFormFiles(form *multipart.Form) {
	if form != nil {
		_ = form.RemoveAll()
	}
}

func createFormData(form pageForm, message string) templates.FormPageData {
	return templates.FormPageData{
		Heading:         "New page",
		Action:          "/create",
		SubmitLabel:     "Create page",
		Name:            form.name,
		Code:            form.code,
		ThumbnailOption: normalisedOption(form.option, false),
		ThumbnailURL:    form.url,
		ErrorMessage:    message,
	}
}

func editFormData(slug, current string, form pageForm, message string) templates.FormPageData {
	return templates.FormPageData{
		Heading:          "Edit " + form.name,
		Action:           "/update/" + slug,
		SubmitLabel:      "Save changes",
		Name:             form.name,
		Code:             form.code,
		ThumbnailOption:  normalisedOption(form.option, true),
		ThumbnailURL:     form.url,
		CurrentThumbnail: current,
		AllowKeep:        true,
		ErrorMessage:     message,
	}
}

func normalisedOption(raw string, allowKeep bool) string {
	option := pages.ParseThumbnailOption(raw)
	if option == "" || (option == pages.ThumbnailKeep && !allowKeep) {
		if allowKeep {
			return string(pages.ThumbnailKeep)
		}
		return string(pages.ThumbnailRandom)
	}
	return string(option)
}

func sortOptions(selected pages.SortKey) []templates.SortOptionView {
	options := make([]templates.SortOptionView, 0, len(pages.SortKeys))
	for _, key := range pages.SortKeys {
		options = append(options, templates.SortOptionView{
			Value:    string(key),
			Label:    sortLabels[key],
			Selected: key == selected,
		})
	}
	return options
}

func pageCardView(page pages.Page) templates.PageCardView {
	view := templates.PageCardView{
		Name:         page.Name,
		Slug:         page.Slug,
		URL:          "/" + page.Slug,
		EditURL:      "/edit/" + page.Slug,
		DeleteURL:    "/delete/" + page.Slug,
		Thumbnail:    page.Thumbnail,
		Excerpt:      page.Excerpt,
		CreatedLabel: page.CreatedAt.Format(dateLabelLayout),
		Views:        page.Views,
	}
	if page.UpdatedAt != nil {
		view.UpdatedLabel = page.UpdatedAt.Format(dateLabelLayout)
	}
	return view
}
