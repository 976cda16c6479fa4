package http

import (
	"context"
	stdhttp "net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"pagebin/app/internal/domain/pages"
)

const exportFilenameLayout = "2006-01-02"

type listPagesInput struct {
	Query string `query:"q" doc:"Case-insensitive match on name or slug"`
	Sort  string `query:"sort" enum:"time-desc,time-asc,views-desc,name-asc,name-desc" doc:"Ordering, newest first by default"`
}

type listPagesOutput struct {
	Body []pages.Page
}

// pageRequestBody is the JSON shape for creating and updating pages.
type pageRequestBody struct {
	Name            string `json:"name" minLength:"1" maxLength:"1024" doc:"Display name; the slug is derived from it on create"`
	Content         string `json:"content" minLength:"1" doc:"HTML stored and served verbatim"`
	ThumbnailOption string `json:"thumbnailOption,omitempty" enum:"url,random,keep" doc:"How to pick the thumbnail; random when omitted"`
	ThumbnailURL    string `json:"thumbnailUrl,omitempty" maxLength:"2048"`
}

func (b pageRequestBody) thumbnail() pages.ThumbnailSpec {
	return pages.ThumbnailSpec{
		Option: pages.ParseThumbnailOption(b.ThumbnailOption),
		URL:    strings.TrimSpace(b.ThumbnailURL),
	}
}

type createPageInput struct {
	Body pageRequestBody
}

type updatePageInput struct {
	Slug string `path:"slug"`
	Body pageRequestBody
}

type pageOutput struct {
	Body *pages.Page
}

type pageDocument struct {
	pages.Page
	Content string `json:"content"`
}

type pageDocumentOutput struct {
	Body pageDocument
}

type statsOutput struct {
	Body *pages.Stats
}

type exportOutput struct {
	ContentDisposition string `header:"Content-Disposition"`
	Body               *pages.ExportPayload
}

func (s *Server) registerAPIRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-pages",
		Method:      stdhttp.MethodGet,
		Path:        "/api/pages",
		Summary:     "List pages",
		Tags:        []string{"pages"},
	}, s.listPagesHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-page",
		Method:        stdhttp.MethodPost,
		Path:          "/api/pages",
		Summary:       "Create a page",
		Tags:          []string{"pages"},
		DefaultStatus: stdhttp.StatusCreated,
		MaxBodyBytes:  s.maxFormBytes,
	}, s.createPageAPIHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-page",
		Method:      stdhttp.MethodGet,
		Path:        "/api/pages/{slug}",
		Summary:     "Get a page with its content",
		Tags:        []string{"pages"},
	}, s.getPageAPIHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:  "update-page",
		Method:       stdhttp.MethodPut,
		Path:         "/api/pages/{slug}",
		Summary:      "Update a page",
		Tags:         []string{"pages"},
		MaxBodyBytes: s.maxFormBytes,
	}, s.updatePageAPIHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-page",
		Method:        stdhttp.MethodDelete,
		Path:          "/api/pages/{slug}",
		Summary:       "Delete a page",
		Tags:          []string{"pages"},
		DefaultStatus: stdhttp.StatusNoContent,
	}, s.deletePageAPIHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-page-stats",
		Method:      stdhttp.MethodGet,
		Path:        "/api/stats",
		Summary:     "Index statistics",
		Tags:        []string{"pages"},
	}, s.statsAPIHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "export-pages",
		Method:      stdhttp.MethodGet,
		Path:        "/api/export",
		Summary:     "Download the page index",
		Tags:        []string{"pages"},
	}, s.exportAPIHandler)
}

func (s *Server) listPagesHandler(ctx context.Context, input *listPagesInput) (*listPagesOutput, error) {
	list, err := s.pages.List(ctx, pages.ListOptions{
		Query: strings.TrimSpace(input.Query),
		Sort:  pages.ParseSortKey(input.Sort),
	})
	if err != nil {
		return nil, s.apiFailure(ctx, err, "listing pages", nil)
	}
	return &listPagesOutput{Body: list}, nil
}

func (s *Server) createPageAPIHandler(ctx context.Context, input *createPageInput) (*pageOutput, error) {
	page, err := s.pages.Create(ctx, pages.CreatePageRequest{
		Name:      input.Body.Name,
		Content:   input.Body.Content,
		Thumbnail: input.Body.thumbnail(),
	})
	if err != nil {
		return nil, s.apiFailure(ctx, err, "creating page", logrus.Fields{"name": input.Body.Name})
	}
	return &pageOutput{Body: page}, nil
}

func (s *Server) getPageAPIHandler(ctx context.Context, input *slugInput) (*pageDocumentOutput, error) {
	slug := strings.TrimSpace(input.Slug)
	doc, err := s.pages.Get(ctx, slug)
	if err != nil {
		return nil, s.apiFailure(ctx, err, "loading page", logrus.Fields{"slug": slug})
	}
	return &pageDocumentOutput{Body: pageDocument{Page: doc.Page, Content: string(doc.Content)}}, nil
}

func (s *Server) updatePageAPIHandler(ctx context.Context, input *updatePageInput) (*pageOutput, error) {
	slug := strings.TrimSpace(input.Slug)
	page, err := s.pages.Update(ctx, pages.UpdatePageRequest{
		Slug:      slug,
		Name:      input.Body.Name,
		Content:   input.Body.Content,
		Thumbnail: input.Body.thumbnail(),
	})
	if err != nil {
		return nil, s.apiFailure(ctx, err, "updating page", logrus.Fields{"slug": slug})
	}
	return &pageOutput{Body: page}, nil
}

func (s *Server) deletePageAPIHandler(ctx context.Context, input *slugInput) (*struct{}, error) {
	slug := strings.TrimSpace(input.Slug)
	if err := s.pages.Delete(ctx, slug); err != nil {
		return nil, s.apiFailure(ctx, err, "deleting page", logrus.Fields{"slug": slug})
	}
	return nil, nil
}

func (s *Server) statsAPIHandler(ctx context.Context, _ *struct{}) (*statsOutput, error) {
	stats, err := s.pages.Stats(ctx)
	if err != nil {
		return nil, s.apiFailure(ctx, err, "computing stats", nil)
	}
	return &statsOutput{Body: stats}, nil
}

func (s *Server) exportAPIHandler(ctx context.Context, _ *struct{}) (*exportOutput, error) {
	payload, err := s.pages.Export(ctx)
	if err != nil {
		return nil, s.apiFailure(ctx, err, "exporting pages", nil)
	}

	filename := "pages-export-" + s.now().UTC().Format(exportFilenameLayout) + ".json"
	return &exportOutput{
		ContentDisposition: `attachment; filename="` + filename + `"`,
		Body:               payload,
	}, nil
}

// apiFailure maps registry errors onto problem responses.
func (s *Server) apiFailure(ctx context.Context, err error, message string, fields logrus.Fields) error {
	switch {
	case pages.IsValidation(err):
		return huma.Error400BadRequest(err.Error())
	case pages.IsNotFound(err):
		return huma.Error404NotFound(err.Error())
	case pages.IsPersistence(err):
		s.logFailure(ctx, err, message, fields)
	default:
		s.recordError(ctx, err, message, fields)
	}
	return huma.Error500InternalServerError(errorFallbackMessage)
}
