package http

import (
	"bytes"
	"context"
	"fmt"
	"html"
	stdhttp "net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"pagebin/app/internal/presentation/http/templates"
)

const htmlContentType = "text/html; charset=utf-8"

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Location    string `header:"Location"`
	Body        []byte
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func redirectResponse(location string) *htmlResponse {
	response := newHTMLResponse(stdhttp.StatusSeeOther, nil)
	response.Location = location
	return response
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		op.Tags = []string{"html"}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			op.Responses[code] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

func renderComponent(ctx context.Context, component templ.Component) ([]byte, error) {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return nil, eris.Wrap(err, "error rendering component")
	}
	return buf.Bytes(), nil
}

func (s *Server) renderPage(ctx context.Context, status int, component templ.Component, failure string) (*htmlResponse, error) {
	body, err := renderComponent(ctx, component)
	if err != nil {
		s.recordError(ctx, err, failure, nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}
	return newHTMLResponse(status, body), nil
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	body, err := renderComponent(ctx, templates.ErrorPage(templates.ErrorPageData{
		StatusLabel: label,
		Message:     message,
	}))
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, html.EscapeString(message)))
		return newHTMLResponse(status, fallback), nil
	}

	return newHTMLResponse(status, body), nil
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}

// logFailure records a request failure the registry has already reported.
func (s *Server) logFailure(ctx context.Context, err error, message string, fields logrus.Fields) {
	if s.logger == nil || err == nil {
		return
	}
	entry := s.logger.WithField("error", err.Error())
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	entry.Warn(message)
}
