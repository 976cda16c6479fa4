package http

import (
	"encoding/json"
	"fmt"
	"net"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const (
	rateLimitMessage   = "You're sending requests a bit too quickly. Please wait a moment and try again."
	requestIDHeader    = "X-Request-ID"
	sentryFlushTimeout = 2 * time.Second
	problemContentType = "application/problem+json"
)

// Probes are never rate limited.
var rateLimitExempt = map[string]struct{}{
	"/healthz": {},
}

type middleware = func(huma.Context, func(huma.Context))

func (s *Server) sentryMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.sentry == nil {
			next(ctx)
			return
		}

		hub := s.sentry.Clone()
		scope := hub.Scope()
		scope.SetTag("http.method", ctx.Method())
		if op := ctx.Operation(); op != nil {
			scope.SetTag("http.route", op.Path)
		}
		if slug := ctx.Param("slug"); slug != "" {
			scope.SetTag("page.slug", slug)
		}

		ctx = huma.WithContext(ctx, sentry.SetHubOnContext(ctx.Context(), hub))
		defer hub.Flush(sentryFlushTimeout)

		next(ctx)
	}
}

// recoveryMiddleware answers a panicking handler with the same error shapes as
// ordinary failures: problem JSON under /api and the HTML error page elsewhere.
func (s *Server) recoveryMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", rec)
			}
			s.recordError(ctx.Context(), eris.Wrap(err, "handler panicked"), "panic recovered", logrus.Fields{
				"method": ctx.Method(),
				"path":   requestPath(ctx),
			})

			if hub := sentry.GetHubFromContext(ctx.Context()); hub != nil {
				hub.RecoverWithContext(ctx.Context(), rec)
			}

			s.writeFailure(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
		}()

		next(ctx)
	}
}

func (s *Server) requestIDMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		reqID := ctx.Header(requestIDHeader)
		if _, err := uuid.Parse(reqID); err != nil {
			reqID = uuid.NewString()
		}

		info := requestInfo{ID: reqID}
		if req, _ := humago.Unwrap(ctx); req != nil {
			info.ClientIP = clientIPFromRequest(req)
		}

		goCtx := withRequestInfo(ctx.Context(), info)
		ctx = huma.WithContext(ctx, goCtx)
		ctx.SetHeader(requestIDHeader, reqID)

		if hub := sentry.GetHubFromContext(goCtx); hub != nil {
			hub.Scope().SetTag("request_id", reqID)
		}

		next(ctx)
	}
}

func (s *Server) rateLimitMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		path := requestPath(ctx)
		if _, exempt := rateLimitExempt[path]; exempt || s.rateLimiter == nil {
			next(ctx)
			return
		}

		client := requestInfoFromContext(ctx.Context()).ClientIP
		if s.rateLimiter.Allow(client) {
			next(ctx)
			return
		}

		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"component":  "http",
				"ip":         client,
				"path":       path,
				"request_id": RequestIDFromContext(ctx.Context()),
			}).Warn("request rate limited")
		}

		ctx.SetHeader("Retry-After", "1")
		s.writeFailure(ctx, stdhttp.StatusTooManyRequests, rateLimitMessage)
	}
}

func (s *Server) loggingMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.logger == nil {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = stdhttp.StatusOK
		}

		info := requestInfoFromContext(ctx.Context())
		fields := logrus.Fields{
			"component":   "http",
			"method":      ctx.Method(),
			"path":        requestPath(ctx),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
			"request_id":  info.ID,
			"ip":          info.ClientIP,
		}
		if op := ctx.Operation(); op != nil {
			fields["route"] = op.Path
		}
		if slug := ctx.Param("slug"); slug != "" {
			fields["slug"] = slug
		}

		entry := s.logger.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("request failed")
		case status == stdhttp.StatusTooManyRequests:
			entry.Warn("request rejected")
		default:
			entry.Info("request completed")
		}
	}
}

// writeFailure writes an error response outside the operation handlers.
func (s *Server) writeFailure(ctx huma.Context, status int, message string) {
	if isAPIPath(requestPath(ctx)) {
		body, _ := json.Marshal(huma.ErrorModel{
			Title:  stdhttp.StatusText(status),
			Status: status,
			Detail: message,
		})
		ctx.SetHeader("Content-Type", problemContentType)
		ctx.SetStatus(status)
		_, _ = ctx.BodyWriter().Write(body)
		return
	}

	resp, _ := s.renderErrorResponse(ctx.Context(), status, message)
	ctx.SetHeader("Content-Type", resp.ContentType)
	ctx.SetStatus(status)
	_, _ = ctx.BodyWriter().Write(resp.Body)
}

func requestPath(ctx huma.Context) string {
	if req, _ := humago.Unwrap(ctx); req != nil {
		return req.URL.Path
	}
	return ctx.URL().Path
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// clientIPFromRequest prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func clientIPFromRequest(req *stdhttp.Request) string {
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP"} {
		value := strings.TrimSpace(req.Header.Get(header))
		if first, _, _ := strings.Cut(value, ","); strings.TrimSpace(first) != "" {
			return strings.TrimSpace(first)
		}
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
