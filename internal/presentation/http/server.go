package http

import (
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"pagebin/app/internal/domain/pages"
)

const (
	defaultVersion        = "dev"
	defaultMaxUploadBytes = 5 << 20
	// formOverheadBytes leaves room for the HTML source and other fields next to an upload.
	formOverheadBytes = 16 << 20
)

// Options configures the HTTP server wiring.
type Options struct {
	PageService    pages.Service
	Logger         *logrus.Logger
	SentryHub      *sentry.Hub
	RateLimiter    RateLimiterSettings
	UploadDir      string
	MaxUploadBytes int64
	Version        string
	StartedAt      time.Time
	Now            func() time.Time
}

// RateLimiterSettings configures the HTTP rate limiter behaviour.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// Server wires the HTTP transport layer via Huma and templ components.
type Server struct {
	api          huma.API
	mux          *stdhttp.ServeMux
	pages        pages.Service
	logger       *logrus.Logger
	sentry       *sentry.Hub
	rateLimiter  *RateLimiter
	uploadDir    string
	maxFormBytes int64
	version      string
	startedAt    time.Time
	now          func() time.Time
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.PageService == nil {
		return nil, eris.New("page service is required")
	}

	settings := opts.RateLimiter
	if settings.Burst <= 0 {
		return nil, eris.New("rate limiter burst must be greater than zero")
	}
	if settings.RequestsPerSecond <= 0 {
		return nil, eris.New("rate limiter requests per second must be greater than zero")
	}
	if settings.ClientTTL <= 0 {
		return nil, eris.New("rate limiter client TTL must be greater than zero")
	}

	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = defaultVersion
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	startedAt := opts.StartedAt
	if startedAt.IsZero() {
		startedAt = now()
	}

	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("pagebin", version)
	config.Info.Description = "Store HTML pages under readable slugs and serve them back verbatim."

	api := humago.New(mux, config)

	srv := &Server{
		api:          api,
		mux:          mux,
		pages:        opts.PageService,
		logger:       opts.Logger,
		sentry:       opts.SentryHub,
		rateLimiter:  NewRateLimiter(settings.Burst, settings.RequestsPerSecond, settings.ClientTTL),
		uploadDir:    strings.TrimSpace(opts.UploadDir),
		maxFormBytes: maxUpload + formOverheadBytes,
		version:      version,
		startedAt:    startedAt,
		now:          now,
	}

	srv.registerMiddlewares()
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the underlying HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.mux
}

// API exposes the underlying Huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.rateLimitMiddleware(),
		s.loggingMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	s.registerStaticRoute()
	s.registerUploadsRoute()

	s.registerHTMLRoutes()
	s.registerAPIRoutes()
	s.registerHealthRoute()
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.mux.ServeHTTP(w, r)
}
